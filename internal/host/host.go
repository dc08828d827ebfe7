// Package host runs assistant work in the background on behalf of
// front-ends that must not block, such as the control socket and the chat bus.
package host

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"parle/internal/assistant"
	"parle/internal/intent"
	"parle/internal/speech"
)

// ErrBusy is returned by Listen while a listening cycle is in flight.
var ErrBusy = errors.New("already listening")

var ErrNoTranscriber = errors.New("speech recognition unavailable")

type Processor interface {
	Process(ctx context.Context, raw string) assistant.Outcome
	OpenApp(name string)
}

type FileTranscriber interface {
	TranscribeFile(ctx context.Context, path string) (string, error)
}

// Chat message kinds posted by the host.
const (
	KindUser  = "user"
	KindError = "error"
)

// Chat displays what the user said and what went wrong.
type Chat interface {
	Post(kind, text string)
}

type Config struct {
	Processor Processor
	Listener  speech.Listener
	Files     FileTranscriber // optional
	Chat      Chat            // optional
}

// Host runs every request on its own goroutine. Listening cycles are
// exclusive among themselves; text commands are not serialized against them.
type Host struct {
	ctx       context.Context
	proc      Processor
	listener  speech.Listener
	files     FileTranscriber
	chat      Chat
	listening atomic.Bool
	wg        sync.WaitGroup
	stopOnce  sync.Once
	done      chan struct{}
}

func New(ctx context.Context, cfg Config) *Host {
	return &Host{
		ctx:      ctx,
		proc:     cfg.Processor,
		listener: cfg.Listener,
		files:    cfg.Files,
		chat:     cfg.Chat,
		done:     make(chan struct{}),
	}
}

// Done is closed once a command asked the assistant to stop.
func (h *Host) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until all started work has finished.
func (h *Host) Wait() {
	h.wg.Wait()
}

// Submit processes a typed command in the background.
func (h *Host) Submit(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	h.post(KindUser, text)
	h.run("submit", func() (assistant.Outcome, error) {
		return h.proc.Process(h.ctx, intent.Normalize(text)), nil
	})
}

// Listen starts one listen-then-process cycle unless one is running.
func (h *Host) Listen() error {
	if !h.listening.CompareAndSwap(false, true) {
		return ErrBusy
	}

	h.run("listen", func() (assistant.Outcome, error) {
		defer h.listening.Store(false)

		text, err := h.listener.Listen(h.ctx)
		if err != nil {
			return assistant.Continue, fmt.Errorf("listen: %w", err)
		}
		if text == "" {
			return assistant.Continue, nil
		}

		h.post(KindUser, text)
		return h.proc.Process(h.ctx, text), nil
	})

	return nil
}

// Open launches an application by name without classification.
func (h *Host) Open(name string) {
	h.run("open", func() (assistant.Outcome, error) {
		h.proc.OpenApp(name)
		return assistant.Continue, nil
	})
}

// TranscribeFile transcribes a recorded voice note and processes it.
func (h *Host) TranscribeFile(path string) error {
	if h.files == nil {
		return ErrNoTranscriber
	}

	h.run("transcribe", func() (assistant.Outcome, error) {
		text, err := h.files.TranscribeFile(h.ctx, path)
		if err != nil {
			return assistant.Continue, fmt.Errorf("transcribe %s: %w", path, err)
		}
		text = intent.Normalize(text)
		if text == "" {
			return assistant.Continue, nil
		}

		h.post(KindUser, text)
		return h.proc.Process(h.ctx, text), nil
	})

	return nil
}

// Stop marks the host as finished without running a command.
func (h *Host) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Host) run(name string, fn func() (assistant.Outcome, error)) {
	h.wg.Add(1)

	go func() {
		defer h.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error("Background work panicked", "task", name, "panic", r)
				h.post(KindError, fmt.Sprintf("Erreur: %v", r))
			}
		}()

		out, err := fn()
		if err != nil {
			log.Error("Background work failed", "task", name, "err", err)
			h.post(KindError, fmt.Sprintf("Erreur: %v", err))
			return
		}

		if out == assistant.Stop {
			h.Stop()
		}
	}()
}

func (h *Host) post(kind, text string) {
	if kind == KindUser {
		log.Info("Command", "text", text)
	}
	if h.chat != nil {
		h.chat.Post(kind, text)
	}
}
