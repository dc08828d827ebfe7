package speech

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"regexp"
	"strings"
	"time"

	"parle/internal/intent"
)

// Listener returns the next user command. An empty command means nothing
// usable was heard.
type Listener interface {
	Listen(ctx context.Context) (string, error)
}

// EOFCommand is returned by TextInput once its input is exhausted so the
// caller winds down like on a spoken "quitter".
const EOFCommand = "quitter"

type TextInput struct {
	in     *bufio.Reader
	prompt io.Writer
}

func NewTextInput(in io.Reader, prompt io.Writer) *TextInput {
	return &TextInput{in: bufio.NewReader(in), prompt: prompt}
}

func (t *TextInput) Listen(_ context.Context) (string, error) {
	fmt.Fprint(t.prompt, "Vous (Texte): ")

	line, err := t.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if s := intent.Normalize(line); s != "" {
				return s, nil
			}
			return EOFCommand, nil
		}
		return "", fmt.Errorf("read command: %w", err)
	}

	return intent.Normalize(line), nil
}

// ErrNoInput is returned by NoInput.
var ErrNoInput = errors.New("no input device")

// NoInput stands in for a microphone on hosts that have none and no terminal
// to read from either.
type NoInput struct{}

func (NoInput) Listen(context.Context) (string, error) {
	return "", ErrNoInput
}

type Recorder interface {
	RecordAuto() ([]float32, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32) (string, error)
}

type Ducker interface {
	DuckOthers(ctx context.Context, factor float64, duration time.Duration) error
	UnduckOthers(ctx context.Context, duration time.Duration) error
}

// Microphone records one utterance and transcribes it. Device failures hand
// over to Fallback for this turn.
type Microphone struct {
	Recorder    Recorder
	Transcriber Transcriber
	Fallback    Listener
	Ducker      Ducker    // optional
	Cue         func()    // optional, played before recording
	Echo        io.Writer // receives "Vous (Vocal): ..." lines
}

const (
	duckFactor = 0.3
	duckFade   = 200 * time.Millisecond
)

func (m *Microphone) Listen(ctx context.Context) (string, error) {
	if m.Cue != nil {
		m.Cue()
	}

	if m.Ducker != nil {
		if err := m.Ducker.DuckOthers(ctx, duckFactor, duckFade); err != nil {
			log.Debug("Failed to duck other streams", "err", err)
		}
		defer func() {
			if err := m.Ducker.UnduckOthers(context.WithoutCancel(ctx), duckFade); err != nil {
				log.Debug("Failed to restore other streams", "err", err)
			}
		}()
	}

	log.Info("Listening")

	pcm, err := m.Recorder.RecordAuto()
	if err != nil {
		log.Error("Failed to record, switching to text", "err", err)
		return m.fallback(ctx)
	}

	if len(pcm) == 0 {
		log.Info("Nothing heard")
		return "", nil
	}

	log.Info("Recorded", "samples", len(pcm))

	text, err := m.Transcriber.Transcribe(ctx, pcm)
	if err != nil {
		log.Error("Failed to transcribe, switching to text", "err", err)
		return m.fallback(ctx)
	}

	text = intent.Normalize(StripAnnotations(text))
	if text == "" {
		log.Info("Empty transcription")
		if m.Echo != nil {
			fmt.Fprintln(m.Echo, "Je n'ai pas compris.")
		}
		return "", nil
	}

	if m.Echo != nil {
		fmt.Fprintf(m.Echo, "Vous (Vocal): %s\n", text)
	}

	return text, nil
}

func (m *Microphone) fallback(ctx context.Context) (string, error) {
	if m.Fallback == nil {
		return "", nil
	}
	return m.Fallback.Listen(ctx)
}

// Recognizers mark non-speech as "[BLANK_AUDIO]", "[Musique]" or "(rires)".
var annotationRe = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)

// StripAnnotations removes bracketed non-speech markers from a transcript.
func StripAnnotations(text string) string {
	return strings.Join(strings.Fields(annotationRe.ReplaceAllString(text, " ")), " ")
}
