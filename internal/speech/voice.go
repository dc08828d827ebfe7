// Package speech renders assistant replies and reads user commands, by voice
// when the audio devices allow it and as text otherwise.
package speech

import (
	"fmt"
	"io"
	log "log/slog"
	"sync"
	"time"
)

// Synth turns text into audible speech.
type Synth interface {
	Speak(text string) error
}

// Sink receives a copy of every reply, e.g. a chat window.
type Sink interface {
	Publish(text string)
}

// Voice prints replies, forwards them to the sinks and speaks them when a
// synthesizer is available. Replies never interleave.
type Voice struct {
	mu    sync.Mutex
	out   io.Writer
	synth Synth
	sinks []Sink
	pause time.Duration
}

// NewVoice writes replies to out. synth may be nil. pause is waited after
// each spoken reply so the microphone does not pick up the tail of it.
func NewVoice(out io.Writer, synth Synth, pause time.Duration) *Voice {
	return &Voice{out: out, synth: synth, pause: pause}
}

func (v *Voice) AddSink(s Sink) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sinks = append(v.sinks, s)
}

func (v *Voice) Say(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fmt.Fprintf(v.out, "IA: %s\n", text)

	for _, s := range v.sinks {
		s.Publish(text)
	}

	if v.synth == nil {
		return
	}

	if err := v.synth.Speak(text); err != nil {
		log.Warn("Failed to voice out", "err", err)
	}

	if v.pause > 0 {
		time.Sleep(v.pause)
	}
}
