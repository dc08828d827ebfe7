// Package notify signals the user that the assistant is listening.
package notify

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

var Command = exec.CommandContext

// Cue plays a short mp3 before recording. The speaker is opened on first use
// at the sample rate of the first file played.
type Cue struct {
	path string
	once sync.Once
	err  error
}

func NewCue(path string) *Cue {
	return &Cue{path: path}
}

// Play blocks until the sound has finished.
func (c *Cue) Play() error {
	f, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("open cue: %w", err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode cue %s: %w", c.path, err)
	}
	defer streamer.Close()

	c.once.Do(func() {
		c.err = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
	})
	if c.err != nil {
		return fmt.Errorf("init speaker: %w", c.err)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))
	<-done

	return nil
}

// Desktop shows a desktop notification through notify-send.
func Desktop(ctx context.Context, summary, body string) error {
	return Command(ctx, "notify-send", "--app-name=parle", "--expire-time=2000", summary, body).Run()
}
