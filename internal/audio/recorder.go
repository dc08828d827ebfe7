// Package audio captures single utterances from the default input device.
package audio

import (
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

// Settings tune utterance detection. Zero fields take the defaults.
type Settings struct {
	SampleRate int
	FrameSize  int
	// SilenceRMS is the frame energy under which the input counts as silence.
	SilenceRMS float64
	// Silence ends an utterance once speech has started.
	Silence time.Duration
	// StartTimeout gives up when nobody speaks.
	StartTimeout time.Duration
	// MaxLength caps one utterance.
	MaxLength time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		SampleRate:   16000,
		FrameSize:    320, // 20ms
		SilenceRMS:   0.015,
		Silence:      600 * time.Millisecond,
		StartTimeout: 5 * time.Second,
		MaxLength:    10 * time.Second,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.SampleRate <= 0 {
		s.SampleRate = d.SampleRate
	}
	if s.FrameSize <= 0 {
		s.FrameSize = d.FrameSize
	}
	if s.SilenceRMS <= 0 {
		s.SilenceRMS = d.SilenceRMS
	}
	if s.Silence <= 0 {
		s.Silence = d.Silence
	}
	if s.StartTimeout <= 0 {
		s.StartTimeout = d.StartTimeout
	}
	if s.MaxLength <= 0 {
		s.MaxLength = d.MaxLength
	}
	return s
}

type Recorder struct {
	cfg Settings
}

func NewRecorder(cfg Settings) *Recorder {
	return &Recorder{cfg: cfg.withDefaults()}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Probe opens and closes the default input stream to check a microphone is
// actually there.
func (r *Recorder) Probe() error {
	buf := make([]float32, r.cfg.FrameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(r.cfg.SampleRate), len(buf), buf)
	if err != nil {
		return err
	}
	return stream.Close()
}

// RecordAuto records one utterance as mono float32 PCM. It returns no samples
// when nobody spoke before StartTimeout.
func (r *Recorder) RecordAuto() ([]float32, error) {
	cfg := r.cfg

	buf := make([]float32, cfg.FrameSize)
	out := make([]float32, 0, cfg.SampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(cfg.SampleRate), len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	frame := time.Duration(cfg.FrameSize) * time.Second / time.Duration(cfg.SampleRate)
	maxFrames := int(cfg.MaxLength / frame)
	startFrames := int(cfg.StartTimeout / frame)
	silenceFrames := int(cfg.Silence / frame)

	var (
		speaking bool
		quiet    int
	)

	for i := 0; i < maxFrames; i++ {
		if err := stream.Read(); err != nil {
			return nil, err
		}

		if frameRMS(buf) > cfg.SilenceRMS {
			speaking = true
			quiet = 0
			out = append(out, buf...)
			continue
		}

		if !speaking {
			if i >= startFrames {
				return nil, nil
			}
			continue
		}

		quiet++
		if quiet >= silenceFrames {
			break
		}
		out = append(out, buf...)
	}

	return out, nil
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
