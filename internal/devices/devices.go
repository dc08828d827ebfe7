// Package devices brings up the audio hardware and native speech engines and
// reports which of them are usable. Nothing here is fatal: a missing
// microphone, model or voice only removes that capability.
package devices

import (
	"context"
	"fmt"
	"io"
	log "log/slog"
	"time"

	"parle/internal/audio"
	"parle/internal/config"
	"parle/internal/mixer"
	"parle/internal/notify"
	"parle/internal/speech"
	"parle/internal/tts"
	"parle/pkg/audioconv"
	"parle/pkg/stt"
)

// Voice notes longer than this are cut before transcription.
const maxNoteSamples = 60 * audioconv.TargetRate

type Devices struct {
	cfg      config.SpeechConfig
	recorder *audio.Recorder
	whisper  *stt.Transcriber
	voice    *tts.Espeak
	cue      *notify.Cue
	ducker   *mixer.Ducker
}

// Open probes every subsystem enabled in cfg.
func Open(cfg config.SpeechConfig) *Devices {
	d := &Devices{cfg: cfg}
	if !cfg.Enabled {
		log.Info("Speech disabled by configuration")
		return d
	}

	whisper, err := stt.NewTranscriber(cfg.Model, stt.Options{Language: cfg.Language})
	if err != nil {
		log.Warn("Speech recognition unavailable", "model", cfg.Model, "err", err)
	} else {
		d.whisper = whisper
	}

	if d.whisper != nil {
		rec := audio.NewRecorder(audio.Settings{
			Silence:   cfg.Silence.Duration,
			MaxLength: cfg.MaxLength.Duration,
		})
		if err := openRecorder(rec); err != nil {
			log.Warn("Microphone unavailable", "err", err)
		} else {
			d.recorder = rec
		}
	}

	voice, err := tts.NewEspeak(cfg.Voice, cfg.Rate)
	if err != nil {
		log.Warn("Speech output unavailable", "err", err)
	} else {
		d.voice = voice
	}

	if d.recorder != nil {
		if cfg.Cue != "" {
			d.cue = notify.NewCue(cfg.Cue)
		}
		if cfg.Duck {
			d.ducker = mixer.NewDucker([]string{"parle", "espeak-ng"}, 10)
		}
	}

	return d
}

func openRecorder(rec *audio.Recorder) error {
	if err := rec.Init(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	if err := rec.Probe(); err != nil {
		rec.Close()
		return fmt.Errorf("open input stream: %w", err)
	}
	return nil
}

// Capabilities reports the usable subsystems; the classifier flag is left to
// the caller.
func (d *Devices) Capabilities() speech.Capabilities {
	return speech.Capabilities{
		Microphone: d.recorder != nil,
		Voice:      d.voice != nil,
	}
}

// Synth returns the speech output, or nil when there is none.
func (d *Devices) Synth() speech.Synth {
	if d.voice == nil {
		return nil
	}
	return d.voice
}

// Listener returns the microphone when available and text otherwise. text
// also takes over for a turn whenever the microphone fails.
func (d *Devices) Listener(text speech.Listener, echo io.Writer) speech.Listener {
	if d.recorder == nil {
		return text
	}

	m := &speech.Microphone{
		Recorder:    d.recorder,
		Transcriber: d.whisper,
		Fallback:    text,
		Echo:        echo,
		Cue:         d.playCue,
	}
	if d.ducker != nil {
		m.Ducker = d.ducker
	}
	return m
}

func (d *Devices) playCue() {
	if d.cfg.Notify {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := notify.Desktop(ctx, "parle", "J'écoute..."); err != nil {
			log.Debug("Desktop notification failed", "err", err)
		}
	}
	if d.cue == nil {
		return
	}
	if err := d.cue.Play(); err != nil {
		log.Debug("Cue not played", "err", err)
	}
}

// Files returns the voice note transcriber, or nil without a model.
func (d *Devices) Files() *Files {
	if d.whisper == nil {
		return nil
	}
	return &Files{whisper: d.whisper}
}

func (d *Devices) Close() {
	if d.recorder != nil {
		d.recorder.Close()
	}
	if d.whisper != nil {
		d.whisper.Close()
	}
	if d.voice != nil {
		d.voice.Close()
	}
}

// Files transcribes recorded voice notes (wav, mp3, ogg).
type Files struct {
	whisper *stt.Transcriber
}

func (f *Files) TranscribeFile(ctx context.Context, path string) (string, error) {
	pcm, err := audioconv.ConvertFileToPCM16k(ctx, path, audioconv.Options{MaxSamples: maxNoteSamples})
	if err != nil {
		return "", err
	}
	if len(pcm) == 0 {
		return "", nil
	}

	text, err := f.whisper.Transcribe(ctx, pcm)
	if err != nil {
		return "", err
	}
	return speech.StripAnnotations(text), nil
}
