// Package tts speaks assistant replies through espeak-ng.
package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <espeak-ng/speak_lib.h>

int
espeak_open(const char *language, int rate)
{
	if (espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0) < 0)
	{ return -1; }

	espeak_VOICE specs = { 0 };
	specs.languages = language;
	if (espeak_SetVoiceByProperties(&specs) != EE_OK)
	{ return -2; }

	espeak_SetParameter(espeakRATE, rate, 0);
	return 0;
}

int
espeak_say(const char *text)
{
	if (!text)
	{ return -1; }

	espeak_ERROR rc = espeak_Synth(text, 500, 0, 0, 0, espeakCHARS_AUTO, NULL, NULL);
	if (rc != EE_OK)
	{ return (int)rc; }

	espeak_Synchronize();
	return 0;
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"
)

const (
	DefaultLanguage = "fr"
	DefaultRate     = 175
)

// Espeak is a synchronous speech synthesizer. espeak-ng keeps global state,
// so calls are serialized.
type Espeak struct {
	mu sync.Mutex
}

// NewEspeak initializes espeak-ng with the given voice language and rate in
// words per minute. A failure means the host has no usable voice.
func NewEspeak(language string, rate int) (*Espeak, error) {
	if language == "" {
		language = DefaultLanguage
	}
	if rate <= 0 {
		rate = DefaultRate
	}

	clang := C.CString(language)
	defer C.free(unsafe.Pointer(clang))

	if rc := C.espeak_open(clang, C.int(rate)); rc != 0 {
		return nil, fmt.Errorf("espeak init (%s): %d", language, int(rc))
	}

	return &Espeak{}, nil
}

// Speak blocks until text has been played.
func (e *Espeak) Speak(text string) error {
	if text == "" {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))

	if rc := C.espeak_say(ctext); rc != 0 {
		return fmt.Errorf("espeak_say failed: %d", int(rc))
	}

	return nil
}

func (e *Espeak) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	C.espeak_Terminate()
	return nil
}
