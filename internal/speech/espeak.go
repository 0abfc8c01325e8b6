package speech

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <string.h>
#include <espeak-ng/speak_lib.h>

int
aide_espeak_say(const char *text, const char *lang)
{
	if (!text)
	{ return -1; }

	espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0);
	espeak_VOICE specs = { .languages = lang };
	espeak_SetVoiceByProperties(&specs);

	espeak_Synth(text, strlen(text) + 1, 0, 0, 0, espeakCHARS_AUTO, NULL, NULL);
	espeak_Synchronize();
	espeak_Terminate();

	return 0;
}
*/
import "C"

import (
	"context"
	"fmt"
	"unsafe"
)

// Espeak is the offline tail of the chain: espeak-ng synchronous playback.
type Espeak struct {
	language string
}

func NewEspeak(language string) *Espeak {
	if language == "" {
		language = "en"
	}
	return &Espeak{language: language}
}

func (e *Espeak) Name() string { return "espeak" }

func (e *Espeak) Speak(_ context.Context, text string) error {
	if text == "" {
		return nil
	}

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	clang := C.CString(e.language)
	defer C.free(unsafe.Pointer(clang))

	if rc := C.aide_espeak_say(ctext, clang); rc != 0 {
		return fmt.Errorf("espeak_say failed: %d", int(rc))
	}
	return nil
}
