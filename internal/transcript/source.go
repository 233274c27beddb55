// Package transcript provides capture/transcription source adapters for
// the practice engine. A source wraps whichever transcription mechanism the
// client platform offers: continuous recognition relayed over the practice
// channel, or manual text entry where recognition is unavailable.
package transcript

import (
	"errors"
)

// ErrUnavailable is returned when no input mechanism exists at all; Start
// must be refused in that case.
var ErrUnavailable = errors.New("transcript: no capture or transcription mechanism available")

// Source is the capture collaborator acquired by the engine for the
// duration of one attempt. Stop retains the text captured so far and must
// be safe to call more than once.
type Source interface {
	// Start begins capture. It reports an error when the underlying
	// mechanism refuses to initialize.
	Start() error

	// Stop ends capture, releasing resources while retaining text.
	Stop()

	// Text returns the accumulated permanent transcript. Interim
	// segments are never part of it.
	Text() string

	// Preview returns the permanent transcript plus any interim tail,
	// for live display only.
	Preview() string
}

// Capabilities describes the input mechanisms the client platform
// advertises.
type Capabilities struct {
	Speech bool `json:"speech"`
	Manual bool `json:"manual"`
}

// Select picks the best available source variant: continuous recognition
// when the platform advertises support, manual entry as the fallback, and
// ErrUnavailable when no input mechanism exists at all.
func Select(caps Capabilities, stream StreamOptions, onManualUpdate func(preview string)) (Source, error) {
	switch {
	case caps.Speech:
		return NewStreamSource(stream), nil
	case caps.Manual:
		return NewManualSource(onManualUpdate), nil
	default:
		return nil, ErrUnavailable
	}
}
