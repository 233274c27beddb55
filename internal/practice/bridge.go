// Package practice hosts live practice sessions over WebSocket, keyed by
// user and tab.
package practice

import (
	"sync"

	"github.com/hanasu-app/hanasu/internal/transcript"
)

// CaptureBridge connects the engine's capture lifecycle to the client's
// recognizer. The client advertises its input mechanisms in the hello
// message; each attempt acquires a fresh source matching them, and relayed
// recognition events are routed to whichever source is current.
type CaptureBridge struct {
	mu      sync.Mutex
	caps    transcript.Capabilities
	capsSet bool
	opts    transcript.StreamOptions
	current transcript.Source
}

// NewCaptureBridge creates a bridge. The stream options carry the restart
// and preview callbacks for the transport.
func NewCaptureBridge(opts transcript.StreamOptions) *CaptureBridge {
	return &CaptureBridge{opts: opts}
}

// SetCapabilities records the input mechanisms the client advertised.
func (b *CaptureBridge) SetCapabilities(caps transcript.Capabilities) {
	b.mu.Lock()
	b.caps = caps
	b.capsSet = true
	b.mu.Unlock()
}

// Acquire returns a fresh source for one attempt. It fails until the
// client's hello has arrived, and when the hello advertised no input
// mechanism at all.
func (b *CaptureBridge) Acquire() (transcript.Source, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.capsSet {
		return nil, transcript.ErrUnavailable
	}
	src, err := transcript.Select(b.caps, b.opts, b.opts.OnUpdate)
	if err != nil {
		return nil, err
	}
	b.current = src
	return src, nil
}

func (b *CaptureBridge) stream() *transcript.StreamSource {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.current.(*transcript.StreamSource); ok {
		return s
	}
	return nil
}

func (b *CaptureBridge) manual() *transcript.ManualSource {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.current.(*transcript.ManualSource); ok {
		return m
	}
	return nil
}

// FeedFinal relays a finalized recognition segment.
func (b *CaptureBridge) FeedFinal(text string) {
	if s := b.stream(); s != nil {
		s.FeedFinal(text)
	}
}

// FeedInterim relays an interim recognition segment.
func (b *CaptureBridge) FeedInterim(text string) {
	if s := b.stream(); s != nil {
		s.FeedInterim(text)
	}
}

// RecognitionError relays a recognizer error reported by the client.
func (b *CaptureBridge) RecognitionError(reason string) {
	if s := b.stream(); s != nil {
		s.RecognitionError(reason)
	}
}

// RecognitionEnded relays the client's recognizer terminating on its own.
func (b *CaptureBridge) RecognitionEnded() {
	if s := b.stream(); s != nil {
		s.RecognitionEnded()
	}
}

// SetManualText relays the manual entry buffer's current value.
func (b *CaptureBridge) SetManualText(text string) {
	if m := b.manual(); m != nil {
		m.SetText(text)
	}
}
