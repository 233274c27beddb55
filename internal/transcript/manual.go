package transcript

import (
	"sync"
)

// ManualSource emulates transcription with an on-screen text field on
// platforms without a dictation surface. The buffer's current value stands
// in for the live transcript.
type ManualSource struct {
	mu       sync.Mutex
	buf      string
	running  bool
	onUpdate func(preview string)
}

// NewManualSource creates a manual-entry source.
func NewManualSource(onUpdate func(preview string)) *ManualSource {
	return &ManualSource{onUpdate: onUpdate}
}

// Start begins accepting buffer updates.
func (m *ManualSource) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
	return nil
}

// Stop freezes the buffer. The text typed so far is retained.
func (m *ManualSource) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
}

// SetText replaces the buffer with the field's current value. Updates after
// Stop are dropped.
func (m *ManualSource) SetText(text string) {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.buf = text
	cb := m.onUpdate
	m.mu.Unlock()

	if cb != nil {
		cb(text)
	}
}

// Text returns the buffer contents.
func (m *ManualSource) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf
}

// Preview returns the buffer contents.
func (m *ManualSource) Preview() string {
	return m.Text()
}
