package transcript

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultRestartDelay is the pause before asking the client to restart
// recognition after a spontaneous error or end.
const DefaultRestartDelay = 50 * time.Millisecond

type streamState int

const (
	streamStopped streamState = iota
	streamListening
	streamRestarting
)

// StreamSource adapts continuous recognition relayed by the client. The
// recognizer may terminate or error transiently while the attempt is still
// logically recording; the adapter absorbs those and requests a restart
// after a short delay for as long as the session's intent flag holds.
//
// Finalized segments are merged onto the accumulated permanent text;
// interim text only replaces the display tail.
type StreamSource struct {
	mu          sync.Mutex
	state       streamState
	keepRunning bool
	gen         int // invalidates in-flight restart timers
	finalText   string
	interim     string
	restarts    int

	restartDelay time.Duration
	onRestart    func() // ask the client to restart recognition
	onUpdate     func(preview string)
}

// StreamOptions configures a StreamSource. Zero values select defaults.
type StreamOptions struct {
	RestartDelay time.Duration
	OnRestart    func()
	OnUpdate     func(preview string)
}

// NewStreamSource creates a stream-backed source.
func NewStreamSource(opts StreamOptions) *StreamSource {
	if opts.RestartDelay <= 0 {
		opts.RestartDelay = DefaultRestartDelay
	}
	return &StreamSource{
		restartDelay: opts.RestartDelay,
		onRestart:    opts.OnRestart,
		onUpdate:     opts.OnUpdate,
	}
}

// Start marks the source as listening. The client owns the actual
// recognizer; segments arrive via FeedFinal/FeedInterim.
func (s *StreamSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keepRunning = true
	s.state = streamListening
	return nil
}

// Stop clears the intent flag first so that any in-flight restart timer
// becomes a no-op, then releases the listening state. The accumulated text
// is retained. Safe to call repeatedly.
func (s *StreamSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keepRunning = false
	s.gen++
	s.state = streamStopped
	s.interim = ""
}

// FeedFinal appends a finalized segment to the permanent transcript.
// Segments arriving after Stop are dropped.
func (s *StreamSource) FeedFinal(text string) {
	s.mu.Lock()
	if s.state == streamStopped {
		s.mu.Unlock()
		return
	}
	s.finalText += text
	s.interim = ""
	preview, cb := s.finalText, s.onUpdate
	s.mu.Unlock()

	if cb != nil {
		cb(preview)
	}
}

// FeedInterim replaces the interim display tail. Interim text never joins
// the permanent transcript.
func (s *StreamSource) FeedInterim(text string) {
	s.mu.Lock()
	if s.state == streamStopped {
		s.mu.Unlock()
		return
	}
	s.interim = text
	preview, cb := s.finalText+s.interim, s.onUpdate
	s.mu.Unlock()

	if cb != nil {
		cb(preview)
	}
}

// RecognitionError handles a spontaneous recognizer error.
func (s *StreamSource) RecognitionError(reason string) {
	slog.Debug("recognition error", "reason", reason)
	s.scheduleRestart()
}

// RecognitionEnded handles the recognizer terminating on its own (network
// blip, silence timeout).
func (s *StreamSource) RecognitionEnded() {
	s.scheduleRestart()
}

func (s *StreamSource) scheduleRestart() {
	s.mu.Lock()
	if !s.keepRunning {
		s.mu.Unlock()
		return
	}
	s.state = streamRestarting
	gen := s.gen
	delay := s.restartDelay
	s.mu.Unlock()

	time.AfterFunc(delay, func() {
		s.mu.Lock()
		// Guarded resumption: a restart timer that outlives Stop (or a
		// newer restart cycle) must not act.
		if !s.keepRunning || s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.state = streamListening
		s.restarts++
		cb := s.onRestart
		s.mu.Unlock()

		if cb != nil {
			cb()
		}
	})
}

// Text returns the accumulated permanent transcript.
func (s *StreamSource) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalText
}

// Preview returns the permanent transcript plus the interim tail.
func (s *StreamSource) Preview() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalText + s.interim
}

// Restarts reports how many times recognition was restarted during this
// attempt.
func (s *StreamSource) Restarts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restarts
}
