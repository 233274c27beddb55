// Package timer drives once-per-second elapsed-time accounting for a
// recording attempt and enforces the optional forced cutoff.
package timer

import (
	"sync"
	"time"

	"github.com/hanasu-app/hanasu/internal/domain"
)

// Hooks receive timer events. OnTick fires once per interval with the new
// elapsed value; OnCutoff fires instead of further ticking when the limit
// is reached with forced cutoff enabled.
type Hooks struct {
	OnTick   func(elapsed int)
	OnCutoff func()
}

// Controller ticks once per second of wall-clock time while an attempt is
// recording. Limit and cutoff policy are fixed at Start for the lifetime of
// one controller; a new attempt gets a new controller.
type Controller struct {
	interval time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	stopped bool
}

// New creates a controller ticking at one-second wall-clock intervals.
func New() *Controller {
	return NewWithInterval(time.Second)
}

// NewWithInterval creates a controller with a custom tick interval.
func NewWithInterval(interval time.Duration) *Controller {
	return &Controller{interval: interval, stop: make(chan struct{})}
}

// Start begins ticking. On each tick the elapsed counter increments and
// OnTick fires; when elapsed reaches limit with forceCutoff set, OnCutoff
// fires once and ticking ends. Without forced cutoff, ticking continues
// unconstrained past the limit.
func (c *Controller) Start(limit int, forceCutoff bool, h Hooks) {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		elapsed := 0
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				elapsed++
				if h.OnTick != nil {
					h.OnTick(elapsed)
				}
				if elapsed >= limit && forceCutoff {
					if h.OnCutoff != nil {
						h.OnCutoff()
					}
					return
				}
			}
		}
	}()
}

// Stop halts ticking. Safe to call more than once.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	close(c.stop)
}

// Display renders elapsed seconds under the given presentation: CountUp
// shows elapsed, CountDown shows the remaining time floored at zero.
func Display(p domain.TimerPresentation, elapsed, limit int) int {
	if p == domain.CountDown {
		if remaining := limit - elapsed; remaining > 0 {
			return remaining
		}
		return 0
	}
	return elapsed
}
