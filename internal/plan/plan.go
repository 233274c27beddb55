// Package plan resolves course entitlements and learner settings into the
// effective attempt configuration. Resolution happens once per Start; the
// resulting snapshot is fixed for the attempt.
package plan

import (
	"sync"

	"github.com/hanasu-app/hanasu/internal/catalog"
	"github.com/hanasu-app/hanasu/internal/domain"
)

// DefaultCourse is the course assigned when no plan is known.
const DefaultCourse = "free"

// Limits are the per-course practice entitlements.
type Limits struct {
	DurationOptions    []int `json:"durationOptions"`
	DefaultDuration    int   `json:"defaultDuration"`
	ForceCutoff        bool  `json:"forceCutoff"`
	LockForceCutoff    bool  `json:"lockForceCutoff"`
	AllowTranscription bool  `json:"allowTranscription"`
}

// ForCourse returns the limits for a course. Pro courses are fully
// unlocked; the free tier pins short durations and the forced cutoff.
func ForCourse(courseID string) Limits {
	switch courseID {
	case "pro", "admin", "owner":
		return Limits{
			DurationOptions:    []int{10, 40, 60, 90, 120},
			DefaultDuration:    60,
			AllowTranscription: true,
		}
	case "standard":
		return Limits{
			DurationOptions:    []int{10, 40, 60, 90},
			DefaultDuration:    60,
			AllowTranscription: true,
		}
	default: // free tier
		return Limits{
			DurationOptions:    []int{10, 60},
			DefaultDuration:    60,
			ForceCutoff:        true,
			LockForceCutoff:    true,
			AllowTranscription: true,
		}
	}
}

// Settings are the learner's saved practice preferences.
type Settings struct {
	MaxTime    int    `json:"maxTime"`
	TimerType  string `json:"timerType"`  // "countup" | "countdown"
	ForceEnd   string `json:"forceEnd"`   // "on" | "off"
	Transcript string `json:"transcript"` // "on" | "off"
}

// DefaultSettings mirrors the product defaults.
func DefaultSettings() Settings {
	return Settings{MaxTime: 60, TimerType: "countup", ForceEnd: "on", Transcript: "on"}
}

// Resolver combines course limits with the learner's current settings into
// an attempt configuration. It implements the engine's ConfigResolver.
type Resolver struct {
	mu       sync.RWMutex
	limits   Limits
	settings Settings
}

// NewResolver creates a resolver with the given limits and default
// settings.
func NewResolver(limits Limits) *Resolver {
	return &Resolver{limits: limits, settings: DefaultSettings()}
}

// SetSettings replaces the learner settings used by future Starts.
// In-flight attempts keep their snapshot.
func (r *Resolver) SetSettings(s Settings) {
	r.mu.Lock()
	r.settings = s
	r.mu.Unlock()
}

// Settings returns the current learner settings.
func (r *Resolver) Settings() Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

// Limits returns the course limits.
func (r *Resolver) Limits() Limits {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limits
}

// Resolve produces the attempt configuration for a prompt level. Special
// levels impose their fixed duration; the result is always coerced to an
// entitled duration option.
func (r *Resolver) Resolve(level string) domain.AttemptConfig {
	r.mu.RLock()
	s, lim := r.settings, r.limits
	r.mu.RUnlock()

	want := s.MaxTime
	if want <= 0 {
		want = lim.DefaultDuration
	}
	if fixed, ok := catalog.DurationForLevel(level); ok {
		want = fixed
	}
	limit := CoerceDuration(want, lim.DurationOptions)

	presentation := domain.CountUp
	if s.TimerType == string(domain.CountDown) {
		presentation = domain.CountDown
	}

	force := s.ForceEnd != "off"
	if lim.LockForceCutoff {
		force = lim.ForceCutoff
	}

	return domain.AttemptConfig{
		LimitSeconds:   limit,
		Presentation:   presentation,
		ForceCutoff:    force,
		ShowTranscript: s.Transcript != "off" && lim.AllowTranscription,
	}
}

// CoerceDuration clamps a requested duration to the nearest entitled
// option. With no options, the request passes through.
func CoerceDuration(want int, options []int) int {
	if len(options) == 0 {
		return want
	}
	best := options[0]
	for _, opt := range options[1:] {
		if abs(opt-want) < abs(best-want) {
			best = opt
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
