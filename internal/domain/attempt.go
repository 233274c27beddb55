package domain

import (
	"time"
)

// State is the practice session state.
type State int

const (
	StateIdle State = iota
	StateCountdown
	StateRecording
	StateStopped
	StateResult
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCountdown:
		return "countdown"
	case StateRecording:
		return "recording"
	case StateStopped:
		return "stopped"
	case StateResult:
		return "result"
	default:
		return "unknown"
	}
}

// TimerPresentation selects how elapsed time is rendered to the learner.
type TimerPresentation string

const (
	CountUp   TimerPresentation = "countup"
	CountDown TimerPresentation = "countdown"
)

// AttemptConfig is the configuration snapshot resolved once at Start and
// fixed for the duration of one attempt. Resolving it up front keeps a
// mid-attempt settings change from corrupting an in-flight attempt.
type AttemptConfig struct {
	LimitSeconds   int
	Presentation   TimerPresentation
	ForceCutoff    bool
	ShowTranscript bool
}

// Attempt is the ephemeral state of one start→judge cycle against a single
// prompt. It is owned exclusively by the session state machine: created on
// Start, mutated by timer ticks and transcript capture, discarded on Retry
// or replaced on Next.
type Attempt struct {
	ID                   string
	Prompt               *Prompt
	StartedAt            time.Time
	ElapsedSeconds       int
	TranscriptRaw        string
	TranscriptNormalized string
	CharCount            int
	Config               AttemptConfig
}
