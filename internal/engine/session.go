// Package engine implements the practice session state machine. It
// sequences capture start/stop around a visual countdown, reconciles the
// live transcript against timer and cutoff rules, computes a score, and
// hands the outcome to the result sink.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hanasu-app/hanasu/internal/domain"
	"github.com/hanasu-app/hanasu/internal/scoring"
	"github.com/hanasu-app/hanasu/internal/sequence"
	"github.com/hanasu-app/hanasu/internal/timer"
	"github.com/hanasu-app/hanasu/internal/transcript"
)

var (
	// ErrInvalidTransition is returned when an action is requested from a
	// state that does not permit it.
	ErrInvalidTransition = errors.New("engine: invalid state transition")

	// ErrNoPrompt is returned when Start finds an empty prompt pool.
	ErrNoPrompt = errors.New("engine: no prompt available")

	// ErrIdentityMissing is returned by Judge when no user identity is
	// resolved; re-authentication is required before judging.
	ErrIdentityMissing = errors.New("engine: user identity not resolved")

	// ErrResultNotSaved marks a persistence failure after a successful
	// judge. The returned score is final; only the save failed.
	ErrResultNotSaved = errors.New("engine: result computed but not saved")
)

// DefaultCountdown is the fixed visual countdown preceding recording.
const DefaultCountdown = 3 * time.Second

// SourceFactory acquires a transcript source for one attempt. Acquisition
// fails when neither capture nor transcription can be initialized.
type SourceFactory interface {
	Acquire() (transcript.Source, error)
}

// ResultSink persists judged outcomes. Saves must be idempotent under
// retry: the same (user, prompt) pair overwrites.
type ResultSink interface {
	SaveScore(ctx context.Context, rec *domain.ScoreRecord) error
}

// Identity supplies the current user ID, or empty when unresolved.
type Identity interface {
	CurrentUserID() string
}

// ConfigResolver resolves the effective attempt configuration for a prompt
// level at Start time.
type ConfigResolver interface {
	Resolve(level string) domain.AttemptConfig
}

// Catalog supplies the full prompt list on demand.
type Catalog interface {
	Prompts(ctx context.Context) ([]*domain.Prompt, error)
}

// Hooks receive engine notifications for the transport layer. Hooks are
// invoked without the session lock held and must not call back into the
// session synchronously.
type Hooks struct {
	OnState  func(s domain.State)
	OnPrompt func(p *domain.Prompt)
	OnTick   func(display, elapsed int)
}

// Deps are the collaborators a session orchestrates.
type Deps struct {
	Sources    SourceFactory
	Sink       ResultSink
	Identity   Identity
	Config     ConfigResolver
	Catalog    Catalog
	Sequencer  *sequence.Sequencer
	Normalizer transcript.Normalizer
}

// Options tune session behavior. Zero values select production defaults.
type Options struct {
	Countdown    time.Duration
	TickInterval time.Duration
	Hooks        Hooks
}

// Session is the practice state machine: Idle → Countdown → Recording →
// Stopped → Result, looping back to Idle via Next or Retry. All state
// transitions are serialized under one mutex; asynchronous continuations
// (countdown expiry, timer ticks, cutoff) re-check state and attempt
// generation before acting.
type Session struct {
	deps Deps
	opts Options

	mu         sync.Mutex
	state      domain.State
	gen        int
	prompt     *domain.Prompt
	attempt    *domain.Attempt
	source     transcript.Source
	clock      *timer.Controller
	lastResult *domain.ScoreResult
}

// New creates a session in the Idle state.
func New(deps Deps, opts Options) *Session {
	if opts.Countdown <= 0 {
		opts.Countdown = DefaultCountdown
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if deps.Normalizer == nil {
		deps.Normalizer = transcript.IdentityNormalizer{}
	}
	return &Session{deps: deps, opts: opts, state: domain.StateIdle}
}

// Start begins a new attempt: resets attempt state, acquires the transcript
// source, and schedules the fixed visual countdown. Recording begins only
// after the countdown completes. Valid only from Idle; on acquisition
// failure the session stays Idle and Start remains enabled.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != domain.StateIdle {
		s.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, s.state)
	}

	if s.prompt == nil {
		s.prompt = s.deps.Sequencer.TakeNext()
	}
	if s.prompt == nil {
		s.mu.Unlock()
		return ErrNoPrompt
	}

	cfg := s.deps.Config.Resolve(s.prompt.Level)

	src, err := s.deps.Sources.Acquire()
	if err != nil {
		s.mu.Unlock()
		captureUnavailable.Inc()
		return fmt.Errorf("acquire capture: %w", err)
	}

	s.gen++
	gen := s.gen
	s.attempt = &domain.Attempt{
		ID:        uuid.NewString(),
		Prompt:    s.prompt,
		StartedAt: time.Now(),
		Config:    cfg,
	}
	s.source = src
	s.lastResult = nil
	s.state = domain.StateCountdown
	attemptID, promptKey := s.attempt.ID, s.prompt.Key()
	hooks := s.opts.Hooks
	time.AfterFunc(s.opts.Countdown, func() { s.beginRecording(gen) })
	s.mu.Unlock()

	attemptsStarted.Inc()
	slog.Info("attempt started", "attempt_id", attemptID, "prompt", promptKey,
		"limit_s", cfg.LimitSeconds, "force_cutoff", cfg.ForceCutoff)
	if hooks.OnState != nil {
		hooks.OnState(domain.StateCountdown)
	}
	return nil
}

// beginRecording fires when the countdown expires. It is a guarded
// resumption: a stale countdown (Stop/Close/Retry happened meanwhile) is a
// no-op.
func (s *Session) beginRecording(gen int) {
	s.mu.Lock()
	if s.gen != gen || s.state != domain.StateCountdown {
		s.mu.Unlock()
		return
	}

	if err := s.source.Start(); err != nil {
		// Capture refused after countdown: release and re-enable Start.
		s.releaseLocked()
		s.state = domain.StateIdle
		hooks := s.opts.Hooks
		s.mu.Unlock()

		slog.Warn("capture failed to start", "error", err)
		if hooks.OnState != nil {
			hooks.OnState(domain.StateIdle)
		}
		return
	}

	cfg := s.attempt.Config
	s.clock = timer.NewWithInterval(s.opts.TickInterval)
	s.clock.Start(cfg.LimitSeconds, cfg.ForceCutoff, timer.Hooks{
		OnTick:   func(elapsed int) { s.onTick(gen, elapsed) },
		OnCutoff: func() { s.autoStop(gen) },
	})
	s.state = domain.StateRecording
	hooks := s.opts.Hooks
	s.mu.Unlock()

	if hooks.OnState != nil {
		hooks.OnState(domain.StateRecording)
	}
}

func (s *Session) onTick(gen, elapsed int) {
	s.mu.Lock()
	if s.gen != gen || s.state != domain.StateRecording {
		s.mu.Unlock()
		return
	}
	s.attempt.ElapsedSeconds = elapsed
	cfg := s.attempt.Config
	display := timer.Display(cfg.Presentation, elapsed, cfg.LimitSeconds)
	hooks := s.opts.Hooks
	s.mu.Unlock()

	if hooks.OnTick != nil {
		hooks.OnTick(display, elapsed)
	}
}

// autoStop is the cutoff synthesized by the timer controller when the limit
// is reached with forced cutoff enabled.
func (s *Session) autoStop(gen int) {
	s.mu.Lock()
	if s.gen != gen || s.state != domain.StateRecording {
		s.mu.Unlock()
		return
	}
	s.stopLocked()
	hooks := s.opts.Hooks
	s.mu.Unlock()

	if hooks.OnState != nil {
		hooks.OnState(domain.StateStopped)
	}
}

// Stop ends capture while retaining the transcript captured so far. Valid
// from Recording; a second Stop is a no-op.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state == domain.StateStopped {
		s.mu.Unlock()
		return nil
	}
	if s.state != domain.StateRecording {
		s.mu.Unlock()
		return fmt.Errorf("%w: stop from %s", ErrInvalidTransition, s.state)
	}
	s.stopLocked()
	hooks := s.opts.Hooks
	s.mu.Unlock()

	if hooks.OnState != nil {
		hooks.OnState(domain.StateStopped)
	}
	return nil
}

// stopLocked releases the timer and capture resources and freezes the
// attempt transcript. Callers hold s.mu.
func (s *Session) stopLocked() {
	if s.clock != nil {
		s.clock.Stop()
		s.clock = nil
	}
	if s.source != nil {
		// The source clears its own intent flag first, so in-flight
		// recognition restarts become no-ops.
		s.source.Stop()
		s.attempt.TranscriptRaw = s.source.Text()
		s.source = nil
	}
	s.state = domain.StateStopped
}

// releaseLocked tears down attempt resources on every exit path.
func (s *Session) releaseLocked() {
	if s.clock != nil {
		s.clock.Stop()
		s.clock = nil
	}
	if s.source != nil {
		s.source.Stop()
		s.source = nil
	}
}

const transcriptLimit = 4000

// Judge computes the score from the frozen transcript and persists the
// outcome. Valid only from Stopped, and observable exactly once per
// attempt: a late asynchronous completion cannot re-enable it. The returned
// result is final even when persistence fails; a save failure is reported
// as a secondary ErrResultNotSaved alongside the result.
func (s *Session) Judge(ctx context.Context) (domain.ScoreResult, error) {
	s.mu.Lock()
	if s.state != domain.StateStopped {
		s.mu.Unlock()
		return domain.ScoreResult{}, fmt.Errorf("%w: judge from %s", ErrInvalidTransition, s.state)
	}

	userID := s.deps.Identity.CurrentUserID()
	if userID == "" {
		s.mu.Unlock()
		return domain.ScoreResult{}, ErrIdentityMissing
	}

	att := s.attempt
	att.TranscriptNormalized = s.deps.Normalizer.Normalize(att.TranscriptRaw)
	att.CharCount = transcript.CountChars(att.TranscriptNormalized)

	profile := scoring.ProfileFor(att.Config.LimitSeconds)
	res := scoring.Evaluate(att.ElapsedSeconds, att.CharCount, profile)

	s.state = domain.StateResult
	s.lastResult = &res
	rec := buildRecord(userID, att, res)
	hooks := s.opts.Hooks
	s.mu.Unlock()

	attemptsJudged.Inc()
	if !res.Passed {
		disqualifications.Inc()
	}
	if hooks.OnState != nil {
		hooks.OnState(domain.StateResult)
	}

	if err := s.deps.Sink.SaveScore(ctx, rec); err != nil {
		saveFailures.Inc()
		slog.Warn("score save failed", "user_id", userID, "theme_id", rec.ThemeID, "error", err)
		return res, fmt.Errorf("%w: %s", ErrResultNotSaved, err)
	}

	slog.Info("attempt judged", "user_id", userID, "theme_id", rec.ThemeID,
		"score", res.Score, "passed", res.Passed,
		"elapsed_s", att.ElapsedSeconds, "chars", att.CharCount)
	return res, nil
}

func buildRecord(userID string, att *domain.Attempt, res domain.ScoreResult) *domain.ScoreRecord {
	raw, hira := att.TranscriptRaw, att.TranscriptNormalized
	if !att.Config.ShowTranscript {
		raw, hira = "", ""
	}

	diag, err := json.Marshal(map[string]any{
		"attempt_id": att.ID,
		"setting": map[string]any{
			"maxTime":   att.Config.LimitSeconds,
			"timerType": string(att.Config.Presentation),
			"forceEnd":  att.Config.ForceCutoff,
		},
		"metrics": map[string]int{
			"seconds":   att.ElapsedSeconds,
			"charCount": att.CharCount,
		},
		"transcript": map[string]string{
			"raw":  truncate(raw, 1000),
			"hira": truncate(hira, 1000),
		},
	})
	if err != nil {
		diag = nil
	}

	return &domain.ScoreRecord{
		UserID:          userID,
		ThemeID:         att.Prompt.Key(),
		Level:           att.Prompt.Level,
		Type:            att.Prompt.Type,
		Sub:             att.Prompt.Sub,
		DisplayID:       att.Prompt.DisplayID,
		Score:           res.Score,
		IsPass:          res.Passed,
		DurationSeconds: att.ElapsedSeconds,
		CharCount:       att.CharCount,
		TranscriptRaw:   truncate(raw, transcriptLimit),
		TranscriptHira:  truncate(hira, transcriptLimit),
		Diagnostics:     string(diag),
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Next advances the sequencer and reinitializes with the next prompt.
// Valid only from Result.
func (s *Session) Next() (*domain.Prompt, error) {
	s.mu.Lock()
	if s.state != domain.StateResult {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: next from %s", ErrInvalidTransition, s.state)
	}
	s.prompt = s.deps.Sequencer.TakeNext()
	s.resetToIdleLocked()
	prompt := s.prompt
	hooks := s.opts.Hooks
	s.mu.Unlock()

	s.notifyIdle(hooks, prompt)
	return prompt, nil
}

// Retry reinitializes with the same prompt, without advancing the
// sequencer. Valid only from Result.
func (s *Session) Retry() error {
	s.mu.Lock()
	if s.state != domain.StateResult {
		s.mu.Unlock()
		return fmt.Errorf("%w: retry from %s", ErrInvalidTransition, s.state)
	}
	s.resetToIdleLocked()
	prompt := s.prompt
	hooks := s.opts.Hooks
	s.mu.Unlock()

	s.notifyIdle(hooks, prompt)
	return nil
}

func (s *Session) notifyIdle(hooks Hooks, prompt *domain.Prompt) {
	if hooks.OnState != nil {
		hooks.OnState(domain.StateIdle)
	}
	if hooks.OnPrompt != nil && prompt != nil {
		hooks.OnPrompt(prompt)
	}
}

// resetToIdleLocked bumps the attempt generation so that any continuation
// registered against the old attempt no-ops, and discards attempt state.
func (s *Session) resetToIdleLocked() {
	s.gen++
	s.releaseLocked()
	s.attempt = nil
	s.lastResult = nil
	s.state = domain.StateIdle
}

// SetFilter rebuilds the theme sequence when the level/type filter or
// ordering mode changes. A no-op when nothing changed, so Next/Retry never
// trigger a rebuild.
func (s *Session) SetFilter(ctx context.Context, f sequence.Filter, mode sequence.Mode) error {
	if s.deps.Sequencer.Filter() == f && s.deps.Sequencer.Mode() == mode && s.deps.Sequencer.Len() > 0 {
		return nil
	}

	catalog, err := s.deps.Catalog.Prompts(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	s.deps.Sequencer.Rebuild(catalog, f, mode)

	s.mu.Lock()
	s.prompt = s.deps.Sequencer.TakeNext()
	prompt := s.prompt
	hooks := s.opts.Hooks
	s.mu.Unlock()

	if hooks.OnPrompt != nil && prompt != nil {
		hooks.OnPrompt(prompt)
	}
	return nil
}

// Close tears the session down from any state, releasing all acquired
// resources.
func (s *Session) Close() {
	s.mu.Lock()
	s.gen++
	s.releaseLocked()
	s.attempt = nil
	s.lastResult = nil
	s.state = domain.StateIdle
	s.mu.Unlock()
}

// Snapshot is a read-only view of the session for status endpoints.
type Snapshot struct {
	State      string              `json:"state"`
	Prompt     *domain.Prompt      `json:"prompt,omitempty"`
	Elapsed    int                 `json:"elapsed_s"`
	Display    int                 `json:"display_s"`
	Transcript string              `json:"transcript,omitempty"`
	Result     *domain.ScoreResult `json:"result,omitempty"`
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{State: s.state.String(), Prompt: s.prompt, Result: s.lastResult}
	if s.attempt != nil {
		cfg := s.attempt.Config
		snap.Elapsed = s.attempt.ElapsedSeconds
		snap.Display = timer.Display(cfg.Presentation, snap.Elapsed, cfg.LimitSeconds)
		snap.Prompt = s.attempt.Prompt
	}
	switch {
	case s.source != nil:
		snap.Transcript = s.source.Preview()
	case s.attempt != nil:
		snap.Transcript = s.attempt.TranscriptRaw
	}
	return snap
}
