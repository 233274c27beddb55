package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hanasu-app/hanasu/internal/catalog"
	"github.com/hanasu-app/hanasu/internal/engine"
	"github.com/hanasu-app/hanasu/internal/identity"
	"github.com/hanasu-app/hanasu/internal/plan"
	"github.com/hanasu-app/hanasu/internal/practice"
	"github.com/hanasu-app/hanasu/internal/sequence"
	"github.com/hanasu-app/hanasu/internal/transcript"
)

// PracticeHandler handles practice-session endpoints.
type PracticeHandler struct {
	*Handler
}

// NewPracticeHandler creates a new practice handler.
func NewPracticeHandler(base *Handler) *PracticeHandler {
	return &PracticeHandler{Handler: base}
}

// RegisterRoutes registers practice routes.
func (h *PracticeHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.GetMe)
		r.Get("/config", h.GetConfig)
		r.Get("/themes", h.GetThemes)
		r.Get("/scores", h.ListScores)
		r.Get("/scores/{themeID}", h.GetScore)
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.PutSettings)
		r.Route("/practice", func(r chi.Router) {
			r.Get("/", h.GetPractice)
			r.Post("/start", h.Start)
			r.Post("/stop", h.Stop)
			r.Post("/judge", h.Judge)
			r.Post("/next", h.Next)
			r.Post("/retry", h.Retry)
			r.Post("/filter", h.SetFilter)
		})
	})
}

// session resolves the practice session for the request's user and tab.
func (h *PracticeHandler) session(w http.ResponseWriter, r *http.Request) *practice.Practice {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return nil
	}
	sessionID := identity.SessionIDFromContext(r.Context())

	p, err := h.mgr.Acquire(r.Context(), userID, sessionID)
	if err != nil {
		slog.Error("Failed to acquire practice session", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "session_unavailable")
		return nil
	}
	return p
}

// GetMe returns the current user's information.
func (h *PracticeHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil || user == nil {
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"user_id":   user.UserID,
		"username":  user.Username,
		"course_id": user.CourseID,
	})
}

// GetConfig returns the level/type vocabulary and the user's plan limits.
func (h *PracticeHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	p := h.session(w, r)
	if p == nil {
		return
	}

	levels := append(append([]string(nil), catalog.BaseLevels...),
		catalog.LevelTenSecond, catalog.LevelSchoolSixty, catalog.LevelInterview40)
	types := make(map[string][]string, len(levels))
	for _, level := range levels {
		types[level] = catalog.AllowedTypesForLevel(level)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"levels": levels,
		"types":  types,
		"limits": p.Plan.Limits(),
	})
}

// GetThemes returns the full theme catalog.
func (h *PracticeHandler) GetThemes(w http.ResponseWriter, r *http.Request) {
	prompts, err := h.repo.ListPrompts(r.Context())
	if err != nil {
		slog.Error("Failed to list themes", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load themes")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"themes": prompts})
}

// ListScores returns the user's score history, newest first.
func (h *PracticeHandler) ListScores(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	scores, err := h.repo.ListScores(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to list scores", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load scores")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"scores": scores})
}

// GetScore returns the user's score for one theme.
func (h *PracticeHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	themeID := chi.URLParam(r, "themeID")
	score, err := h.repo.GetScore(r.Context(), userID, themeID)
	if err != nil {
		slog.Error("Failed to get score", "error", err, "user_id", userID, "theme_id", themeID)
		Error(w, http.StatusInternalServerError, "failed to load score")
		return
	}
	if score == nil {
		Error(w, http.StatusNotFound, "no score for theme")
		return
	}
	JSON(w, http.StatusOK, score)
}

// GetSettings returns the user's practice settings.
func (h *PracticeHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	p := h.session(w, r)
	if p == nil {
		return
	}
	JSON(w, http.StatusOK, p.Plan.Settings())
}

// PutSettings replaces the user's practice settings. The change applies
// to the next Start; an in-flight attempt keeps its snapshot.
func (h *PracticeHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	p := h.session(w, r)
	if p == nil {
		return
	}

	var s plan.Settings
	if err := decodeJSON(r, &s); err != nil {
		Error(w, http.StatusBadRequest, "invalid settings payload")
		return
	}
	if s.TimerType != "countup" && s.TimerType != "countdown" {
		Error(w, http.StatusBadRequest, "timerType must be countup or countdown")
		return
	}
	if s.MaxTime <= 0 {
		Error(w, http.StatusBadRequest, "maxTime must be positive")
		return
	}

	p.Plan.SetSettings(s)
	JSON(w, http.StatusOK, p.Plan.Settings())
}

// GetPractice returns the current session snapshot.
func (h *PracticeHandler) GetPractice(w http.ResponseWriter, r *http.Request) {
	p := h.session(w, r)
	if p == nil {
		return
	}
	JSON(w, http.StatusOK, p.Engine.Snapshot())
}

// Start begins a new attempt with the fixed countdown.
func (h *PracticeHandler) Start(w http.ResponseWriter, r *http.Request) {
	p := h.session(w, r)
	if p == nil {
		return
	}

	if err := p.Engine.Start(r.Context()); err != nil {
		switch {
		case errors.Is(err, engine.ErrInvalidTransition):
			Error(w, http.StatusConflict, "practice already in progress")
		case errors.Is(err, engine.ErrNoPrompt):
			Error(w, http.StatusConflict, "no theme available for the active filter")
		case errors.Is(err, transcript.ErrUnavailable):
			Error(w, http.StatusConflict, "capture_unavailable")
		default:
			slog.Error("Failed to start attempt", "error", err, "user_id", p.UserID)
			Error(w, http.StatusInternalServerError, "failed to start")
		}
		return
	}
	JSON(w, http.StatusOK, p.Engine.Snapshot())
}

// Stop ends capture, retaining the transcript captured so far.
func (h *PracticeHandler) Stop(w http.ResponseWriter, r *http.Request) {
	p := h.session(w, r)
	if p == nil {
		return
	}

	if err := p.Engine.Stop(); err != nil {
		Error(w, http.StatusConflict, "not recording")
		return
	}
	JSON(w, http.StatusOK, p.Engine.Snapshot())
}

// Judge scores the frozen transcript and persists the outcome.
func (h *PracticeHandler) Judge(w http.ResponseWriter, r *http.Request) {
	p := h.session(w, r)
	if p == nil {
		return
	}

	res, err := p.Engine.Judge(r.Context())
	switch {
	case err == nil:
		JSON(w, http.StatusOK, map[string]interface{}{"result": res, "saved": true})
	case errors.Is(err, engine.ErrResultNotSaved):
		// The score is final; only persistence failed.
		JSON(w, http.StatusOK, map[string]interface{}{"result": res, "saved": false})
	case errors.Is(err, engine.ErrIdentityMissing):
		Error(w, http.StatusUnauthorized, "identity required to judge")
	case errors.Is(err, engine.ErrInvalidTransition):
		Error(w, http.StatusConflict, "nothing to judge")
	default:
		slog.Error("Failed to judge attempt", "error", err, "user_id", p.UserID)
		Error(w, http.StatusInternalServerError, "failed to judge")
	}
}

// Next advances to the following theme in the active order.
func (h *PracticeHandler) Next(w http.ResponseWriter, r *http.Request) {
	p := h.session(w, r)
	if p == nil {
		return
	}

	prompt, err := p.Engine.Next()
	if err != nil {
		Error(w, http.StatusConflict, "no result to advance from")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"prompt": prompt})
}

// Retry restarts the same theme without advancing the order.
func (h *PracticeHandler) Retry(w http.ResponseWriter, r *http.Request) {
	p := h.session(w, r)
	if p == nil {
		return
	}

	if err := p.Engine.Retry(); err != nil {
		Error(w, http.StatusConflict, "no result to retry from")
		return
	}
	JSON(w, http.StatusOK, p.Engine.Snapshot())
}

type filterRequest struct {
	Level string `json:"level"`
	Type  string `json:"type"`
	Mode  string `json:"mode"`
}

// SetFilter rebuilds the theme order for a new level/type filter or
// ordering mode.
func (h *PracticeHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	p := h.session(w, r)
	if p == nil {
		return
	}

	var req filterRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid filter payload")
		return
	}
	if !catalog.ValidFilter(req.Level, req.Type) {
		Error(w, http.StatusBadRequest, "type does not belong to level")
		return
	}

	mode := sequence.Sequential
	if req.Mode == string(sequence.Shuffled) {
		mode = sequence.Shuffled
	}

	if err := p.Engine.SetFilter(r.Context(), sequence.Filter{Level: req.Level, Type: req.Type}, mode); err != nil {
		slog.Error("Failed to rebuild theme order", "error", err, "user_id", p.UserID)
		Error(w, http.StatusInternalServerError, "failed to apply filter")
		return
	}
	JSON(w, http.StatusOK, p.Engine.Snapshot())
}
