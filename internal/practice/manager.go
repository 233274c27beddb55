package practice

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/coder/websocket"

	"github.com/hanasu-app/hanasu/internal/domain"
	"github.com/hanasu-app/hanasu/internal/engine"
	"github.com/hanasu-app/hanasu/internal/plan"
	"github.com/hanasu-app/hanasu/internal/sequence"
	"github.com/hanasu-app/hanasu/internal/store"
	"github.com/hanasu-app/hanasu/internal/transcript"
)

// serverMessage is the outgoing WebSocket message shape.
type serverMessage struct {
	Type    string              `json:"type"`
	State   string              `json:"state,omitempty"`
	Prompt  *domain.Prompt      `json:"prompt,omitempty"`
	Display int                 `json:"display_s,omitempty"`
	Elapsed int                 `json:"elapsed_s,omitempty"`
	Preview string              `json:"preview,omitempty"`
	Result  *domain.ScoreResult `json:"result,omitempty"`
}

// Practice is one live practice session: the engine plus its capture
// bridge and the WebSocket currently attached to it.
type Practice struct {
	UserID    string
	SessionID string
	Engine    *engine.Session
	Bridge    *CaptureBridge
	Plan      *plan.Resolver

	mu   sync.Mutex
	conn *websocket.Conn
}

// Attach makes conn the delivery target for engine notifications. An
// earlier connection for the same tab is closed.
func (p *Practice) Attach(conn *websocket.Conn) {
	p.mu.Lock()
	old := p.conn
	p.conn = conn
	p.mu.Unlock()

	if old != nil && old != conn {
		_ = old.Close(websocket.StatusNormalClosure, "session replaced")
	}
}

// Detach clears the delivery target if conn is still current.
func (p *Practice) Detach(conn *websocket.Conn) {
	p.mu.Lock()
	if p.conn == conn {
		p.conn = nil
	}
	p.mu.Unlock()
}

// send delivers a message to the attached connection. Messages while no
// connection is attached are dropped; the client resyncs from a snapshot
// on reconnect.
func (p *Practice) send(msg serverMessage) {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal practice message", "error", err)
		return
	}
	if err := conn.Write(context.Background(), websocket.MessageText, data); err != nil {
		slog.Debug("practice message write failed", "user_id", p.UserID, "error", err)
	}
}

// sinkAdapter persists judged outcomes through the repository.
type sinkAdapter struct {
	repo store.Repository
}

func (a sinkAdapter) SaveScore(ctx context.Context, rec *domain.ScoreRecord) error {
	return a.repo.UpsertScore(ctx, rec)
}

// fixedIdentity pins the engine's identity to the user the connection
// authenticated as.
type fixedIdentity string

func (id fixedIdentity) CurrentUserID() string { return string(id) }

// Manager manages active practice sessions for users. Each browser tab
// gets its own session so two tabs never fight over one state machine.
type Manager struct {
	repo       store.Repository
	catalog    engine.Catalog
	normalizer transcript.Normalizer

	mu     sync.RWMutex
	active map[string]map[string]*Practice
}

// NewManager creates a session manager.
func NewManager(repo store.Repository, catalog engine.Catalog, normalizer transcript.Normalizer) *Manager {
	return &Manager{
		repo:       repo,
		catalog:    catalog,
		normalizer: normalizer,
		active:     make(map[string]map[string]*Practice),
	}
}

// GetActive returns the session for a user and tab, or nil.
func (m *Manager) GetActive(userID, sessionID string) *Practice {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sessions, ok := m.active[userID]; ok {
		return sessions[sessionID]
	}
	return nil
}

// Acquire returns the session for a user and tab, creating it on first
// use. The new session is seeded with the full catalog in sequential
// order.
func (m *Manager) Acquire(ctx context.Context, userID, sessionID string) (*Practice, error) {
	if p := m.GetActive(userID, sessionID); p != nil {
		return p, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if sessions, ok := m.active[userID]; ok {
		if p, ok := sessions[sessionID]; ok {
			return p, nil
		}
	}

	courseID := plan.DefaultCourse
	if user, err := m.repo.GetUser(ctx, userID); err != nil {
		slog.Warn("course lookup failed, using default", "user_id", userID, "error", err)
	} else if user != nil && user.CourseID != "" {
		courseID = user.CourseID
	}

	p := &Practice{UserID: userID, SessionID: sessionID}
	p.Plan = plan.NewResolver(plan.ForCourse(courseID))
	p.Bridge = NewCaptureBridge(transcript.StreamOptions{
		OnRestart: func() {
			recognitionRestarts.Inc()
			p.send(serverMessage{Type: "restart"})
		},
		OnUpdate:  func(preview string) { p.send(serverMessage{Type: "transcript", Preview: preview}) },
	})
	p.Engine = engine.New(engine.Deps{
		Sources:    p.Bridge,
		Sink:       sinkAdapter{repo: m.repo},
		Identity:   fixedIdentity(userID),
		Config:     p.Plan,
		Catalog:    m.catalog,
		Sequencer:  sequence.New(),
		Normalizer: m.normalizer,
	}, engine.Options{
		Hooks: engine.Hooks{
			OnState:  func(st domain.State) { p.send(serverMessage{Type: "state", State: st.String()}) },
			OnPrompt: func(prompt *domain.Prompt) { p.send(serverMessage{Type: "prompt", Prompt: prompt}) },
			OnTick: func(display, elapsed int) {
				p.send(serverMessage{Type: "tick", Display: display, Elapsed: elapsed})
			},
		},
	})

	if err := p.Engine.SetFilter(ctx, sequence.Filter{}, sequence.Sequential); err != nil {
		return nil, err
	}

	if _, ok := m.active[userID]; !ok {
		m.active[userID] = make(map[string]*Practice)
	}
	m.active[userID][sessionID] = p
	slog.Info("practice session created", "user_id", userID, "session_id", sessionID, "course", courseID)
	return p, nil
}

// Release tears down the session for a user and tab.
func (m *Manager) Release(userID, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, ok := m.active[userID]
	if !ok {
		return
	}
	p, ok := sessions[sessionID]
	if !ok {
		return
	}

	p.Engine.Close()
	delete(sessions, sessionID)
	if len(sessions) == 0 {
		delete(m.active, userID)
	}
	slog.Info("practice session released", "user_id", userID, "session_id", sessionID)
}

// CloseUser tears down all sessions for a user.
func (m *Manager) CloseUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, ok := m.active[userID]
	if !ok {
		return
	}
	for sid, p := range sessions {
		p.Engine.Close()
		slog.Info("practice session closed", "user_id", userID, "session_id", sid)
	}
	delete(m.active, userID)
}
