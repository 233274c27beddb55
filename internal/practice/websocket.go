package practice

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/hanasu-app/hanasu/internal/identity"
	"github.com/hanasu-app/hanasu/internal/store"
	"github.com/hanasu-app/hanasu/internal/transcript"
)

// WebSocketHandler handles the practice channel: recognition events flow
// up from the client, state and timer notifications flow down.
type WebSocketHandler struct {
	repo          store.Repository
	mgr           *Manager
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(repo store.Repository, mgr *Manager, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		repo:          repo,
		mgr:           mgr,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// clientMessage is the incoming WebSocket message shape.
type clientMessage struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Reason string `json:"reason,omitempty"`
	Speech bool   `json:"speech,omitempty"`
	Manual bool   `json:"manual,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	slog.Info("practice channel request", "user_id", userID, "session_id", sessionID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	p, err := h.mgr.Acquire(r.Context(), userID, sessionID)
	if err != nil {
		slog.Error("Failed to acquire practice session", "error", err, "user_id", userID)
		if writeErr := h.writeJSON(ws, map[string]string{"error": "session_unavailable"}); writeErr != nil {
			slog.Debug("Failed to send session_unavailable error", "error", writeErr)
		}
		return
	}

	p.Attach(ws)
	defer p.Detach(ws)

	// Resync the client with the current view on (re)connect.
	snap := p.Engine.Snapshot()
	p.send(serverMessage{Type: "state", State: snap.State, Prompt: snap.Prompt,
		Display: snap.Display, Elapsed: snap.Elapsed, Preview: snap.Transcript, Result: snap.Result})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.readLoop(ctx, ws, p)
	slog.Info("practice channel closed", "user_id", userID, "session_id", sessionID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, p *Practice) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", p.UserID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", p.UserID)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Debug("malformed practice message dropped", "user_id", p.UserID, "error", err)
			continue
		}

		switch msg.Type {
		case "hello":
			p.Bridge.SetCapabilities(transcript.Capabilities{Speech: msg.Speech, Manual: msg.Manual})
		case "final":
			p.Bridge.FeedFinal(msg.Text)
		case "interim":
			p.Bridge.FeedInterim(msg.Text)
		case "error":
			p.Bridge.RecognitionError(msg.Reason)
		case "end":
			p.Bridge.RecognitionEnded()
		case "manual":
			p.Bridge.SetManualText(msg.Text)
		case "ping":
			if err := h.writeJSON(ws, map[string]string{"type": "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
		}

		// Update last seen asynchronously with timeout.
		go func() {
			updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.repo.UpdateLastSeen(updateCtx, p.UserID, time.Now()); err != nil {
				slog.Warn("Failed to update last seen", "error", err)
			}
		}()
	}
}

func (h *WebSocketHandler) writeJSON(ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(context.Background(), websocket.MessageText, data)
}
