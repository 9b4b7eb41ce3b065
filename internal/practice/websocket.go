package practice

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/okoval/parlo/internal/domain"
)

// WebSocketHandler drives a live conversation over one socket per active
// session: turn frames in, reply-with-corrections frames out.
type WebSocketHandler struct {
	engine        *Engine
	allowedOrigin string
	isDev         bool
	turnTimeout   time.Duration
}

// NewWebSocketHandler creates a new WebSocket conversation handler.
func NewWebSocketHandler(engine *Engine, allowedOrigin string, isDev bool, turnTimeout time.Duration) *WebSocketHandler {
	if turnTimeout <= 0 {
		turnTimeout = 60 * time.Second
	}
	return &WebSocketHandler{
		engine:        engine,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		turnTimeout:   turnTimeout,
	}
}

// wsMessage represents an inbound WebSocket frame.
type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	slog.Info("WebSocket conversation request", "session_id", sessionID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "conversation ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.conversationLoop(ctx, ws, sessionID)
	slog.Info("WebSocket conversation ended", "session_id", sessionID)
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

func (h *WebSocketHandler) conversationLoop(ctx context.Context, ws *websocket.Conn, sessionID string) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "session_id", sessionID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "session_id", sessionID)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.writeJSON(ws, map[string]string{"type": "error", "error": "invalid frame"})
			continue
		}

		switch msg.Type {
		case "turn":
			h.handleTurn(ctx, ws, sessionID, msg.Content)
		case "end":
			summary, err := h.engine.EndSession(ctx, sessionID)
			if err != nil {
				h.writeError(ws, err)
				continue
			}
			h.writeJSON(ws, map[string]any{"type": "summary", "summary": summary})
			return
		case "ping":
			h.writeJSON(ws, map[string]string{"type": "pong"})
		default:
			h.writeJSON(ws, map[string]string{"type": "error", "error": "unknown frame type"})
		}
	}
}

func (h *WebSocketHandler) handleTurn(ctx context.Context, ws *websocket.Conn, sessionID, utterance string) {
	turnCtx, cancel := context.WithTimeout(ctx, h.turnTimeout)
	defer cancel()

	turn, err := h.engine.SubmitTurn(turnCtx, sessionID, utterance)
	if err != nil {
		h.writeError(ws, err)
		return
	}

	h.writeJSON(ws, map[string]any{
		"type":               "reply",
		"content":            turn.Reply,
		"corrections":        turn.Corrections,
		"persistence_errors": turn.PersistenceErrors,
	})
}

func (h *WebSocketHandler) writeError(ws *websocket.Conn, err error) {
	code := "internal"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		code = "not_found"
	case errors.Is(err, domain.ErrSessionNotActive):
		code = "session_not_active"
	case errors.Is(err, domain.ErrAlreadyClosed):
		code = "already_closed"
	case errors.Is(err, domain.ErrGenerationUnavailable):
		code = "generation_unavailable"
	case errors.Is(err, domain.ErrMalformedAnalysis):
		code = "malformed_analysis"
	}
	h.writeJSON(ws, map[string]string{"type": "error", "error": code, "detail": err.Error()})
}

func (h *WebSocketHandler) writeJSON(ws *websocket.Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal websocket frame", "error", err)
		return
	}
	if err := ws.Write(context.Background(), websocket.MessageText, data); err != nil {
		slog.Debug("WebSocket write error", "error", err)
	}
}
