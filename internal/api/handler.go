// Package api provides HTTP handlers for the Parlo REST API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/okoval/parlo/internal/domain"
	"github.com/okoval/parlo/internal/practice"
	"github.com/okoval/parlo/internal/store"
)

// Handler serves the user/session/turn endpoints.
type Handler struct {
	repo   store.Repository
	engine *practice.Engine
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, engine *practice.Engine) *Handler {
	return &Handler{repo: repo, engine: engine}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// DomainError maps engine errors onto HTTP status codes.
func DomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnknownScene):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidReference):
		Error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrAlreadyClosed),
		errors.Is(err, domain.ErrSessionNotActive),
		errors.Is(err, domain.ErrAlreadySeeded):
		Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrGenerationUnavailable):
		Error(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrMalformedAnalysis):
		Error(w, http.StatusBadGateway, err.Error())
	default:
		Error(w, http.StatusInternalServerError, err.Error())
	}
}

// RegisterRoutes mounts the API endpoints on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/users", h.CreateUser)
	r.Get("/api/users/{userID}/sessions", h.UserSessions)
	r.Post("/api/sessions", h.StartSession)
	r.Post("/api/sessions/{sessionID}/turns", h.SubmitTurn)
	r.Delete("/api/sessions/{sessionID}", h.EndSession)
	r.Get("/api/sessions/{sessionID}/summary", h.Summary)
	r.Get("/api/sessions/{sessionID}/feedback", h.Feedback)
	r.Get("/api/catalog", h.Catalog)
	r.Get("/api/health", h.Health)
}

// CreateUser creates a new learner.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.repo.CreateUser(r.Context())
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusCreated, user)
}

// UserSessions lists a user's sessions, most recent first.
func (h *Handler) UserSessions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil {
		DomainError(w, err)
		return
	}
	if user == nil {
		Error(w, http.StatusNotFound, "user not found")
		return
	}

	sessions, err := h.repo.UserSessions(r.Context(), userID)
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

type startSessionRequest struct {
	UserID     string `json:"user_id"`
	TargetLang string `json:"target_lang"`
	NativeLang string `json:"native_lang"`
	Level      string `json:"level"`
	Scene      string `json:"scene"`
}

// StartSession opens a practice session and returns the opening message.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		Error(w, http.StatusBadRequest, "user_id is required")
		return
	}

	params, err := parseSessionParams(req)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.engine.StartSession(r.Context(), params)
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusCreated, result)
}

func parseSessionParams(req startSessionRequest) (domain.SessionParams, error) {
	scene, err := domain.ParseScene(req.Scene)
	if err != nil {
		return domain.SessionParams{}, err
	}
	level, err := domain.ParseLevel(req.Level)
	if err != nil {
		return domain.SessionParams{}, err
	}
	targetLang, err := domain.ParseLanguage(req.TargetLang)
	if err != nil {
		return domain.SessionParams{}, err
	}
	nativeLang, err := domain.ParseLanguage(req.NativeLang)
	if err != nil {
		return domain.SessionParams{}, err
	}

	return domain.SessionParams{
		UserID:     req.UserID,
		TargetLang: targetLang,
		NativeLang: nativeLang,
		Level:      level,
		Scene:      scene,
	}, nil
}

type turnRequest struct {
	Content string `json:"content"`
}

// SubmitTurn runs one conversation turn.
func (h *Handler) SubmitTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		Error(w, http.StatusBadRequest, "content is required")
		return
	}

	turn, err := h.engine.SubmitTurn(r.Context(), sessionID, req.Content)
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, turn)
}

// EndSession closes a session and returns its summary.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	summary, err := h.engine.EndSession(r.Context(), sessionID)
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, summary)
}

// Summary returns the persisted mistake summary for a session.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	summary, err := h.engine.Summary(r.Context(), sessionID)
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, summary)
}

// Feedback returns generated narrative feedback for a session.
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	feedback, err := h.engine.Feedback(r.Context(), sessionID)
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"feedback": feedback})
}

// Catalog lists supported scenes, levels and languages.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	scenes := make([]map[string]string, 0, len(domain.Scenes()))
	for _, scene := range domain.Scenes() {
		scenes = append(scenes, map[string]string{
			"name":        string(scene),
			"description": domain.SceneDescriptions[scene],
		})
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"scenes":    scenes,
		"levels":    domain.Levels(),
		"languages": domain.SupportedLanguages,
	})
}

// Health reports database connectivity.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		Error(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
