package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/okoval/parlo/internal/domain"
	"github.com/okoval/parlo/internal/llm"
	"github.com/okoval/parlo/internal/practice"
	"github.com/okoval/parlo/internal/store"
)

type scriptedProvider struct {
	replies []string
}

func (p *scriptedProvider) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	reply := p.replies[0]
	if len(p.replies) > 1 {
		p.replies = p.replies[1:]
	}
	return &llm.CompletionResponse{Content: reply, FinishReason: "stop"}, nil
}

func newTestRouter(t *testing.T, provider llm.Provider) (chi.Router, store.Repository) {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "parlo.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	engine := practice.NewEngine(repo, provider, nil, 10)
	handler := NewHandler(repo, engine)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, repo
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusNotFound, "missing")

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got["error"] != "missing" {
		t.Errorf("Expected error=missing, got %v", got["error"])
	}
}

func TestCreateUserEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, &scriptedProvider{replies: []string{"Bonjour !"}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/users", nil))

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}
	var user domain.User
	if err := json.NewDecoder(w.Body).Decode(&user); err != nil {
		t.Fatalf("Failed to decode user: %v", err)
	}
	if user.ID == "" {
		t.Error("Expected a non-empty user id")
	}
}

func startSessionVia(t *testing.T, r chi.Router, userID string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"user_id":     userID,
		"target_lang": "French",
		"native_lang": "English",
		"level":       "beginner",
		"scene":       "restaurant",
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewReader(body)))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var result struct {
		Session domain.Session `json:"session"`
		Opening string         `json:"opening"`
	}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode start result: %v", err)
	}
	if result.Opening == "" {
		t.Error("Expected a non-empty opening")
	}
	return result.Session.ID
}

func TestSessionLifecycleEndpoints(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		"Bonjour, bienvenue !",
		"Très bien !\n" + domain.CorrectionsMarker + "\nsuis aller :: suis allé :: grammar :: 2",
	}}
	r, repo := newTestRouter(t, provider)

	user, err := repo.CreateUser(context.Background())
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	sessionID := startSessionVia(t, r, user.ID)

	// Submit a turn.
	body, _ := json.Marshal(map[string]string{"content": "Je suis aller à la restaurant hier."})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sessions/"+sessionID+"/turns", bytes.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var turn practice.TurnResult
	if err := json.NewDecoder(w.Body).Decode(&turn); err != nil {
		t.Fatalf("Failed to decode turn: %v", err)
	}
	if len(turn.Mistakes) != 1 {
		t.Errorf("Expected 1 persisted mistake, got %d", len(turn.Mistakes))
	}

	// Close the session.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+sessionID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on close, got %d", w.Code)
	}
	var summary domain.SessionSummary
	if err := json.NewDecoder(w.Body).Decode(&summary); err != nil {
		t.Fatalf("Failed to decode summary: %v", err)
	}
	if summary.MistakeCount != 1 {
		t.Errorf("Expected 1 mistake in summary, got %d", summary.MistakeCount)
	}

	// A second close reports the conflict.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+sessionID, nil))
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 on double close, got %d", w.Code)
	}
}

func TestStartSession_UnknownScene(t *testing.T) {
	r, repo := newTestRouter(t, &scriptedProvider{replies: []string{"x"}})

	user, err := repo.CreateUser(context.Background())
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	body, _ := json.Marshal(map[string]string{
		"user_id":     user.ID,
		"target_lang": "French",
		"native_lang": "English",
		"level":       "beginner",
		"scene":       "spaceship",
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewReader(body)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestStartSession_UnknownUser(t *testing.T) {
	r, _ := newTestRouter(t, &scriptedProvider{replies: []string{"x"}})

	body, _ := json.Marshal(map[string]string{
		"user_id":     "ghost",
		"target_lang": "French",
		"native_lang": "English",
		"level":       "beginner",
		"scene":       "restaurant",
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewReader(body)))
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", w.Code)
	}
}

func TestCatalogEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, &scriptedProvider{replies: []string{"x"}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var catalog struct {
		Scenes    []map[string]string `json:"scenes"`
		Levels    []string            `json:"levels"`
		Languages []string            `json:"languages"`
	}
	if err := json.NewDecoder(w.Body).Decode(&catalog); err != nil {
		t.Fatalf("Failed to decode catalog: %v", err)
	}
	if len(catalog.Scenes) != 8 {
		t.Errorf("Expected 8 scenes, got %d", len(catalog.Scenes))
	}
	if len(catalog.Levels) != 3 {
		t.Errorf("Expected 3 levels, got %d", len(catalog.Levels))
	}
	if len(catalog.Languages) != 15 {
		t.Errorf("Expected 15 languages, got %d", len(catalog.Languages))
	}
}

func TestUserSessionsEndpoint(t *testing.T) {
	r, repo := newTestRouter(t, &scriptedProvider{replies: []string{"Bonjour !"}})

	user, err := repo.CreateUser(context.Background())
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	startSessionVia(t, r, user.ID)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/"+user.ID+"/sessions", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var got struct {
		Sessions []domain.Session `json:"sessions"`
	}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode sessions: %v", err)
	}
	if len(got.Sessions) != 1 {
		t.Errorf("Expected 1 session, got %d", len(got.Sessions))
	}
}
