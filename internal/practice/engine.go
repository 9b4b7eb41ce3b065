// Package practice owns the session lifecycle: it opens sessions, drives
// turns through the analyzer, persists mistakes, and closes sessions with a
// summary. Sessions move Created -> Active -> Closed; Closed is terminal.
package practice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/okoval/parlo/internal/analyzer"
	"github.com/okoval/parlo/internal/domain"
	"github.com/okoval/parlo/internal/llm"
	"github.com/okoval/parlo/internal/prompt"
	"github.com/okoval/parlo/internal/store"
	"github.com/okoval/parlo/internal/transcript"
)

// Engine orchestrates practice sessions. Each active session owns an
// independent memory window for its lifetime; windows are never shared.
type Engine struct {
	repo        store.Repository
	analyzer    *analyzer.Analyzer
	provider    llm.Provider
	transcripts *transcript.Logger
	windowSize  int

	mu     sync.Mutex
	active map[string]*activeSession
}

// activeSession is the working state of one Active session.
type activeSession struct {
	mu      sync.Mutex // serializes turns within the session
	session *domain.Session
	window  *domain.MemoryWindow
}

// NewEngine creates the orchestrator. windowSize caps the retained
// non-pinned turns per session's memory window.
func NewEngine(repo store.Repository, provider llm.Provider, transcripts *transcript.Logger, windowSize int) *Engine {
	return &Engine{
		repo:        repo,
		analyzer:    analyzer.New(provider),
		provider:    provider,
		transcripts: transcripts,
		windowSize:  windowSize,
		active:      make(map[string]*activeSession),
	}
}

// StartResult is the outcome of starting a session.
type StartResult struct {
	Session *domain.Session `json:"session"`
	Opening string          `json:"opening"`
}

// StartSession creates a session, builds and seeds its scene prompt, and
// asks the generation service for the opening message. If any step after
// session creation fails, the session is closed immediately rather than
// left open with no system prompt.
func (e *Engine) StartSession(ctx context.Context, params domain.SessionParams) (*StartResult, error) {
	session, err := e.repo.CreateSession(ctx, params)
	if err != nil {
		return nil, err
	}

	systemPrompt, err := prompt.Build(params.Scene, params.TargetLang, params.NativeLang, params.Level)
	if err != nil {
		e.abandon(ctx, session.ID)
		return nil, err
	}

	window := domain.NewMemoryWindow(e.windowSize)
	if err := window.Seed(systemPrompt); err != nil {
		e.abandon(ctx, session.ID)
		return nil, err
	}

	opening, err := e.analyzer.Opening(ctx, window)
	if err != nil {
		e.abandon(ctx, session.ID)
		return nil, err
	}

	e.mu.Lock()
	e.active[session.ID] = &activeSession{session: session, window: window}
	e.mu.Unlock()

	e.logTurn(session.ID, domain.RoleAssistant, opening, 0)
	slog.Info("Session started",
		"session_id", session.ID, "user_id", session.UserID,
		"scene", session.Scene, "target_lang", session.TargetLang, "level", session.Level)

	return &StartResult{Session: session, Opening: opening}, nil
}

// abandon closes a session that failed to become Active. Best effort: the
// original start error is what the caller needs to see.
func (e *Engine) abandon(ctx context.Context, sessionID string) {
	if err := e.repo.CloseSession(ctx, sessionID, time.Now()); err != nil {
		slog.Error("Failed to close abandoned session", "session_id", sessionID, "error", err)
	}
}

// TurnResult is the outcome of one submitted turn. PersistenceErrors report
// mistake records that could not be stored; the reply is still surfaced.
type TurnResult struct {
	Reply             string              `json:"reply"`
	Corrections       []domain.Correction `json:"corrections"`
	Mistakes          []*domain.Mistake   `json:"mistakes,omitempty"`
	PersistenceErrors []string            `json:"persistence_errors,omitempty"`
}

// SubmitTurn analyzes one learner utterance within an Active session and
// persists the resulting mistakes. Generation and analysis failures leave
// the session Active with its window unchanged, so the same turn may be
// retried. A mistake record that fails to persist is reported without
// discarding the reply.
func (e *Engine) SubmitTurn(ctx context.Context, sessionID, utterance string) (*TurnResult, error) {
	as, err := e.lookupActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	as.mu.Lock()
	defer as.mu.Unlock()

	result, err := e.analyzer.Analyze(ctx, as.window, utterance)
	if err != nil {
		return nil, err
	}

	turn := &TurnResult{Reply: result.Reply, Corrections: result.Corrections}
	for _, c := range result.Corrections {
		mistake, err := e.repo.RecordMistake(ctx, sessionID, c)
		if err != nil {
			slog.Error("Failed to record mistake",
				"session_id", sessionID, "fragment", c.Fragment, "error", err)
			turn.PersistenceErrors = append(turn.PersistenceErrors, err.Error())
			continue
		}
		turn.Mistakes = append(turn.Mistakes, mistake)
	}

	e.logTurn(sessionID, domain.RoleUser, utterance, 0)
	e.logTurn(sessionID, domain.RoleAssistant, result.Reply, len(result.Corrections))

	return turn, nil
}

// EndSession closes an Active session and returns its mistake summary.
// A second call fails with domain.ErrAlreadyClosed.
func (e *Engine) EndSession(ctx context.Context, sessionID string) (*domain.SessionSummary, error) {
	if err := e.repo.CloseSession(ctx, sessionID, time.Now()); err != nil {
		return nil, err
	}

	e.mu.Lock()
	delete(e.active, sessionID)
	e.mu.Unlock()

	slog.Info("Session ended", "session_id", sessionID)
	return e.repo.SessionSummary(ctx, sessionID)
}

// Feedback generates narrative end-of-session feedback from the persisted
// mistakes. Separate from EndSession so the durable summary never depends
// on generation availability.
func (e *Engine) Feedback(ctx context.Context, sessionID string) (string, error) {
	session, err := e.repo.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}

	mistakes, err := e.repo.SessionMistakes(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if len(mistakes) == 0 {
		return "Great job! You didn't make any significant mistakes in this conversation.", nil
	}

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: string(domain.RoleUser), Content: prompt.Feedback(session, mistakes)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("generate feedback: %w", err)
	}
	return resp.Content, nil
}

// Summary returns the persisted mistake summary without changing session
// state.
func (e *Engine) Summary(ctx context.Context, sessionID string) (*domain.SessionSummary, error) {
	return e.repo.SessionSummary(ctx, sessionID)
}

// WindowLen reports the current snapshot length of an active session's
// memory window, or 0 when the session is not active.
func (e *Engine) WindowLen(sessionID string) int {
	e.mu.Lock()
	as, ok := e.active[sessionID]
	e.mu.Unlock()
	if !ok {
		return 0
	}
	return as.window.Len()
}

func (e *Engine) lookupActive(ctx context.Context, sessionID string) (*activeSession, error) {
	e.mu.Lock()
	as, ok := e.active[sessionID]
	e.mu.Unlock()
	if ok {
		return as, nil
	}

	session, err := e.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}
	return nil, fmt.Errorf("%w: session %s", domain.ErrSessionNotActive, sessionID)
}

func (e *Engine) logTurn(sessionID string, role domain.Role, content string, corrections int) {
	if e.transcripts == nil {
		return
	}
	e.transcripts.Log(transcript.Event{
		SessionID:   sessionID,
		Role:        string(role),
		Content:     content,
		Corrections: corrections,
	})
}
