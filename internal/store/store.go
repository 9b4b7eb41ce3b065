// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/okoval/parlo/internal/domain"
)

// Repository defines the interface for persisting users, sessions and
// mistakes. All writes are atomic per call. Writers to the same session
// serialize; writers to distinct sessions never block each other.
type Repository interface {
	// CreateUser creates a new learner record.
	CreateUser(ctx context.Context) (*domain.User, error)

	// GetUser retrieves a user by id. Returns nil, nil when absent.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// CreateSession creates a session for an existing user. Fails with
	// domain.ErrInvalidReference when the user is unknown.
	CreateSession(ctx context.Context, params domain.SessionParams) (*domain.Session, error)

	// GetSession retrieves a session by id. Returns nil, nil when absent.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// UserSessions returns a user's sessions, most recent first.
	UserSessions(ctx context.Context, userID string) ([]*domain.Session, error)

	// CloseSession sets the session's end timestamp. Fails with
	// domain.ErrNotFound for an unknown session and domain.ErrAlreadyClosed
	// once the end timestamp is set; under concurrent close attempts exactly
	// one caller succeeds.
	CloseSession(ctx context.Context, sessionID string, endTime time.Time) error

	// RecordMistake appends a mistake to an open session. Fails with
	// domain.ErrInvalidReference when the session is unknown or closed.
	RecordMistake(ctx context.Context, sessionID string, c domain.Correction) (*domain.Mistake, error)

	// SessionMistakes returns a session's mistakes in insertion order.
	SessionMistakes(ctx context.Context, sessionID string) ([]*domain.Mistake, error)

	// SessionSummary aggregates a session's recorded mistakes. Fails with
	// domain.ErrNotFound for an unknown session.
	SessionSummary(ctx context.Context, sessionID string) (*domain.SessionSummary, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
