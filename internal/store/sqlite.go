package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okoval/parlo/internal/domain"
	"github.com/okoval/parlo/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	locks sessionLocks
}

// sessionLocks hands out one mutex per session id so same-session writers
// serialize without coupling distinct sessions.
type sessionLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *sessionLocks) acquire(sessionID string) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*sync.Mutex)
	}
	lock, ok := l.m[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		l.m[sessionID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		target_lang TEXT NOT NULL,
		native_lang TEXT NOT NULL,
		level TEXT NOT NULL,
		scene TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		ended_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

	CREATE TABLE IF NOT EXISTS mistakes (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		fragment TEXT NOT NULL,
		correction TEXT NOT NULL,
		category TEXT NOT NULL,
		severity INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_mistakes_session ON mistakes(session_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser creates a new learner record.
func (s *SQLiteStore) CreateUser(ctx context.Context) (*domain.User, error) {
	user := &domain.User{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, created_at) VALUES (?, ?)`,
		user.ID, user.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, writeError("insert user", err)
	}
	return user, nil
}

// GetUser retrieves a user by id.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM users WHERE id = ?`, userID)

	var user domain.User
	var createdAt int64
	err := row.Scan(&user.ID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.CreatedAt = time.Unix(createdAt, 0)
	return &user, nil
}

// CreateSession creates a session for an existing user. The insert is
// guarded by the user's existence so a dangling reference can never be
// written, even without per-connection foreign key pragmas.
func (s *SQLiteStore) CreateSession(ctx context.Context, params domain.SessionParams) (*domain.Session, error) {
	session := &domain.Session{
		ID:         uuid.NewString(),
		UserID:     params.UserID,
		TargetLang: params.TargetLang,
		NativeLang: params.NativeLang,
		Level:      params.Level,
		Scene:      params.Scene,
		StartedAt:  time.Now(),
	}

	query := `
	INSERT INTO sessions (id, user_id, target_lang, native_lang, level, scene, started_at, ended_at)
	SELECT ?, ?, ?, ?, ?, ?, ?, NULL
	WHERE EXISTS (SELECT 1 FROM users WHERE id = ?)`

	result, err := s.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.TargetLang, session.NativeLang,
		string(session.Level), string(session.Scene), session.StartedAt.Unix(),
		session.UserID,
	)
	if err != nil {
		return nil, writeError("insert session", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: user %s", domain.ErrInvalidReference, params.UserID)
	}

	return session, nil
}

// GetSession retrieves a session by id.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, target_lang, native_lang, level, scene, started_at, ended_at
		FROM sessions WHERE id = ?`, sessionID)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	return session, nil
}

// UserSessions returns a user's sessions, most recent first.
func (s *SQLiteStore) UserSessions(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, target_lang, native_lang, level, scene, started_at, ended_at
		FROM sessions WHERE user_id = ? ORDER BY started_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user sessions: %w", err)
	}
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var session domain.Session
	var level, scene string
	var startedAt int64
	var endedAt sql.NullInt64

	err := row.Scan(
		&session.ID, &session.UserID, &session.TargetLang, &session.NativeLang,
		&level, &scene, &startedAt, &endedAt,
	)
	if err != nil {
		return nil, err
	}

	session.Level = domain.Level(level)
	session.Scene = domain.Scene(scene)
	session.StartedAt = time.Unix(startedAt, 0)
	if endedAt.Valid {
		t := time.Unix(endedAt.Int64, 0)
		session.EndedAt = &t
	}
	return &session, nil
}

// CloseSession sets the session's end timestamp. The guarded update makes
// the terminal transition atomic: under concurrent close attempts exactly
// one caller flips ended_at, the rest observe ErrAlreadyClosed.
func (s *SQLiteStore) CloseSession(ctx context.Context, sessionID string, endTime time.Time) error {
	defer s.locks.acquire(sessionID)()

	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ? WHERE id = ? AND ended_at IS NULL`,
		endTime.Unix(), sessionID,
	)
	if err != nil {
		return writeError("close session", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}
	return fmt.Errorf("%w: session %s", domain.ErrAlreadyClosed, sessionID)
}

// RecordMistake appends a mistake to an open session. The insert is guarded
// by the session being open, so mistakes never attach to unknown or closed
// sessions.
func (s *SQLiteStore) RecordMistake(ctx context.Context, sessionID string, c domain.Correction) (*domain.Mistake, error) {
	defer s.locks.acquire(sessionID)()

	mistake := &domain.Mistake{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Fragment:   c.Fragment,
		Correction: c.Correction,
		Category:   c.Category,
		Severity:   c.Severity,
		CreatedAt:  time.Now(),
	}

	query := `
	INSERT INTO mistakes (id, session_id, fragment, correction, category, severity, created_at)
	SELECT ?, ?, ?, ?, ?, ?, ?
	WHERE EXISTS (SELECT 1 FROM sessions WHERE id = ? AND ended_at IS NULL)`

	result, err := s.db.ExecContext(ctx, query,
		mistake.ID, mistake.SessionID, mistake.Fragment, mistake.Correction,
		string(mistake.Category), mistake.Severity, mistake.CreatedAt.Unix(),
		sessionID,
	)
	if err != nil {
		return nil, writeError("insert mistake", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: session %s unknown or closed", domain.ErrInvalidReference, sessionID)
	}

	return mistake, nil
}

// SessionMistakes returns a session's mistakes in insertion order.
func (s *SQLiteStore) SessionMistakes(ctx context.Context, sessionID string) ([]*domain.Mistake, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, fragment, correction, category, severity, created_at
		FROM mistakes WHERE session_id = ? ORDER BY created_at, rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query mistakes: %w", err)
	}
	defer rows.Close()

	var mistakes []*domain.Mistake
	for rows.Next() {
		var m domain.Mistake
		var category string
		var createdAt int64
		if err := rows.Scan(
			&m.ID, &m.SessionID, &m.Fragment, &m.Correction,
			&category, &m.Severity, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan mistake row: %w", err)
		}
		m.Category = domain.Category(category)
		m.CreatedAt = time.Unix(createdAt, 0)
		mistakes = append(mistakes, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mistakes: %w", err)
	}
	return mistakes, nil
}

// SessionSummary aggregates a session's recorded mistakes.
func (s *SQLiteStore) SessionSummary(ctx context.Context, sessionID string) (*domain.SessionSummary, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}

	mistakes, err := s.SessionMistakes(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	summary := &domain.SessionSummary{
		SessionID:    sessionID,
		MistakeCount: len(mistakes),
		ByCategory:   make(map[domain.Category]int),
		Timeline:     make([]domain.MistakePoint, 0, len(mistakes)),
	}
	for _, m := range mistakes {
		summary.ByCategory[m.Category]++
		summary.Timeline = append(summary.Timeline, domain.MistakePoint{
			CreatedAt: m.CreatedAt,
			Category:  m.Category,
			Severity:  m.Severity,
		})
	}
	return summary, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// writeError maps store-level write failures onto the persistence error so
// callers can match with errors.Is. SQLite concurrency conflicts are
// reported, not retried.
func writeError(op string, err error) error {
	if shared.IsSQLiteConflict(err) {
		return fmt.Errorf("%w: %s: conflict: %v", domain.ErrPersistenceFailure, op, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrPersistenceFailure, op, err)
}
