package domain

import "time"

// Session is one practice conversation for a user. Language, scene and level
// are fixed at creation; the only permitted mutation is setting EndedAt once.
type Session struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	TargetLang string     `json:"target_lang"`
	NativeLang string     `json:"native_lang"`
	Level      Level      `json:"level"`
	Scene      Scene      `json:"scene"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
}

// Closed reports whether the session has reached its terminal state.
func (s *Session) Closed() bool {
	return s.EndedAt != nil
}

// SessionParams carries the immutable attributes of a new session.
type SessionParams struct {
	UserID     string `json:"user_id"`
	TargetLang string `json:"target_lang"`
	NativeLang string `json:"native_lang"`
	Level      Level  `json:"level"`
	Scene      Scene  `json:"scene"`
}

// SessionSummary aggregates the mistakes recorded during a session.
type SessionSummary struct {
	SessionID    string           `json:"session_id"`
	MistakeCount int              `json:"mistake_count"`
	ByCategory   map[Category]int `json:"by_category"`
	Timeline     []MistakePoint   `json:"timeline"`
}

// MistakePoint is one entry of the chronological severity timeline.
type MistakePoint struct {
	CreatedAt time.Time `json:"created_at"`
	Category  Category  `json:"category"`
	Severity  int       `json:"severity"`
}
