package domain

import "sync"

// Role tags a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged entry of a conversation.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// DefaultMemoryWindowSize is the default cap on retained non-system turns.
const DefaultMemoryWindowSize = 20

// MemoryWindow is a bounded, ordered record of recent conversation turns.
// The system turn is pinned at position 0 and never evicted; beyond the cap
// the oldest non-pinned turns are dropped first (strict FIFO). Prevents
// unbounded prompt growth over long sessions.
//
// Each session owns exactly one window; windows are never shared.
type MemoryWindow struct {
	mu     sync.Mutex
	system *Turn
	turns  []Turn
	cap    int
}

// NewMemoryWindow creates a window retaining at most cap non-pinned turns.
func NewMemoryWindow(cap int) *MemoryWindow {
	if cap <= 0 {
		cap = DefaultMemoryWindowSize
	}
	return &MemoryWindow{cap: cap}
}

// Seed sets the pinned system turn. A second call fails with ErrAlreadySeeded.
func (w *MemoryWindow) Seed(systemPrompt string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.system != nil {
		return ErrAlreadySeeded
	}
	w.system = &Turn{Role: RoleSystem, Text: systemPrompt}
	return nil
}

// Append adds a turn, evicting the oldest non-pinned turns once the cap is
// exceeded. Turns are never reordered.
func (w *MemoryWindow) Append(role Role, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.turns = append(w.turns, Turn{Role: role, Text: text})
	if excess := len(w.turns) - w.cap; excess > 0 {
		w.turns = append(w.turns[:0:0], w.turns[excess:]...)
	}
}

// Snapshot returns a read-only copy of the window, pinned system turn first.
func (w *MemoryWindow) Snapshot() []Turn {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Turn, 0, len(w.turns)+1)
	if w.system != nil {
		out = append(out, *w.system)
	}
	return append(out, w.turns...)
}

// Len returns the number of turns a Snapshot would contain.
func (w *MemoryWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := len(w.turns)
	if w.system != nil {
		n++
	}
	return n
}

// Seeded reports whether the pinned system turn has been set.
func (w *MemoryWindow) Seeded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.system != nil
}

// Cap returns the maximum number of retained non-pinned turns.
func (w *MemoryWindow) Cap() int {
	return w.cap
}
