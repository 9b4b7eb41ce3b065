// Package domain contains core domain types for the Parlo engine.
package domain

import "time"

// User represents a learner. Users are immutable after creation; deleting
// them is an administrative action outside this engine.
type User struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}
