package domain

import (
	"fmt"
	"strings"
	"time"
)

// Category classifies a recorded mistake.
type Category string

const (
	CategoryGrammar    Category = "grammar"
	CategoryVocabulary Category = "vocabulary"
	CategorySyntax     Category = "syntax"
	CategoryOther      Category = "other"
)

// Severity bounds. 1 is minor, 3 is a critical mistake.
const (
	SeverityMin = 1
	SeverityMax = 3
)

// ParseCategory validates a mistake category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategoryGrammar, CategoryVocabulary, CategorySyntax, CategoryOther:
		return c, nil
	}
	return "", fmt.Errorf("unknown mistake category %q", s)
}

// Correction-block wire convention. The assistant appends its structured
// corrections after the natural-language reply, introduced by the marker
// line; each following non-empty line is one four-field tuple joined by the
// separator: fragment :: correction :: category :: severity. The prompt
// builder instructs the model in this format and the analyzer parses it, so
// producer and parser share a single definition.
const (
	CorrectionsMarker   = "===CORRECTIONS==="
	CorrectionSeparator = " :: "
)

// Mistake is one correction extracted from a generation-service reply.
// Mistakes are append-only: never mutated, never deleted.
type Mistake struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Fragment   string    `json:"fragment"`
	Correction string    `json:"correction"`
	Category   Category  `json:"category"`
	Severity   int       `json:"severity"`
	CreatedAt  time.Time `json:"created_at"`
}

// Correction is the parsed (not yet persisted) form of one tuple from a
// correction block.
type Correction struct {
	Fragment   string   `json:"fragment"`
	Correction string   `json:"correction"`
	Category   Category `json:"category"`
	Severity   int      `json:"severity"`
}
