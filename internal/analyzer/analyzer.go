// Package analyzer drives one conversation turn through the generation
// service and parses the reply into a natural-language message plus zero or
// more structured correction records.
//
// This is the only package that talks to the generation service. It never
// persists anything; durability is the orchestrator's responsibility.
package analyzer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/okoval/parlo/internal/domain"
	"github.com/okoval/parlo/internal/llm"
)

// Analyzer submits memory-window snapshots to a generation provider and
// decodes the correction block from its replies.
type Analyzer struct {
	provider    llm.Provider
	temperature float64
}

// New creates an Analyzer over the given provider.
func New(provider llm.Provider) *Analyzer {
	return &Analyzer{provider: provider, temperature: 0.7}
}

// Result is the outcome of one analyzed turn.
type Result struct {
	Reply       string              `json:"reply"`
	Corrections []domain.Correction `json:"corrections"`
}

// MalformedAnalysisError reports a correction block that could not be
// decoded. RawReply carries the unparsed service output so the caller can
// decide whether to surface it anyway or discard the turn.
type MalformedAnalysisError struct {
	RawReply string
	Reason   string
}

func (e *MalformedAnalysisError) Error() string {
	return fmt.Sprintf("malformed analysis: %s", e.Reason)
}

func (e *MalformedAnalysisError) Unwrap() error {
	return domain.ErrMalformedAnalysis
}

// Analyze runs one turn: the utterance is combined with the window's
// snapshot, submitted to the generation service, and the reply is split into
// conversational text and correction tuples.
//
// The window is only mutated on success (user turn then assistant turn), so
// after ErrGenerationUnavailable or ErrMalformedAnalysis the caller may
// retry the same turn against an unchanged window.
func (a *Analyzer) Analyze(ctx context.Context, window *domain.MemoryWindow, utterance string) (*Result, error) {
	messages := llm.FromTurns(window.Snapshot())
	messages = append(messages, llm.Message{Role: string(domain.RoleUser), Content: utterance})

	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		Messages:    messages,
		Temperature: a.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze turn: %w", err)
	}

	reply, corrections, err := ParseReply(resp.Content)
	if err != nil {
		return nil, err
	}

	window.Append(domain.RoleUser, utterance)
	window.Append(domain.RoleAssistant, reply)

	return &Result{Reply: reply, Corrections: corrections}, nil
}

// Opening asks the generation service to start the conversation in character
// using only the seeded window. The assistant's introduction is appended to
// the window on success.
func (a *Analyzer) Opening(ctx context.Context, window *domain.MemoryWindow) (string, error) {
	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		Messages:    llm.FromTurns(window.Snapshot()),
		Temperature: a.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("opening message: %w", err)
	}

	// The model should not correct anything on its own opening turn, but a
	// stray block is stripped rather than rejected.
	reply, _, err := ParseReply(resp.Content)
	if err != nil {
		reply = resp.Content
	}

	window.Append(domain.RoleAssistant, reply)
	return reply, nil
}

// ParseReply splits raw generation output into the conversational reply and
// the decoded correction tuples. A missing marker means zero mistakes; a
// present but undecodable block fails with a MalformedAnalysisError.
func ParseReply(raw string) (string, []domain.Correction, error) {
	lines := strings.Split(raw, "\n")

	markerAt := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == domain.CorrectionsMarker {
			markerAt = i
			break
		}
	}
	if markerAt < 0 {
		return strings.TrimSpace(raw), nil, nil
	}

	reply := strings.TrimSpace(strings.Join(lines[:markerAt], "\n"))

	var corrections []domain.Correction
	for _, line := range lines[markerAt+1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		c, err := parseTuple(line)
		if err != nil {
			return "", nil, &MalformedAnalysisError{RawReply: raw, Reason: err.Error()}
		}
		corrections = append(corrections, c)
	}

	return reply, corrections, nil
}

func parseTuple(line string) (domain.Correction, error) {
	fields := strings.Split(line, domain.CorrectionSeparator)
	if len(fields) != 4 {
		return domain.Correction{}, fmt.Errorf("expected 4 fields, got %d in %q", len(fields), line)
	}

	fragment := strings.TrimSpace(fields[0])
	correction := strings.TrimSpace(fields[1])
	if fragment == "" || correction == "" {
		return domain.Correction{}, fmt.Errorf("empty fragment or correction in %q", line)
	}

	category, err := domain.ParseCategory(fields[2])
	if err != nil {
		return domain.Correction{}, err
	}

	severity, err := strconv.Atoi(strings.TrimSpace(fields[3]))
	if err != nil {
		return domain.Correction{}, fmt.Errorf("severity is not an integer in %q", line)
	}
	if severity < domain.SeverityMin || severity > domain.SeverityMax {
		return domain.Correction{}, fmt.Errorf("severity %d out of range [%d,%d]", severity, domain.SeverityMin, domain.SeverityMax)
	}

	return domain.Correction{
		Fragment:   fragment,
		Correction: correction,
		Category:   category,
		Severity:   severity,
	}, nil
}
