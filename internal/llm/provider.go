// Package llm defines the generation-service provider interface and the
// message types used to assemble prompts from a session's memory window.
//
// The engine treats the service as an opaque text-completion capability:
// given an ordered sequence of role-tagged messages, it returns generated
// text. Transport failures and timeouts surface as errors; the provider
// never retries internally.
package llm

import (
	"context"

	"github.com/okoval/parlo/internal/domain"
)

// Message is a single role-tagged message sent to the generation service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FromTurns converts a memory-window snapshot into provider messages.
func FromTurns(turns []domain.Turn) []Message {
	out := make([]Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, Message{Role: string(t.Role), Content: t.Text})
	}
	return out
}

// CompletionRequest is the input to a single generation call.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// CompletionResponse is the output of a generation call.
type CompletionResponse struct {
	Content string
	// FinishReason explains why the model stopped ("stop", "length", ...).
	FinishReason string
	Usage        TokenUsage
}

// TokenUsage reports token consumption for cost tracking.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Provider is the interface all generation backends implement.
type Provider interface {
	// Complete sends messages to the generation service and returns the next
	// assistant message.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
