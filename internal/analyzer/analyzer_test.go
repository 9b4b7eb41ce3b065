package analyzer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/okoval/parlo/internal/domain"
	"github.com/okoval/parlo/internal/llm"
)

// scriptedProvider returns canned responses in order, or a fixed error.
type scriptedProvider struct {
	replies []string
	err     error
	calls   [][]llm.Message
}

func (p *scriptedProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.calls = append(p.calls, req.Messages)
	if p.err != nil {
		return nil, p.err
	}
	reply := p.replies[0]
	if len(p.replies) > 1 {
		p.replies = p.replies[1:]
	}
	return &llm.CompletionResponse{Content: reply, FinishReason: "stop"}, nil
}

func seededWindow(t *testing.T) *domain.MemoryWindow {
	t.Helper()
	w := domain.NewMemoryWindow(10)
	if err := w.Seed("scene prompt"); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	return w
}

func TestParseReply_NoMarker(t *testing.T) {
	reply, corrections, err := ParseReply("Bonjour ! Que puis-je vous servir ?")
	if err != nil {
		t.Fatalf("ParseReply failed: %v", err)
	}
	if reply != "Bonjour ! Que puis-je vous servir ?" {
		t.Errorf("Unexpected reply: %q", reply)
	}
	if len(corrections) != 0 {
		t.Errorf("Expected zero corrections, got %d", len(corrections))
	}
}

func TestParseReply_WithBlock(t *testing.T) {
	raw := "Très bien ! Et comme boisson ?\n" +
		domain.CorrectionsMarker + "\n" +
		"suis aller :: suis allé :: grammar :: 2\n" +
		"la restaurant :: le restaurant :: grammar :: 1\n"

	reply, corrections, err := ParseReply(raw)
	if err != nil {
		t.Fatalf("ParseReply failed: %v", err)
	}
	if reply != "Très bien ! Et comme boisson ?" {
		t.Errorf("Unexpected reply: %q", reply)
	}
	if len(corrections) != 2 {
		t.Fatalf("Expected 2 corrections, got %d", len(corrections))
	}
	first := corrections[0]
	if first.Fragment != "suis aller" || first.Correction != "suis allé" {
		t.Errorf("Unexpected first correction: %+v", first)
	}
	if first.Category != domain.CategoryGrammar || first.Severity != 2 {
		t.Errorf("Unexpected category/severity: %+v", first)
	}
}

func TestParseReply_EmptyBlock(t *testing.T) {
	reply, corrections, err := ParseReply("Parfait !\n" + domain.CorrectionsMarker + "\n\n")
	if err != nil {
		t.Fatalf("ParseReply failed: %v", err)
	}
	if reply != "Parfait !" {
		t.Errorf("Unexpected reply: %q", reply)
	}
	if len(corrections) != 0 {
		t.Errorf("Expected zero corrections, got %d", len(corrections))
	}
}

func TestParseReply_Malformed(t *testing.T) {
	cases := []string{
		"only three :: fields :: here",
		"frag :: corr :: spelling :: 2",
		"frag :: corr :: grammar :: high",
		"frag :: corr :: grammar :: 7",
		" :: corr :: grammar :: 2",
	}
	for _, line := range cases {
		raw := "Reply text\n" + domain.CorrectionsMarker + "\n" + line
		_, _, err := ParseReply(raw)
		if !errors.Is(err, domain.ErrMalformedAnalysis) {
			t.Errorf("Line %q: expected ErrMalformedAnalysis, got %v", line, err)
		}
		var malformed *MalformedAnalysisError
		if errors.As(err, &malformed) && malformed.RawReply != raw {
			t.Errorf("Line %q: RawReply not preserved", line)
		}
	}
}

func TestAnalyze_AppendsTurnsOnSuccess(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		"Bien sûr !\n" + domain.CorrectionsMarker + "\nje veux :: je voudrais :: vocabulary :: 1",
	}}
	a := New(provider)
	w := seededWindow(t)

	result, err := a.Analyze(context.Background(), w, "je veux un café")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Reply != "Bien sûr !" {
		t.Errorf("Unexpected reply: %q", result.Reply)
	}
	if len(result.Corrections) != 1 {
		t.Fatalf("Expected 1 correction, got %d", len(result.Corrections))
	}

	snap := w.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Expected system+user+assistant turns, got %d", len(snap))
	}
	if snap[1].Role != domain.RoleUser || snap[1].Text != "je veux un café" {
		t.Errorf("User turn not appended: %+v", snap[1])
	}
	if snap[2].Role != domain.RoleAssistant || snap[2].Text != "Bien sûr !" {
		t.Errorf("Assistant turn should hold the reply without the block: %+v", snap[2])
	}
}

func TestAnalyze_SubmitsWindowPlusUtterance(t *testing.T) {
	provider := &scriptedProvider{replies: []string{"D'accord."}}
	a := New(provider)
	w := seededWindow(t)
	w.Append(domain.RoleUser, "bonjour")
	w.Append(domain.RoleAssistant, "bonjour, bienvenue")

	if _, err := a.Analyze(context.Background(), w, "une table pour deux"); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	sent := provider.calls[0]
	if len(sent) != 4 {
		t.Fatalf("Expected 4 messages sent, got %d", len(sent))
	}
	if sent[0].Role != "system" {
		t.Errorf("Expected system message first, got %q", sent[0].Role)
	}
	if sent[3].Role != "user" || sent[3].Content != "une table pour deux" {
		t.Errorf("Expected utterance last, got %+v", sent[3])
	}
}

func TestAnalyze_ProviderFailureLeavesWindowUnchanged(t *testing.T) {
	provider := &scriptedProvider{err: fmt.Errorf("%w: connection refused", domain.ErrGenerationUnavailable)}
	a := New(provider)
	w := seededWindow(t)

	_, err := a.Analyze(context.Background(), w, "bonjour")
	if !errors.Is(err, domain.ErrGenerationUnavailable) {
		t.Fatalf("Expected ErrGenerationUnavailable, got %v", err)
	}
	if w.Len() != 1 {
		t.Errorf("Window mutated on failure: %d turns", w.Len())
	}
}

func TestAnalyze_MalformedLeavesWindowUnchanged(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		"Reply\n" + domain.CorrectionsMarker + "\nnot a tuple",
	}}
	a := New(provider)
	w := seededWindow(t)

	_, err := a.Analyze(context.Background(), w, "bonjour")
	if !errors.Is(err, domain.ErrMalformedAnalysis) {
		t.Fatalf("Expected ErrMalformedAnalysis, got %v", err)
	}
	if w.Len() != 1 {
		t.Errorf("Window mutated on malformed analysis: %d turns", w.Len())
	}
}

func TestOpening_AppendsAssistantTurn(t *testing.T) {
	provider := &scriptedProvider{replies: []string{"Bonjour, bienvenue au restaurant !"}}
	a := New(provider)
	w := seededWindow(t)

	opening, err := a.Opening(context.Background(), w)
	if err != nil {
		t.Fatalf("Opening failed: %v", err)
	}
	if opening != "Bonjour, bienvenue au restaurant !" {
		t.Errorf("Unexpected opening: %q", opening)
	}

	snap := w.Snapshot()
	if len(snap) != 2 || snap[1].Role != domain.RoleAssistant {
		t.Errorf("Expected assistant turn appended, got %+v", snap)
	}
}
