package ai

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/zhouzirui/law-agent/backend/internal/model/chat"
	"github.com/zhouzirui/law-agent/backend/internal/model/document"
	"github.com/zhouzirui/law-agent/backend/internal/model/persona"
)

func buildHistory(n int) []chat.Message {
	history := make([]chat.Message, 0, n)
	for i := 0; i < n; i++ {
		role := chat.RoleUser
		if i%2 == 1 {
			role = chat.RoleAssistant
		}
		history = append(history, chat.NewMessage(role, fmt.Sprintf("turn-%02d", i)))
	}
	return history
}

func TestAssembleWithoutHistoryOrDocuments(t *testing.T) {
	assembler := NewAssembler(persona.Counsel(), DefaultHistoryWindow)

	got, err := assembler.Assemble(context.Background(), "  What is a tort?  ", nil, nil)
	if err != nil {
		t.Fatalf("Assemble err: %v", err)
	}
	if got.User != "CLIENT INQUIRY: What is a tort?" {
		t.Fatalf("unexpected user text %q", got.User)
	}
	if got.System != assembler.SystemPrompt() {
		t.Fatal("system text must be the constant persona prompt")
	}
	if len(got.Window) != 0 {
		t.Fatalf("expected empty window, got %d", len(got.Window))
	}
}

func TestAssembleWindowNeverExceedsLimit(t *testing.T) {
	assembler := NewAssembler(persona.Counsel(), DefaultHistoryWindow)

	for _, n := range []int{1, 5, 6, 7, 40} {
		got, err := assembler.Assemble(context.Background(), "next", buildHistory(n), nil)
		if err != nil {
			t.Fatalf("Assemble err: %v", err)
		}
		want := n
		if want > DefaultHistoryWindow {
			want = DefaultHistoryWindow
		}
		if len(got.Window) != want {
			t.Fatalf("history %d: window %d, want %d", n, len(got.Window), want)
		}
		if strings.Count(got.User, "turn-") != want {
			t.Fatalf("history %d: prompt replays %d turns, want %d", n, strings.Count(got.User, "turn-"), want)
		}
	}
}

func TestAssembleRendersRecentTurnsOldestFirst(t *testing.T) {
	assembler := NewAssembler(persona.Counsel(), DefaultHistoryWindow)

	got, err := assembler.Assemble(context.Background(), "follow-up", buildHistory(8), nil)
	if err != nil {
		t.Fatalf("Assemble err: %v", err)
	}

	if !strings.HasPrefix(got.User, "PREVIOUS CONVERSATION:\nUser: turn-02\nAssistant: turn-03\n") {
		t.Fatalf("unexpected transcript rendering:\n%s", got.User)
	}
	if strings.Contains(got.User, "turn-01") {
		t.Fatal("window must drop the oldest turns")
	}
	if !strings.Contains(got.User, "Assistant: turn-07\n\nCLIENT INQUIRY: follow-up\n\nRespond only to the current client inquiry") {
		t.Fatalf("expected inquiry followed by instruction:\n%s", got.User)
	}
}

func TestAssembleIncludesDocumentBlock(t *testing.T) {
	assembler := NewAssembler(persona.Counsel(), DefaultHistoryWindow)
	docs := &document.Set{
		Documents: []document.Info{{Filename: "lease.pdf"}, {Filename: "notice.txt"}},
		Text:      "Rent is due on the first of each month.",
	}

	got, err := assembler.Assemble(context.Background(), "When is rent due?", nil, docs)
	if err != nil {
		t.Fatalf("Assemble err: %v", err)
	}
	if !strings.HasPrefix(got.User, "UPLOADED DOCUMENTS: lease.pdf, notice.txt\n\nDOCUMENT CONTENT:\nRent is due") {
		t.Fatalf("unexpected document block:\n%s", got.User)
	}
	if !strings.Contains(got.User, "cite them") {
		t.Fatal("expected citation instruction")
	}
	if !strings.HasSuffix(got.User, "\n\nCLIENT INQUIRY: When is rent due?") {
		t.Fatalf("expected blank line before inquiry:\n%s", got.User)
	}
}

func TestAssembleIgnoresBlankDocumentText(t *testing.T) {
	assembler := NewAssembler(persona.Counsel(), DefaultHistoryWindow)
	docs := &document.Set{Documents: []document.Info{{Filename: "scan.pdf"}}, Text: ""}

	got, err := assembler.Assemble(context.Background(), "hello", nil, docs)
	if err != nil {
		t.Fatalf("Assemble err: %v", err)
	}
	if strings.Contains(got.User, "UPLOADED DOCUMENTS") {
		t.Fatal("blank document text must not produce a document block")
	}
}

func TestAssembleKeepsBracesInUserContent(t *testing.T) {
	assembler := NewAssembler(persona.Counsel(), DefaultHistoryWindow)

	got, err := assembler.Assemble(context.Background(), "clause {a} vs {b}", nil, nil)
	if err != nil {
		t.Fatalf("Assemble err: %v", err)
	}
	if got.User != "CLIENT INQUIRY: clause {a} vs {b}" {
		t.Fatalf("unexpected user text %q", got.User)
	}
}

func TestBuildSystemPromptIncludesRules(t *testing.T) {
	p := persona.Counsel()
	system := BuildSystemPrompt(p)
	if !strings.HasPrefix(system, p.SystemPrompt) {
		t.Fatal("system prompt must start with persona prompt")
	}
	for _, rule := range p.Rules {
		if !strings.Contains(system, rule) {
			t.Fatalf("system prompt missing rule %q", rule)
		}
	}
}

func TestAssemblerClampsOversizedWindow(t *testing.T) {
	assembler := NewAssembler(persona.Counsel(), 40)

	got, err := assembler.Assemble(context.Background(), "next", buildHistory(20), nil)
	if err != nil {
		t.Fatalf("Assemble err: %v", err)
	}
	if len(got.Window) != DefaultHistoryWindow {
		t.Fatalf("window %d exceeds limit %d", len(got.Window), DefaultHistoryWindow)
	}
}
