package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/zhouzirui/law-agent/backend/internal/analysis/fallback"
	"github.com/zhouzirui/law-agent/backend/internal/model/chat"
	"github.com/zhouzirui/law-agent/backend/internal/model/document"
	"github.com/zhouzirui/law-agent/backend/internal/model/persona"
	"github.com/zhouzirui/law-agent/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/law-agent/backend/internal/service/chat"
	documentservice "github.com/zhouzirui/law-agent/backend/internal/service/document"
)

type fakeGenerator struct {
	mu      sync.Mutex
	replies []string
	ok      bool
	prompts []string
	systems []string
}

func (f *fakeGenerator) Query(_ context.Context, system, prompt string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.systems = append(f.systems, system)
	if !f.ok {
		return "", false
	}
	if len(f.replies) == 0 {
		return "A generic but sufficiently long answer.", true
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, true
}

type failingPrompts struct{}

func (failingPrompts) Assemble(context.Context, string, []chat.Message, *document.Set) (ai.PromptContext, error) {
	return ai.PromptContext{}, errors.New("template broken")
}

func newTestOrchestrator(gen ai.Generator) (*Orchestrator, *chatservice.Service, *documentservice.Store) {
	sessions := chatservice.NewService()
	docs := documentservice.NewStore()
	prompts := ai.NewAssembler(persona.Counsel(), ai.DefaultHistoryWindow)
	return New(sessions, docs, prompts, gen, Config{}), sessions, docs
}

func TestChatFallbackWhenModelFails(t *testing.T) {
	orch, sessions, _ := newTestOrchestrator(&fakeGenerator{ok: false})

	reply, err := orch.Chat(context.Background(), Request{Message: "What is a contract?", Sender: "user"})
	if err != nil {
		t.Fatalf("Chat err: %v", err)
	}
	if reply.Response != fallback.Match("contract").Response {
		t.Fatalf("expected contract fallback, got %q", reply.Response)
	}
	if reply.Source != SourceFallback {
		t.Fatalf("expected fallback source, got %s", reply.Source)
	}
	if reply.SessionID != "default" {
		t.Fatalf("expected default session, got %q", reply.SessionID)
	}
	if reply.Timestamp.IsZero() {
		t.Fatal("expected reply timestamp")
	}

	history, _ := sessions.History(context.Background(), "default")
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].Role != chat.RoleUser || history[1].Role != chat.RoleAssistant {
		t.Fatalf("unexpected roles %s, %s", history[0].Role, history[1].Role)
	}
	if history[1].Content != reply.Response {
		t.Fatal("assistant history entry must match the reply")
	}
}

func TestChatSanitizesModelReply(t *testing.T) {
	gen := &fakeGenerator{ok: true, replies: []string{"<think>internal</think>\n A tort is a civil wrong. "}}
	orch, sessions, _ := newTestOrchestrator(gen)

	reply, err := orch.Chat(context.Background(), Request{Message: "What is a tort?", SessionID: "s1"})
	if err != nil {
		t.Fatalf("Chat err: %v", err)
	}
	if reply.Response != "A tort is a civil wrong." {
		t.Fatalf("unexpected reply %q", reply.Response)
	}
	if reply.Source != SourceModel {
		t.Fatalf("expected model source, got %s", reply.Source)
	}

	history, _ := sessions.History(context.Background(), "s1")
	if history[1].Content != "A tort is a civil wrong." {
		t.Fatalf("history must store cleaned text, got %q", history[1].Content)
	}
}

func TestChatShortReplyFallsBack(t *testing.T) {
	gen := &fakeGenerator{ok: true, replies: []string{"<think>long hidden reasoning</think> ok"}}
	orch, _, _ := newTestOrchestrator(gen)

	reply, err := orch.Chat(context.Background(), Request{Message: "I want to sue my landlord"})
	if err != nil {
		t.Fatalf("Chat err: %v", err)
	}
	if reply.Source != SourceFallback {
		t.Fatalf("expected fallback for short reply, got %s", reply.Source)
	}
	if reply.Response != fallback.Match("sue").Response {
		t.Fatalf("expected lawsuit fallback, got %q", reply.Response)
	}
}

func TestChatPromptUsesHistoryBeforeCurrentTurn(t *testing.T) {
	gen := &fakeGenerator{ok: true, replies: []string{"First answer with detail.", "Second answer with detail."}}
	orch, sessions, _ := newTestOrchestrator(gen)
	ctx := context.Background()

	if _, err := orch.Chat(ctx, Request{Message: "first question", SessionID: "s"}); err != nil {
		t.Fatalf("Chat err: %v", err)
	}
	if _, err := orch.Chat(ctx, Request{Message: "second question", SessionID: "s"}); err != nil {
		t.Fatalf("Chat err: %v", err)
	}

	if strings.Contains(gen.prompts[0], "PREVIOUS CONVERSATION") {
		t.Fatal("first turn must not replay history")
	}
	if !strings.Contains(gen.prompts[1], "User: first question\nAssistant: First answer with detail.") {
		t.Fatalf("second turn must replay first exchange:\n%s", gen.prompts[1])
	}
	if strings.Contains(gen.prompts[1], "User: second question") {
		t.Fatal("current message must not appear in replayed history")
	}
	if gen.systems[0] != gen.systems[1] {
		t.Fatal("system prompt must be constant")
	}

	history, _ := sessions.History(ctx, "s")
	if len(history) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].Timestamp.Before(history[i-1].Timestamp) {
			t.Fatalf("history out of chronological order at %d", i)
		}
	}
}

func TestChatInjectsDocumentContext(t *testing.T) {
	gen := &fakeGenerator{ok: true}
	orch, _, docs := newTestOrchestrator(gen)
	docs.Replace([]document.Info{{Filename: "nda.txt"}}, "The NDA lasts five years.")

	if _, err := orch.Chat(context.Background(), Request{Message: "How long is the NDA?"}); err != nil {
		t.Fatalf("Chat err: %v", err)
	}
	if !strings.Contains(gen.prompts[0], "UPLOADED DOCUMENTS: nda.txt") || !strings.Contains(gen.prompts[0], "five years") {
		t.Fatalf("expected document block in prompt:\n%s", gen.prompts[0])
	}
}

func TestChatPromptFailureFallsBack(t *testing.T) {
	gen := &fakeGenerator{ok: true}
	sessions := chatservice.NewService()
	orch := New(sessions, documentservice.NewStore(), failingPrompts{}, gen, Config{})

	reply, err := orch.Chat(context.Background(), Request{Message: "divorce question"})
	if err != nil {
		t.Fatalf("Chat err: %v", err)
	}
	if reply.Source != SourceFallback || len(gen.prompts) != 0 {
		t.Fatalf("expected fallback without querying model, source=%s queries=%d", reply.Source, len(gen.prompts))
	}
}

func TestChatWithoutModel(t *testing.T) {
	orch, _, _ := newTestOrchestrator(nil)
	reply, err := orch.Chat(context.Background(), Request{Message: "criminal charges"})
	if err != nil {
		t.Fatalf("Chat err: %v", err)
	}
	if reply.Response != fallback.Match("criminal").Response {
		t.Fatalf("unexpected reply %q", reply.Response)
	}
}

func TestChatRequiresMessage(t *testing.T) {
	orch, sessions, _ := newTestOrchestrator(&fakeGenerator{ok: true})
	if _, err := orch.Chat(context.Background(), Request{Message: "   "}); !errors.Is(err, ErrMessageRequired) {
		t.Fatalf("expected ErrMessageRequired, got %v", err)
	}
	if sessions.Count() != 0 {
		t.Fatal("blank message must not create a session")
	}
}

func TestChatConcurrentSameSessionKeepsPairs(t *testing.T) {
	orch, sessions, _ := newTestOrchestrator(&fakeGenerator{ok: true})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = orch.Chat(ctx, Request{Message: "contract question", SessionID: "busy"})
		}()
	}
	wg.Wait()

	history, _ := sessions.History(ctx, "busy")
	if len(history) != 20 {
		t.Fatalf("expected 20 messages, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].Role == chat.RoleAssistant && history[i-1].Role == chat.RoleAssistant {
			t.Fatalf("two consecutive assistant messages at %d", i)
		}
	}
}
