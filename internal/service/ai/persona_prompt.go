package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/law-agent/backend/internal/config"
	"github.com/zhouzirui/law-agent/backend/internal/model/chat"
	"github.com/zhouzirui/law-agent/backend/internal/model/document"
	"github.com/zhouzirui/law-agent/backend/internal/model/persona"
)

// DefaultHistoryWindow is how many prior messages are replayed to the model.
// It is also the upper bound for any configured window.
const DefaultHistoryWindow = config.MaxHistoryWindow

// PromptContext is the per-request prompt handed to the inference client.
type PromptContext struct {
	System string
	User   string
	// Window is the slice of history included in User, oldest first.
	Window []chat.Message
}

// Assembler builds the system and user turn for each chat request.
type Assembler struct {
	system   string
	window   int
	template prompt.ChatTemplate
}

// NewAssembler creates an assembler for the given persona. The window is
// clamped to [0, DefaultHistoryWindow].
func NewAssembler(p persona.Persona, window int) *Assembler {
	window = min(max(window, 0), DefaultHistoryWindow)

	template := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{history}{documents}CLIENT INQUIRY: {query}{instruction}"),
	)

	return &Assembler{
		system:   BuildSystemPrompt(p),
		window:   window,
		template: template,
	}
}

// SystemPrompt returns the constant persona text.
func (a *Assembler) SystemPrompt() string {
	return a.system
}

// Assemble renders the prompt for userText using the most recent history and,
// when present, the uploaded document context.
func (a *Assembler) Assemble(ctx context.Context, userText string, history []chat.Message, docs *document.Set) (PromptContext, error) {
	window := recentWindow(history, a.window)

	vars := map[string]any{
		"system":      a.system,
		"history":     "",
		"documents":   "",
		"query":       strings.TrimSpace(userText),
		"instruction": "",
	}
	if len(window) > 0 {
		vars["history"] = "PREVIOUS CONVERSATION:\n" + renderTranscript(window) + "\n\n"
		vars["instruction"] = "\n\nRespond only to the current client inquiry above; the previous conversation is context."
	}
	if docs != nil && !docs.Empty() {
		vars["documents"] = renderDocuments(*docs) + "\n\n"
	}

	messages, err := a.template.Format(ctx, vars)
	if err != nil {
		return PromptContext{}, fmt.Errorf("failed to render prompt template: %w", err)
	}
	if len(messages) != 2 {
		return PromptContext{}, fmt.Errorf("prompt template produced %d messages, want 2", len(messages))
	}

	return PromptContext{
		System: messages[0].Content,
		User:   messages[1].Content,
		Window: window,
	}, nil
}

// BuildSystemPrompt flattens a persona into the system prompt text.
func BuildSystemPrompt(p persona.Persona) string {
	var builder strings.Builder
	builder.WriteString(p.SystemPrompt)
	if p.Tone != "" {
		builder.WriteString("\n\nTone: ")
		builder.WriteString(p.Tone)
	}
	if len(p.Rules) > 0 {
		builder.WriteString("\n\nGuidelines:\n- ")
		builder.WriteString(strings.Join(p.Rules, "\n- "))
	}
	return builder.String()
}

func recentWindow(history []chat.Message, limit int) []chat.Message {
	if limit <= 0 || len(history) == 0 {
		return nil
	}
	start := 0
	if len(history) > limit {
		start = len(history) - limit
	}
	return append([]chat.Message(nil), history[start:]...)
}

func renderTranscript(messages []chat.Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, msg.Role.Label()+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}

func renderDocuments(docs document.Set) string {
	return fmt.Sprintf("UPLOADED DOCUMENTS: %s\n\nDOCUMENT CONTENT:\n%s\n\n"+
		"Use the specific details from these documents in your answer and cite them where relevant.",
		strings.Join(docs.Filenames(), ", "), docs.Text)
}
