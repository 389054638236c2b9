// Package conversation runs one chat turn end to end: session lookup, prompt
// assembly, inference, sanitising, fallback and history update.
package conversation

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/zhouzirui/law-agent/backend/internal/analysis/fallback"
	"github.com/zhouzirui/law-agent/backend/internal/analysis/sanitize"
	"github.com/zhouzirui/law-agent/backend/internal/model/chat"
	"github.com/zhouzirui/law-agent/backend/internal/model/document"
	"github.com/zhouzirui/law-agent/backend/internal/service/ai"
	"github.com/zhouzirui/law-agent/backend/pkg/utils"
)

var ErrMessageRequired = errors.New("message is required")

// SessionStore is the part of the session store a turn needs.
type SessionStore interface {
	GetOrCreate(ctx context.Context, id string) (chat.Session, error)
	History(ctx context.Context, id string) ([]chat.Message, bool)
	AppendExchange(ctx context.Context, id string, user, assistant chat.Message) error
}

// DocumentSource exposes the active document context.
type DocumentSource interface {
	Current() (document.Set, bool)
}

// PromptBuilder renders the prompt for one turn.
type PromptBuilder interface {
	Assemble(ctx context.Context, userText string, history []chat.Message, docs *document.Set) (ai.PromptContext, error)
}

// State is a step in the per-request pipeline.
type State string

const (
	StateStart      State = "start"
	StateAssembling State = "assembling"
	StateQuerying   State = "querying"
	StateSanitizing State = "sanitizing"
	StateFallback   State = "fallback"
	StateDone       State = "done"
)

// Source records where a reply came from.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Request is one inbound chat message.
type Request struct {
	Message   string
	Sender    string
	SessionID string
}

// Reply is returned for every turn, model-backed or not.
type Reply struct {
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	Source    Source    `json:"-"`
}

// Config tunes an Orchestrator.
type Config struct {
	DefaultSessionID  string
	MinResponseLength int
}

// Orchestrator coordinates the components of a chat turn.
type Orchestrator struct {
	sessions  SessionStore
	documents DocumentSource
	prompts   PromptBuilder
	model     ai.Generator
	fallback  func(string) string
	cfg       Config
}

// New wires an orchestrator. A nil model sends every turn to the fallback responder.
func New(sessions SessionStore, documents DocumentSource, prompts PromptBuilder, model ai.Generator, cfg Config) *Orchestrator {
	if cfg.DefaultSessionID == "" {
		cfg.DefaultSessionID = "default"
	}
	if cfg.MinResponseLength <= 0 {
		cfg.MinResponseLength = sanitize.MinLength
	}
	return &Orchestrator{
		sessions:  sessions,
		documents: documents,
		prompts:   prompts,
		model:     model,
		fallback:  fallback.Respond,
		cfg:       cfg,
	}
}

// ResolveSessionID returns id, or the default session id when id is blank.
func (o *Orchestrator) ResolveSessionID(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return o.cfg.DefaultSessionID
}

// Chat runs one turn. The only error is a blank message; every downstream
// failure degrades to the fallback responder.
func (o *Orchestrator) Chat(ctx context.Context, req Request) (Reply, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return Reply{}, ErrMessageRequired
	}

	sessionID := o.ResolveSessionID(req.SessionID)
	if _, err := o.sessions.GetOrCreate(ctx, sessionID); err != nil {
		return Reply{}, err
	}
	userMsg := chat.NewMessage(chat.RoleUser, text)
	o.transition(sessionID, StateStart, StateAssembling)

	history, _ := o.sessions.History(ctx, sessionID)
	var docs *document.Set
	if set, ok := o.documents.Current(); ok {
		docs = &set
	}

	response, source := o.generate(ctx, sessionID, text, history, docs)

	assistantMsg := chat.NewMessage(chat.RoleAssistant, response)
	if err := o.sessions.AppendExchange(ctx, sessionID, userMsg, assistantMsg); err != nil {
		log.Printf("[conversation] failed to record exchange for session=%s: %v", sessionID, err)
	}
	log.Printf("[conversation] session=%s sender=%s source=%s history=%d", sessionID, req.Sender, source, len(history)+2)

	return Reply{
		Response:  response,
		Timestamp: assistantMsg.Timestamp,
		SessionID: sessionID,
		Source:    source,
	}, nil
}

func (o *Orchestrator) generate(ctx context.Context, sessionID, text string, history []chat.Message, docs *document.Set) (string, Source) {
	if o.model == nil {
		o.transition(sessionID, StateAssembling, StateFallback)
		return o.respondFallback(sessionID, text)
	}

	prompt, err := o.prompts.Assemble(ctx, text, history, docs)
	if err != nil {
		log.Printf("[conversation] prompt assembly failed for session=%s: %v", sessionID, err)
		o.transition(sessionID, StateAssembling, StateFallback)
		return o.respondFallback(sessionID, text)
	}
	utils.Debugf("session=%s prompt:\n%s", sessionID, prompt.User)

	o.transition(sessionID, StateAssembling, StateQuerying)
	// In-flight queries are not cancelled by client disconnects; the
	// client timeout is the only bound.
	raw, ok := o.model.Query(context.WithoutCancel(ctx), prompt.System, prompt.User)
	if !ok {
		o.transition(sessionID, StateQuerying, StateFallback)
		return o.respondFallback(sessionID, text)
	}

	o.transition(sessionID, StateQuerying, StateSanitizing)
	cleaned := sanitize.Clean(raw)
	if !sanitize.Substantive(cleaned, o.cfg.MinResponseLength) {
		log.Printf("[conversation] session=%s model reply too short after cleaning (%d chars)", sessionID, len(cleaned))
		o.transition(sessionID, StateSanitizing, StateFallback)
		return o.respondFallback(sessionID, text)
	}

	o.transition(sessionID, StateSanitizing, StateDone)
	return cleaned, SourceModel
}

func (o *Orchestrator) respondFallback(sessionID, text string) (string, Source) {
	o.transition(sessionID, StateFallback, StateDone)
	return o.fallback(text), SourceFallback
}

func (o *Orchestrator) transition(sessionID string, from, to State) {
	utils.Debugf("session=%s %s -> %s", sessionID, from, to)
}
