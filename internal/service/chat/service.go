package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/law-agent/backend/internal/model/chat"
)

var (
	ErrSessionIDRequired = errors.New("session id is required")
)

// session holds one transcript behind its own lock so that requests for
// different ids never contend.
type session struct {
	mu        sync.Mutex
	createdAt time.Time
	messages  []chat.Message
	// closed is set once the session has been reset; late writers holding the
	// pointer must re-resolve the id.
	closed bool
}

// Service keeps per-session conversation state in memory. Sessions live until
// they are reset or the process exits.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

// NewService bootstraps an empty in-memory session store.
func NewService() *Service {
	return &Service{
		sessions: make(map[string]*session),
	}
}

func (s *Service) lookup(id string, create bool) *session {
	s.mu.RLock()
	sess := s.sessions[id]
	s.mu.RUnlock()
	if sess != nil || !create {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess = s.sessions[id]; sess == nil {
		sess = &session{
			createdAt: time.Now().UTC(),
			messages:  make([]chat.Message, 0, 16),
		}
		s.sessions[id] = sess
	}
	return sess
}

// GetOrCreate returns the session for id, creating an empty one when absent.
func (s *Service) GetOrCreate(_ context.Context, id string) (chat.Session, error) {
	if id == "" {
		return chat.Session{}, ErrSessionIDRequired
	}
	sess := s.lookup(id, true)
	return chat.Session{ID: id, CreatedAt: sess.createdAt}, nil
}

// Append adds a single message to the end of the session transcript,
// creating the session if needed.
func (s *Service) Append(_ context.Context, id string, message chat.Message) error {
	return s.append(id, message)
}

// AppendExchange appends a user message and the assistant reply as one unit,
// so concurrent turns on the same session never split a pair.
func (s *Service) AppendExchange(_ context.Context, id string, user, assistant chat.Message) error {
	if user.Role != chat.RoleUser || assistant.Role != chat.RoleAssistant {
		return fmt.Errorf("%w: exchange must be user then assistant", chat.ErrInvalidRole)
	}
	return s.append(id, user, assistant)
}

func (s *Service) append(id string, messages ...chat.Message) error {
	if id == "" {
		return ErrSessionIDRequired
	}
	for _, msg := range messages {
		if !msg.Role.Valid() {
			return fmt.Errorf("%w: %d", chat.ErrInvalidRole, msg.Role)
		}
	}

	for {
		sess := s.lookup(id, true)
		sess.mu.Lock()
		if sess.closed {
			sess.mu.Unlock()
			continue
		}
		for _, msg := range messages {
			msg.ID = uuid.NewString()
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now().UTC()
			}
			sess.messages = append(sess.messages, msg)
		}
		sess.mu.Unlock()
		return nil
	}
}

// History returns a copy of the transcript. The boolean is false when the
// session does not exist.
func (s *Service) History(_ context.Context, id string) ([]chat.Message, bool) {
	sess := s.lookup(id, false)
	if sess == nil {
		return nil, false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, false
	}
	copied := make([]chat.Message, len(sess.messages))
	copy(copied, sess.messages)
	return copied, true
}

// Snapshot returns the session metadata together with a copy of its transcript.
// A session reset concurrently is reported as absent.
func (s *Service) Snapshot(_ context.Context, id string) (chat.History, bool) {
	missing := chat.History{SessionID: id, Messages: []chat.Message{}}

	sess := s.lookup(id, false)
	if sess == nil {
		return missing, false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return missing, false
	}
	messages := make([]chat.Message, len(sess.messages))
	copy(messages, sess.messages)
	return chat.History{
		SessionID: id,
		CreatedAt: sess.createdAt,
		Messages:  messages,
	}, true
}

// Reset deletes the session and reports how many messages it held. Unknown
// ids are a no-op returning zero.
func (s *Service) Reset(_ context.Context, id string) int {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if !ok {
		return 0
	}
	return sess.close()
}

// ResetAll deletes every session, returning the session and message counts removed.
func (s *Service) ResetAll(_ context.Context) (sessions, messages int) {
	s.mu.Lock()
	removed := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range removed {
		messages += sess.close()
	}
	return len(removed), messages
}

// Count reports the number of live sessions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (sess *session) close() int {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.closed = true
	n := len(sess.messages)
	sess.messages = nil
	return n
}
