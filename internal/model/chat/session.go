package chat

import "time"

// Session captures a named conversation kept in process memory.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// History is a point-in-time copy of a session and its transcript.
type History struct {
	SessionID string    `json:"session_id" yaml:"session_id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Messages  []Message `json:"messages" yaml:"messages"`
}
