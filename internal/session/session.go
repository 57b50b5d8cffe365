// Package session binds conversations to owners and keeps one live dialogue
// per conversation id.
package session

import (
	"sync"
	"time"

	"github.com/capitalize-ai/assistant-gateway/internal/model"
)

// Session owns exactly one conversation. The id is supplied by the client
// transport; the owner is the identity the session was created under, and a
// different owner is never allowed in even with the same id.
type Session struct {
	ID           int64
	Owner        string
	Conversation *model.Conversation
	CreatedAt    time.Time

	// Archived counts how many leading messages have already been
	// published to the archive stream.
	Archived int

	// mu serializes spin loops for this session: an append arriving while
	// a previous loop is still running queues behind it.
	mu sync.Mutex
}

// Lock acquires the session's action lock.
func (s *Session) Lock() {
	s.mu.Lock()
}

// Unlock releases the session's action lock.
func (s *Session) Unlock() {
	s.mu.Unlock()
}
