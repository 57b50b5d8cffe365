package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/capitalize-ai/assistant-gateway/internal/model"
	"github.com/capitalize-ai/assistant-gateway/pkg/metrics"
)

// ErrOwnerMismatch is returned when a session exists under a different
// owner than the one asking for it.
var ErrOwnerMismatch = errors.New("session belongs to a different owner")

// Store is the injected session registry abstraction. Implementations may
// swap the in-memory map for a bounded cache or an external store without
// touching the turn engine or spin loop.
type Store interface {
	// GetOrCreate returns the session for id, creating it lazily with the
	// given system prompt on first sight. A session created under one
	// owner is inaccessible to any other owner.
	GetOrCreate(ctx context.Context, id int64, owner, system string) (*Session, bool, error)

	// Get returns the session for id if it exists and belongs to owner.
	Get(ctx context.Context, id int64, owner string) (*Session, bool, error)
}

// MemoryStore keeps all sessions in a process-wide map for the lifetime of
// the process. No eviction; sessions vanish on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]*Session)}
}

// GetOrCreate implements Store.
func (s *MemoryStore) GetOrCreate(_ context.Context, id int64, owner, system string) (*Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[id]; ok {
		if existing.Owner != owner {
			return nil, false, ErrOwnerMismatch
		}
		return existing, false, nil
	}

	created := &Session{
		ID:           id,
		Owner:        owner,
		Conversation: model.NewConversation(system),
		CreatedAt:    time.Now(),
	}
	s.sessions[id] = created
	metrics.SessionsActive.Set(float64(len(s.sessions)))
	return created, true, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id int64, owner string) (*Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing, ok := s.sessions[id]
	if !ok {
		return nil, false, nil
	}
	if existing.Owner != owner {
		return nil, false, ErrOwnerMismatch
	}
	return existing, true, nil
}
