package convstore

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/digestbot/internal/domain/conversation"
)

type sessionRecord struct {
	payload   conversation.Session
	expiresAt time.Time
}

// MemoryStore keeps conversation sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]sessionRecord
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]sessionRecord)}
}

// Get implements conversation.Store.
func (s *MemoryStore) Get(_ context.Context, conversationID string) (conversation.Session, bool, error) {
	s.mu.RLock()
	record, ok := s.sessions[conversationID]
	s.mu.RUnlock()
	if !ok {
		return conversation.Session{}, false, nil
	}
	if hasExpired(record.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, conversationID)
		s.mu.Unlock()
		return conversation.Session{}, false, nil
	}
	return record.payload, true, nil
}

// Save stores the session with optional TTL.
func (s *MemoryStore) Save(_ context.Context, session conversation.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	s.sessions[session.ConversationID] = sessionRecord{payload: session, expiresAt: exp}
	return nil
}

// Delete removes the session.
func (s *MemoryStore) Delete(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, conversationID)
	return nil
}

func hasExpired(exp time.Time) bool {
	return !exp.IsZero() && time.Now().After(exp)
}

var _ conversation.Store = (*MemoryStore)(nil)
