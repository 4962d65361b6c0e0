package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/webstylepress/chatbot-backend/internal/model/chat"
)

// MemoryStore keeps messages in process memory. It backs tests and serves as
// the last-resort store when no database is configured; history does not
// survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[chat.SessionID][]chat.Message
}

// NewMemoryStore returns an empty in-memory message store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[chat.SessionID][]chat.Message)}
}

// Save appends a message to its session.
func (s *MemoryStore) Save(_ context.Context, msg chat.Message) (chat.Message, error) {
	if err := msg.Validate(); err != nil {
		return chat.Message{}, err
	}

	msg.ID = uuid.NewString()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	s.sessions[msg.SessionID] = append(s.sessions[msg.SessionID], msg)
	s.mu.Unlock()

	return msg, nil
}

// Find returns a session's messages in ascending timestamp order.
func (s *MemoryStore) Find(_ context.Context, sessionID chat.SessionID, offset, limit int) ([]chat.Message, error) {
	s.mu.RLock()
	stored := s.sessions[sessionID]
	copied := make([]chat.Message, len(stored))
	copy(copied, stored)
	s.mu.RUnlock()

	// Messages are appended in insertion order; a stable sort preserves that
	// order for equal timestamps.
	sort.SliceStable(copied, func(i, j int) bool {
		return copied[i].Timestamp.Before(copied[j].Timestamp)
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(copied) {
		return []chat.Message{}, nil
	}
	copied = copied[offset:]
	if limit > 0 && limit < len(copied) {
		copied = copied[:limit]
	}
	return copied, nil
}

// Count reports how many messages a session holds.
func (s *MemoryStore) Count(_ context.Context, sessionID chat.SessionID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.sessions[sessionID])), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
