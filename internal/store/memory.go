package store

import (
	"context"
	"sync"

	"github.com/nfrund/chatrooms/internal/domain"
)

var _ MessageStore = (*MemoryStore)(nil)

// MemoryStore keeps history in process memory. It is the default backend and
// loses everything on restart.
type MemoryStore struct {
	mu         sync.RWMutex
	rooms      map[string][]domain.ChatMessage
	maxPerRoom int
}

// NewMemoryStore creates a MemoryStore keeping at most maxPerRoom messages per
// room (DefaultMaxPerRoom when maxPerRoom <= 0).
func NewMemoryStore(maxPerRoom int) *MemoryStore {
	if maxPerRoom <= 0 {
		maxPerRoom = DefaultMaxPerRoom
	}
	return &MemoryStore{
		rooms:      make(map[string][]domain.ChatMessage),
		maxPerRoom: maxPerRoom,
	}
}

// Append implements MessageStore.
func (s *MemoryStore) Append(ctx context.Context, msg domain.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return wrap("append", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := append(s.rooms[msg.Room], msg)
	if over := len(msgs) - s.maxPerRoom; over > 0 {
		msgs = append([]domain.ChatMessage(nil), msgs[over:]...)
	}
	s.rooms[msg.Room] = msgs
	return nil
}

// FetchRecent implements MessageStore.
func (s *MemoryStore) FetchRecent(ctx context.Context, room string, limit int) ([]domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap("fetch recent", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return tail(s.rooms[room], limit), nil
}

// Close implements MessageStore.
func (s *MemoryStore) Close(ctx context.Context) error { return nil }
