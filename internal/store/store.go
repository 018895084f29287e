// Package store holds the MessageStore backends used to persist chat history.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/nfrund/chatrooms/internal/domain"
)

// ErrStore wraps every failure reported by a backend so callers can classify
// persistence errors without knowing which driver is configured.
var ErrStore = errors.New("message store")

// MessageStore persists chat messages and returns a room's recent history.
type MessageStore interface {
	// Append saves a message. Callers treat failures as best-effort.
	Append(ctx context.Context, msg domain.ChatMessage) error

	// FetchRecent returns at most limit of the room's most recent messages,
	// oldest first.
	FetchRecent(ctx context.Context, room string, limit int) ([]domain.ChatMessage, error)

	// Close releases the backend's connections.
	Close(ctx context.Context) error
}

// DefaultMaxPerRoom caps how many messages the memory and redis backends keep
// per room.
const DefaultMaxPerRoom = 1000

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

// tail copies the last limit messages of msgs.
func tail(msgs []domain.ChatMessage, limit int) []domain.ChatMessage {
	if limit <= 0 {
		return []domain.ChatMessage{}
	}
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]domain.ChatMessage, len(msgs))
	copy(out, msgs)
	return out
}
