// Package activity keeps a bounded, in-memory record of what the broker has
// been doing, fed from the pub/sub bus.
package activity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nfrund/chatrooms/internal/presence"
	"github.com/nfrund/chatrooms/internal/pubsub"
)

// DefaultCapacity is how many entries a Feed keeps when none is given.
const DefaultCapacity = 200

// Entry is one line of the activity feed.
type Entry struct {
	Topic     string    `json:"topic"`
	Room      string    `json:"room"`
	User      string    `json:"user,omitempty"`
	UserCount *int      `json:"userCount,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

// Feed is a ring buffer of the most recent entries.
type Feed struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
	logger  *slog.Logger
}

// NewFeed creates a Feed holding up to capacity entries.
func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Feed{
		entries: make([]Entry, capacity),
		logger:  slog.Default().With("service", "activity"),
	}
}

// Start subscribes the feed to every broker activity topic. Delivery runs in
// the background until ctx is canceled or the subscriber is closed.
func (f *Feed) Start(ctx context.Context, sub pubsub.Subscriber) error {
	if err := pubsub.Subscribe(ctx, sub, presence.TopicRoomCreated, f.onRoomCreated); err != nil {
		return fmt.Errorf("subscribe %s: %w", presence.TopicRoomCreated.Name(), err)
	}
	if err := pubsub.Subscribe(ctx, sub, presence.TopicRoomJoined, f.onRoomJoined); err != nil {
		return fmt.Errorf("subscribe %s: %w", presence.TopicRoomJoined.Name(), err)
	}
	if err := pubsub.Subscribe(ctx, sub, presence.TopicRoomLeft, f.onRoomLeft); err != nil {
		return fmt.Errorf("subscribe %s: %w", presence.TopicRoomLeft.Name(), err)
	}
	if err := pubsub.Subscribe(ctx, sub, presence.TopicMessageSent, f.onMessageSent); err != nil {
		return fmt.Errorf("subscribe %s: %w", presence.TopicMessageSent.Name(), err)
	}
	f.logger.Info("Activity feed subscribed", "capacity", len(f.entries))
	return nil
}

func (f *Feed) onRoomCreated(ctx context.Context, e presence.RoomCreated) error {
	f.Record(Entry{Topic: presence.TopicRoomCreated.Name(), Room: e.Room, At: e.At})
	return nil
}

func (f *Feed) onRoomJoined(ctx context.Context, e presence.RoomJoined) error {
	count := e.UserCount
	f.Record(Entry{Topic: presence.TopicRoomJoined.Name(), Room: e.Room, User: e.User, UserCount: &count, At: e.At})
	return nil
}

func (f *Feed) onRoomLeft(ctx context.Context, e presence.RoomLeft) error {
	count := e.UserCount
	f.Record(Entry{
		Topic:     presence.TopicRoomLeft.Name(),
		Room:      e.Room,
		User:      e.User,
		UserCount: &count,
		Detail:    e.Reason,
		At:        e.At,
	})
	return nil
}

func (f *Feed) onMessageSent(ctx context.Context, e presence.MessageSent) error {
	detail := "persisted"
	if !e.Persisted {
		detail = "not persisted"
	}
	f.Record(Entry{
		Topic:  presence.TopicMessageSent.Name(),
		Room:   e.Message.Room,
		User:   e.Message.User,
		Detail: detail,
		At:     e.Message.CreatedAt,
	})
	return nil
}

// Record appends an entry, overwriting the oldest once the feed is full.
func (f *Feed) Record(e Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries[f.next] = e
	f.next = (f.next + 1) % len(f.entries)
	if f.next == 0 {
		f.full = true
	}
}

// Recent returns up to n entries, oldest first. n <= 0 returns everything held.
func (f *Feed) Recent(n int) []Entry {
	f.mu.RLock()
	defer f.mu.RUnlock()

	size := f.next
	if f.full {
		size = len(f.entries)
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]Entry, 0, n)
	start := f.next - n
	if start < 0 {
		start += len(f.entries)
	}
	for i := 0; i < n; i++ {
		out = append(out, f.entries[(start+i)%len(f.entries)])
	}
	return out
}
