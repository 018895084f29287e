package presence

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nfrund/chatrooms/internal/pubsub"
)

const (
	// DefaultHistoryLimit is how many recent messages a joining connection receives.
	DefaultHistoryLimit = 50

	// DefaultStoreTimeout bounds every MessageStore call made by the broker.
	DefaultStoreTimeout = 5 * time.Second
)

// UnknownRoomPolicy decides what join-room does with a room name that is not
// in the directory.
type UnknownRoomPolicy string

const (
	// PolicyAdHoc lets the join succeed without listing the room.
	PolicyAdHoc UnknownRoomPolicy = "adhoc"
	// PolicyCreate creates (and announces) the room before joining it.
	PolicyCreate UnknownRoomPolicy = "create"
	// PolicyReject drops the join.
	PolicyReject UnknownRoomPolicy = "reject"
)

// ParseUnknownRoomPolicy validates a policy name. The empty string maps to PolicyAdHoc.
func ParseUnknownRoomPolicy(s string) (UnknownRoomPolicy, error) {
	switch p := UnknownRoomPolicy(s); p {
	case "":
		return PolicyAdHoc, nil
	case PolicyAdHoc, PolicyCreate, PolicyReject:
		return p, nil
	default:
		return "", fmt.Errorf("unknown room policy %q (want adhoc, create or reject)", s)
	}
}

// Option is a function that configures a Broker.
type Option func(*Broker)

// WithHistoryLimit sets how many messages are replayed on join.
func WithHistoryLimit(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.historyLimit = n
		}
	}
}

// WithStoreTimeout bounds each MessageStore call.
func WithStoreTimeout(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.storeTimeout = d
		}
	}
}

// WithUnknownRoomPolicy sets the join behavior for rooms missing from the directory.
func WithUnknownRoomPolicy(p UnknownRoomPolicy) Option {
	return func(b *Broker) {
		b.policy = p
	}
}

// WithDefaultRooms replaces the rooms the directory is seeded with.
func WithDefaultRooms(names ...string) Option {
	return func(b *Broker) {
		b.seed = names
	}
}

// WithPublisher wires the bus that receives activity events.
func WithPublisher(p pubsub.Publisher) Option {
	return func(b *Broker) {
		if p != nil {
			b.publisher = p
		}
	}
}

// WithLogger overrides the broker's logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Broker) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock overrides the time source used to stamp messages. Useful for testing.
func WithClock(now func() time.Time) Option {
	return func(b *Broker) {
		b.now = now
	}
}
