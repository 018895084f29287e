package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
)

// Topic is the untyped view of an Event, used for listing.
type Topic interface {
	Name() string
	Description() string
}

// Event[T] binds a topic name to its payload type so publishers and
// subscribers cannot disagree on the shape of a message.
type Event[T any] struct {
	name        string
	description string
}

// NewEvent defines a typed event on the given topic.
func NewEvent[T any](name, description string) Event[T] {
	return Event[T]{name: name, description: description}
}

// Name returns the topic name.
func (e Event[T]) Name() string {
	return e.name
}

// Description returns the human readable purpose of the event.
func (e Event[T]) Description() string {
	return e.description
}

// Publish sends a typed event. The compiler ensures 'payload' matches 'T'.
func Publish[T any](ctx context.Context, p Publisher, event Event[T], payload T) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event.Name(), err)
	}
	return p.Publish(ctx, Message{
		Topic:   event.Name(),
		Payload: data,
	})
}

// Subscribe decodes every message on the event's topic into T before calling handler.
func Subscribe[T any](ctx context.Context, s Subscriber, event Event[T], handler func(context.Context, T) error) error {
	return s.Subscribe(ctx, event.Name(), func(ctx context.Context, msg Message) error {
		var payload T
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal %s: %w", event.Name(), err)
		}
		return handler(ctx, payload)
	})
}
