package presence

import (
	"context"
	"errors"
	"sync"

	"github.com/nfrund/chatrooms/internal/domain"
	"github.com/nfrund/chatrooms/internal/pubsub"
)

type emitted struct {
	Event   string
	Payload any
}

// fakeConn records every event emitted to it.
type fakeConn struct {
	id     string
	mu     sync.Mutex
	events []emitted
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Emit(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, emitted{Event: event, Payload: payload})
	return nil
}

func (c *fakeConn) all() []emitted {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]emitted, len(c.events))
	copy(out, c.events)
	return out
}

func (c *fakeConn) named(event string) []emitted {
	var out []emitted
	for _, e := range c.all() {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (c *fakeConn) last() emitted {
	all := c.all()
	if len(all) == 0 {
		return emitted{}
	}
	return all[len(all)-1]
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

var errStoreDown = errors.New("store down")

// fakeStore keeps messages in memory and can be told to fail or to block
// inside FetchRecent.
type fakeStore struct {
	mu         sync.Mutex
	messages   []domain.ChatMessage
	appendErr  error
	fetchErr   error
	lastLimit  int
	descending bool

	fetchStarted chan struct{}
	fetchRelease chan struct{}
}

func (s *fakeStore) Append(ctx context.Context, msg domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *fakeStore) FetchRecent(ctx context.Context, room string, limit int) ([]domain.ChatMessage, error) {
	if s.fetchStarted != nil {
		s.fetchStarted <- struct{}{}
		<-s.fetchRelease
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLimit = limit
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}

	var out []domain.ChatMessage
	for _, m := range s.messages {
		if m.Room == room {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	if s.descending {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// recordingPublisher implements pubsub.Publisher for testing.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []pubsub.Message
}

func (p *recordingPublisher) Publish(ctx context.Context, msg pubsub.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.messages))
	for _, m := range p.messages {
		out = append(out, m.Topic)
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = nil
}
