package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/coder/websocket"
)

var (
	// ErrClientClosed is returned by Emit once the client's connection is gone.
	ErrClientClosed = errors.New("websocket client closed")
	// ErrSendBufferFull is returned by Emit when the client cannot keep up.
	ErrSendBufferFull = errors.New("websocket send buffer full")
)

// Client is one connected WebSocket peer. It implements presence.Conn.
type Client struct {
	id   string
	conn *websocket.Conn

	// send is a buffered channel of encoded outbound frames drained by writePump.
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func newClient(id string, conn *websocket.Conn, buffer int) *Client {
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, buffer),
	}
}

// ID returns the connection identifier assigned on upgrade.
func (c *Client) ID() string { return c.id }

// Emit encodes the event as an {"event","data"} frame and queues it. It never
// blocks: a full buffer drops the frame and reports ErrSendBufferFull.
func (c *Client) Emit(event string, payload any) error {
	frame, err := json.Marshal(outbound{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClientClosed
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// close stops further Emits and ends writePump. Safe to call more than once.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
