package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/chatrooms/internal/presence"
)

const (
	defaultSendBuffer = 256
	defaultReadLimit  = 64 * 1024
	writeTimeout      = 10 * time.Second
)

// Broker is the part of presence.Broker the bridge drives.
type Broker interface {
	Connect(conn presence.Conn)
	Dispatch(ctx context.Context, conn presence.Conn, event string, data json.RawMessage) error
	Disconnect(ctx context.Context, connID string)
}

// Bridge upgrades HTTP requests to WebSocket connections and feeds each
// connection's frames to the broker. Frames from one connection are handled
// in order on that connection's read loop.
type Bridge struct {
	broker         Broker
	originPatterns []string
	sendBuffer     int
	readLimit      int64
	logger         *slog.Logger

	mu      sync.Mutex
	clients map[string]*Client
	wg      sync.WaitGroup
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithOriginPatterns sets the host patterns allowed in the Origin header.
// Same-origin requests and requests without an Origin header are always accepted.
func WithOriginPatterns(patterns ...string) Option {
	return func(b *Bridge) {
		b.originPatterns = patterns
	}
}

// WithSendBuffer sets how many outbound frames a client may have queued.
func WithSendBuffer(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.sendBuffer = n
		}
	}
}

// WithLogger overrides the bridge's logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBridge creates a Bridge that dispatches to broker.
func NewBridge(broker Broker, opts ...Option) *Bridge {
	b := &Bridge{
		broker:     broker,
		sendBuffer: defaultSendBuffer,
		readLimit:  defaultReadLimit,
		logger:     slog.Default().With("service", "websocket"),
		clients:    make(map[string]*Client),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handler returns the echo handler for the WebSocket endpoint.
func (b *Bridge) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
			OriginPatterns: b.originPatterns,
		})
		if err != nil {
			b.logger.Warn("Failed to upgrade connection to WebSocket", "remote_addr", c.RealIP(), "error", err)
			return nil
		}
		conn.SetReadLimit(b.readLimit)

		client := newClient(uuid.NewString(), conn, b.sendBuffer)
		b.track(client)
		b.broker.Connect(client)
		b.logger.Info("Client connected", "conn_id", client.id, "remote_addr", c.RealIP())

		ctx, cancel := context.WithCancel(context.Background())
		b.wg.Add(2)
		go func() {
			defer b.wg.Done()
			b.writePump(ctx, cancel, client)
		}()
		go func() {
			defer b.wg.Done()
			b.readPump(ctx, cancel, client)
		}()
		return nil
	}
}

// readPump decodes frames until the connection fails, then disconnects the
// client from the broker.
func (b *Bridge) readPump(ctx context.Context, cancel context.CancelFunc, client *Client) {
	defer func() {
		cancel()
		b.broker.Disconnect(context.Background(), client.id)
		b.untrack(client)
		client.close()
		client.conn.Close(websocket.StatusNormalClosure, "")
		b.logger.Info("Client disconnected", "conn_id", client.id)
	}()

	for {
		_, data, err := client.conn.Read(ctx)
		if err != nil {
			switch status := websocket.CloseStatus(err); {
			case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
				b.logger.Debug("WebSocket closed by client", "conn_id", client.id)
			case errors.Is(err, io.EOF) || errors.Is(err, context.Canceled):
			default:
				b.logger.Warn("WebSocket read error", "conn_id", client.id, "error", err)
			}
			return
		}
		b.handle(ctx, client, data)
	}
}

// handle dispatches one frame. A panic is contained to this frame.
func (b *Bridge) handle(ctx context.Context, client *Client, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic while handling event", "conn_id", client.id, "panic", r)
		}
	}()

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		b.logger.Debug("Dropping malformed frame", "conn_id", client.id, "error", err)
		return
	}

	if err := b.broker.Dispatch(ctx, client, env.Event, env.Data); err != nil {
		b.logger.Debug("Dropped event", "conn_id", client.id, "event", env.Event, "error", err)
	}
}

// writePump drains the client's send channel to the connection.
func (b *Bridge) writePump(ctx context.Context, cancel context.CancelFunc, client *Client) {
	defer cancel()

	for frame := range client.send {
		writeCtx, writeCancel := context.WithTimeout(ctx, writeTimeout)
		err := client.conn.Write(writeCtx, websocket.MessageText, frame)
		writeCancel()
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				b.logger.Warn("WebSocket write error", "conn_id", client.id, "error", err)
			}
			return
		}
	}
}

func (b *Bridge) track(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client.id] = client
}

func (b *Bridge) untrack(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, client.id)
}

// Len reports how many connections are open.
func (b *Bridge) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Shutdown closes every open connection with StatusGoingAway and waits for
// their loops to finish or ctx to end.
func (b *Bridge) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	clients := make([]*Client, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.Unlock()

	for _, c := range clients {
		c.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
