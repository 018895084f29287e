package websocket_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/chatrooms/internal/domain"
	"github.com/nfrund/chatrooms/internal/presence"
	"github.com/nfrund/chatrooms/internal/store"
	ws "github.com/nfrund/chatrooms/internal/websocket"
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type testFixture struct {
	broker *presence.Broker
	bridge *ws.Bridge
	server *httptest.Server
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	broker := presence.NewBroker(store.NewMemoryStore(0))
	bridge := ws.NewBridge(broker)

	e := echo.New()
	e.GET("/ws", bridge.Handler())
	server := httptest.NewServer(e)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = bridge.Shutdown(ctx)
		server.Close()
	})

	return &testFixture{broker: broker, bridge: bridge, server: server}
}

func dial(t *testing.T, server *httptest.Server) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *gws.Conn, event string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"event": event, "data": data}))
}

// readEvent reads frames until one named event arrives and matches accept.
func readEvent(t *testing.T, conn *gws.Conn, event string, accept func(json.RawMessage) bool) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f), "waiting for %s", event)
		if f.Event == event && (accept == nil || accept(f.Data)) {
			return f.Data
		}
	}
}

func countIs(n int) func(json.RawMessage) bool {
	return func(data json.RawMessage) bool {
		var u presence.UserCountUpdate
		return json.Unmarshal(data, &u) == nil && u.Count == n
	}
}

func TestBridge_GetRooms(t *testing.T) {
	fx := setupTestFixture(t)
	conn := dial(t, fx.server)

	send(t, conn, presence.EventGetRooms, nil)

	var rooms []domain.Room
	require.NoError(t, json.Unmarshal(readEvent(t, conn, presence.EventRoomsList, nil), &rooms))
	assert.Equal(t, []domain.Room{
		{Name: "General"}, {Name: "Tech Talk"}, {Name: "Random"},
	}, rooms)
}

func TestBridge_ChatRoundTrip(t *testing.T) {
	fx := setupTestFixture(t)
	alice := dial(t, fx.server)
	bob := dial(t, fx.server)

	send(t, alice, presence.EventJoinRoom, map[string]string{"username": "alice", "roomName": "General"})
	var joined presence.RoomJoinedReply
	require.NoError(t, json.Unmarshal(readEvent(t, alice, presence.EventRoomJoined, nil), &joined))
	assert.Empty(t, joined.Messages)
	assert.Equal(t, 1, joined.UserCount)

	send(t, bob, presence.EventJoinRoom, map[string]string{"username": "bob", "roomName": "General"})
	readEvent(t, bob, presence.EventRoomJoined, nil)
	readEvent(t, alice, presence.EventUserCountUpdated, countIs(2))

	send(t, alice, presence.EventSendMessage, map[string]string{"text": "hi"})
	for _, conn := range []*gws.Conn{alice, bob} {
		var msg domain.ChatMessage
		require.NoError(t, json.Unmarshal(readEvent(t, conn, presence.EventMessageReceived, nil), &msg))
		assert.Equal(t, "alice", msg.User)
		assert.Equal(t, "General", msg.Room)
		assert.Equal(t, "hi", msg.Text)
		assert.NotEmpty(t, msg.Timestamp)
	}

	// A late joiner sees the history.
	carol := dial(t, fx.server)
	send(t, carol, presence.EventJoinRoom, map[string]string{"username": "carol", "roomName": "General"})
	var carolJoined presence.RoomJoinedReply
	require.NoError(t, json.Unmarshal(readEvent(t, carol, presence.EventRoomJoined, nil), &carolJoined))
	require.Len(t, carolJoined.Messages, 1)
	assert.Equal(t, "hi", carolJoined.Messages[0].Text)
	assert.Equal(t, 3, carolJoined.UserCount)
	readEvent(t, bob, presence.EventUserCountUpdated, countIs(3))

	// Dropping a socket counts as leaving.
	require.NoError(t, alice.Close())
	readEvent(t, bob, presence.EventUserCountUpdated, countIs(2))
	assert.Eventually(t, func() bool {
		return fx.broker.Directory().Occupancy("General") == 2
	}, time.Second, 10*time.Millisecond)
}

func TestBridge_MalformedFrameKeepsConnection(t *testing.T) {
	fx := setupTestFixture(t)
	conn := dial(t, fx.server)

	require.NoError(t, conn.WriteMessage(gws.TextMessage, []byte(`{invalid json`)))
	send(t, conn, "no-such-event", nil)
	send(t, conn, presence.EventCreateRoom, map[string]string{"roomName": ""})

	send(t, conn, presence.EventGetRooms, nil)
	readEvent(t, conn, presence.EventRoomsList, nil)
}

func TestBridge_CreateRoomBroadcast(t *testing.T) {
	fx := setupTestFixture(t)
	a := dial(t, fx.server)
	b := dial(t, fx.server)

	// Make sure both connections are registered before creating.
	send(t, a, presence.EventGetRooms, nil)
	readEvent(t, a, presence.EventRoomsList, nil)
	send(t, b, presence.EventGetRooms, nil)
	readEvent(t, b, presence.EventRoomsList, nil)

	send(t, a, presence.EventCreateRoom, map[string]string{"roomName": "Dev"})
	for _, conn := range []*gws.Conn{a, b} {
		var room domain.Room
		require.NoError(t, json.Unmarshal(readEvent(t, conn, presence.EventRoomCreated, nil), &room))
		assert.Equal(t, domain.Room{Name: "Dev"}, room)
	}
}

func TestBridge_ShutdownClosesClients(t *testing.T) {
	fx := setupTestFixture(t)
	conn := dial(t, fx.server)

	send(t, conn, presence.EventGetRooms, nil)
	readEvent(t, conn, presence.EventRoomsList, nil)
	assert.Equal(t, 1, fx.bridge.Len())

	// Keep reading so the close handshake can complete.
	errc := make(chan error, 1)
	go func() {
		_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, _, err := conn.ReadMessage()
		errc <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, fx.bridge.Shutdown(ctx))

	assert.Equal(t, 0, fx.bridge.Len())
	assert.Equal(t, 0, fx.broker.Registry().Len())

	err := <-errc
	assert.True(t, gws.IsCloseError(err, gws.CloseGoingAway), "got %v", err)
}
