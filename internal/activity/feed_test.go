package activity

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nfrund/chatrooms/internal/presence"
	"github.com/nfrund/chatrooms/internal/pubsub"
	"github.com/nfrund/chatrooms/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed_RingBuffer(t *testing.T) {
	f := NewFeed(3)
	assert.Empty(t, f.Recent(0))

	for i := 0; i < 2; i++ {
		f.Record(Entry{Room: fmt.Sprintf("r%d", i)})
	}
	assert.Equal(t, []string{"r0", "r1"}, rooms(f.Recent(0)))

	for i := 2; i < 5; i++ {
		f.Record(Entry{Room: fmt.Sprintf("r%d", i)})
	}
	assert.Equal(t, []string{"r2", "r3", "r4"}, rooms(f.Recent(0)))
	assert.Equal(t, []string{"r3", "r4"}, rooms(f.Recent(2)))
	assert.Equal(t, []string{"r2", "r3", "r4"}, rooms(f.Recent(10)))
}

func TestFeed_FollowsBrokerActivity(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := pubsub.NewWatermillBridge(nil)
	defer bus.Close()

	feed := NewFeed(0)
	require.NoError(t, feed.Start(ctx, bus))

	broker := presence.NewBroker(store.NewMemoryStore(0), presence.WithPublisher(bus))
	conn := &nopConn{id: "c1"}
	broker.Connect(conn)

	_, err := broker.CreateRoom(ctx, presence.CreateRoomRequest{RoomName: "Dev"})
	require.NoError(t, err)
	require.NoError(t, broker.JoinRoom(ctx, "c1", presence.JoinRoomRequest{Username: "alice", RoomName: "Dev"}))
	require.NoError(t, broker.SendMessage(ctx, "c1", presence.SendMessageRequest{Text: "hi"}))
	broker.Disconnect(ctx, "c1")

	require.Eventually(t, func() bool {
		return len(feed.Recent(0)) == 4
	}, 2*time.Second, 10*time.Millisecond)

	byTopic := map[string]Entry{}
	for _, e := range feed.Recent(0) {
		byTopic[e.Topic] = e
	}
	require.Len(t, byTopic, 4)

	assert.Equal(t, "Dev", byTopic["chat.room.created"].Room)
	assert.Equal(t, "alice", byTopic["chat.room.joined"].User)
	require.NotNil(t, byTopic["chat.room.joined"].UserCount)
	assert.Equal(t, 1, *byTopic["chat.room.joined"].UserCount)
	assert.Equal(t, "persisted", byTopic["chat.message.sent"].Detail)
	assert.Equal(t, presence.ReasonDisconnect, byTopic["chat.room.left"].Detail)
	require.NotNil(t, byTopic["chat.room.left"].UserCount)
	assert.Equal(t, 0, *byTopic["chat.room.left"].UserCount)
}

type nopConn struct{ id string }

func (c *nopConn) ID() string             { return c.id }
func (c *nopConn) Emit(string, any) error { return nil }

func rooms(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Room)
	}
	return out
}
