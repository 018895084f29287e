package presence

import (
	"time"

	"github.com/nfrund/chatrooms/internal/domain"
	"github.com/nfrund/chatrooms/internal/pubsub"
)

// Activity events published on the bus after each successful state change.
// They are informational: nothing in the broker depends on them being delivered.

// RoomCreated is published when a room is listed for the first time.
type RoomCreated struct {
	Room string    `json:"room"`
	At   time.Time `json:"at"`
}

// RoomJoined is published when a connection binds to a room.
type RoomJoined struct {
	ConnID    string    `json:"connId"`
	User      string    `json:"user"`
	Room      string    `json:"room"`
	UserCount int       `json:"userCount"`
	At        time.Time `json:"at"`
}

// RoomLeft is published when a connection's binding ends.
type RoomLeft struct {
	ConnID    string    `json:"connId"`
	User      string    `json:"user"`
	Room      string    `json:"room"`
	UserCount int       `json:"userCount"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

// MessageSent is published once a message has been relayed to its room.
type MessageSent struct {
	Message   domain.ChatMessage `json:"message"`
	Persisted bool               `json:"persisted"`
}

// Reasons carried by RoomLeft.
const (
	ReasonLeave      = "leave"
	ReasonDisconnect = "disconnect"
	ReasonRejoin     = "rejoin"
)

var (
	TopicRoomCreated = pubsub.NewEvent[RoomCreated]("chat.room.created", "A room was added to the directory")
	TopicRoomJoined  = pubsub.NewEvent[RoomJoined]("chat.room.joined", "A connection joined a room")
	TopicRoomLeft    = pubsub.NewEvent[RoomLeft]("chat.room.left", "A connection left a room")
	TopicMessageSent = pubsub.NewEvent[MessageSent]("chat.message.sent", "A chat message was relayed to a room")
)

// Topics lists every activity event the broker publishes.
func Topics() []pubsub.Topic {
	return []pubsub.Topic{TopicRoomCreated, TopicRoomJoined, TopicRoomLeft, TopicMessageSent}
}
