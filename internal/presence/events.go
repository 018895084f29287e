package presence

import (
	"strings"

	"github.com/nfrund/chatrooms/internal/domain"
)

// Inbound event names.
const (
	EventGetRooms    = "get-rooms"
	EventCreateRoom  = "create-room"
	EventJoinRoom    = "join-room"
	EventSendMessage = "send-message"
	EventLeaveRoom   = "leave-room"
)

// Outbound event names.
const (
	EventRoomsList        = "rooms-list"
	EventRoomJoined       = "room-joined"
	EventRoomCreated      = "room-created"
	EventUserCountUpdated = "user-count-updated"
	EventMessageReceived  = "message-received"
)

// CreateRoomRequest is the payload of create-room.
type CreateRoomRequest struct {
	RoomName string `json:"roomName" validate:"required,max=100"`
}

// JoinRoomRequest is the payload of join-room.
type JoinRoomRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	RoomName string `json:"roomName" validate:"required,max=100"`
}

// SendMessageRequest is the payload of send-message.
type SendMessageRequest struct {
	Text string `json:"text" validate:"required,max=5000"`
}

// normalizer is implemented by requests whose fields are trimmed before
// validation, so whitespace-only values count as empty.
type normalizer interface {
	normalize()
}

func (r *CreateRoomRequest) normalize() {
	r.RoomName = strings.TrimSpace(r.RoomName)
}

func (r *JoinRoomRequest) normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.RoomName = strings.TrimSpace(r.RoomName)
}

func (r *SendMessageRequest) normalize() {
	r.Text = strings.TrimSpace(r.Text)
}

// RoomJoinedReply is sent to the connection that joined.
type RoomJoinedReply struct {
	Messages  []domain.ChatMessage `json:"messages"`
	UserCount int                  `json:"userCount"`
}

// UserCountUpdate is broadcast to a room whenever its occupancy changes.
type UserCountUpdate struct {
	Count int `json:"count"`
}
