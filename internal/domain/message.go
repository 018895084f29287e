package domain

import "time"

// TimestampLayout renders the human readable wall-clock time shown next to a message.
const TimestampLayout = "3:04:05 PM"

// ChatMessage is a single message posted to a room. It is immutable once created.
type ChatMessage struct {
	Room      string    `json:"room" bson:"room"`
	User      string    `json:"user" bson:"user"`
	Text      string    `json:"text" bson:"text"`
	Timestamp string    `json:"timestamp" bson:"timestamp"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// NewChatMessage stamps a message with both its display timestamp and creation time.
func NewChatMessage(room, user, text string, now time.Time) ChatMessage {
	return ChatMessage{
		Room:      room,
		User:      user,
		Text:      text,
		Timestamp: now.Format(TimestampLayout),
		CreatedAt: now,
	}
}
