package presence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nfrund/chatrooms/internal/domain"
)

// Dispatch decodes one inbound event from conn and routes it to the matching
// handler. Errors describe why an event was dropped; the transport logs them
// and carries on, nothing is sent back to the client.
func (b *Broker) Dispatch(ctx context.Context, conn Conn, event string, data json.RawMessage) error {
	switch event {
	case EventGetRooms:
		return b.GetRooms(ctx, conn.ID())

	case EventCreateRoom:
		var req CreateRoomRequest
		if err := decode(data, &req); err != nil {
			return err
		}
		_, err := b.CreateRoom(ctx, req)
		return err

	case EventJoinRoom:
		var req JoinRoomRequest
		if err := decode(data, &req); err != nil {
			return err
		}
		return b.JoinRoom(ctx, conn.ID(), req)

	case EventSendMessage:
		var req SendMessageRequest
		if err := decode(data, &req); err != nil {
			return err
		}
		return b.SendMessage(ctx, conn.ID(), req)

	case EventLeaveRoom:
		return b.LeaveRoom(ctx, conn.ID())

	default:
		return fmt.Errorf("event %q: %w", event, domain.ErrInvalid)
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalid, err)
	}
	return nil
}
