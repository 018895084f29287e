package websocket

import "encoding/json"

// Envelope is the frame a client sends: an event name plus its JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// outbound is the frame the server sends. Data is encoded as given.
type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}
