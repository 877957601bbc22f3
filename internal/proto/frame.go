package proto

import "github.com/hearthchat/hearth-server/internal/core"

// ProtocolVersion is sent by WebSocket clients in their hello and bumped
// on any incompatible wire change.
const ProtocolVersion = 1

// DefaultMaxFrameSize bounds a single frame payload unless configured
// otherwise.
const DefaultMaxFrameSize = 1 << 20

// Frame is the wire form of a message. Recipients are resolved by the
// server and never cross the wire.
type Frame struct {
	Sender string         `json:"sender"`
	House  string         `json:"house"`
	Room   string         `json:"room"`
	Text   string         `json:"text,omitempty"`
	Action string         `json:"action,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// Hello opens a session on the WebSocket gateway. Cursor is the offline
// catch-up position, -1 to skip catch-up.
type Hello struct {
	User     string `json:"user"`
	Cursor   int    `json:"cursor"`
	Protocol int    `json:"protocol,omitempty"`
}

// FromMessage converts a domain message to its wire form.
func FromMessage(m core.Message) Frame {
	return Frame{
		Sender: m.Sender,
		House:  m.House,
		Room:   m.Room,
		Text:   m.Text,
		Action: m.Action,
		Data:   m.Data,
	}
}

// Message converts a received frame to the domain type.
func (f Frame) Message() core.Message {
	return core.Message{
		Sender: f.Sender,
		House:  f.House,
		Room:   f.Room,
		Text:   f.Text,
		Action: f.Action,
		Data:   f.Data,
	}
}
