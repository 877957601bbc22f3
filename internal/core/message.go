package core

// Reserved routing names.
const (
	// HomeHouse is the pseudo-house carrying control commands and direct
	// messages. It is never a real House entity.
	HomeHouse = "HOME"
	// GeneralRoom is the house-wide room inside any house scope.
	GeneralRoom = "general"
	// ServerSender marks messages originated by the server itself.
	ServerSender = "SERVER"
	// SelfSender marks local echoes rendered only on the author's client.
	SelfSender = "self"
)

// Message is the unit of routing: one logical chat or control payload
// addressed to a house/room pair.
//
// Sender is the plain display name until the broadcaster rewrites it with
// color markup; nothing before that point may mutate it.
type Message struct {
	Sender     string
	House      string
	Room       string
	Text       string
	Action     string
	Data       map[string]any
	Recipients []string
}

// Patch selects fields to override in Convert. Zero-valued fields are
// copied from the original message unchanged.
type Patch struct {
	Sender     string
	House      string
	Room       string
	Text       string
	Action     string
	Data       map[string]any
	Recipients []string
}

// Convert clones the message with the patch's non-zero fields applied.
// When the patch carries no recipients the clone routes back to the
// original sender, which is the common reply path.
func (m Message) Convert(p Patch) Message {
	out := m
	if p.Sender != "" {
		out.Sender = p.Sender
	}
	if p.House != "" {
		out.House = p.House
	}
	if p.Room != "" {
		out.Room = p.Room
	}
	if p.Text != "" {
		out.Text = p.Text
	}
	if p.Action != "" {
		out.Action = p.Action
	}
	if p.Data != nil {
		out.Data = p.Data
	}
	if p.Recipients != nil {
		out.Recipients = p.Recipients
	} else {
		out.Recipients = []string{m.Sender}
	}
	return out
}

// TakeRecipients returns the resolved recipient list exactly once and
// clears it; later calls return nil. Callers hand the list straight to
// the broadcaster and must not re-read it.
func (m *Message) TakeRecipients() []string {
	r := m.Recipients
	m.Recipients = nil
	return r
}
