package core

import (
	"fmt"
	"strings"
)

// Router decides, per inbound message, whether it is HOME-scope control
// or direct-message traffic or belongs to a real house, and dispatches
// accordingly. It holds no state of its own beyond the command
// registries, so it is safe to call from every receiver goroutine.
type Router struct {
	dir     *Directory
	general map[string]CommandFunc
	actions map[string]CommandFunc
}

// NewRouter builds a router over the directory with the default command
// registries.
func NewRouter(dir *Directory) *Router {
	return &Router{
		dir:     dir,
		general: generalCommands(),
		actions: actionCommands(),
	}
}

// Route processes one inbound message and returns zero or more outbound
// messages, each with resolved recipients. Error replies (unknown
// command, bad arguments, ban rejections) always route to the author
// only.
func (r *Router) Route(msg Message) []Message {
	if msg.House != HomeHouse {
		return r.dir.HouseMessage(msg.House, msg)
	}

	if msg.Room == GeneralRoom {
		if strings.HasPrefix(msg.Text, "/") {
			return r.dispatch(r.general, msg, false)
		}
		// HOME/general chat is an author-only local echo, not a
		// broadcast. Deliberate; see the product note in DESIGN.md.
		return []Message{msg.Convert(Patch{Sender: SelfSender})}
	}

	if strings.HasPrefix(msg.Text, "/") {
		return r.dispatch(r.actions, msg, true)
	}
	return r.directMessage(msg)
}

func (r *Router) dispatch(registry map[string]CommandFunc, msg Message, action bool) []Message {
	name, arg := SplitCommand(msg.Text)
	handler, ok := registry[name]
	if !ok {
		return []Message{msg.Convert(Patch{
			Text: fmt.Sprintf("No such command: /%s", name),
		})}
	}
	if action {
		arg = msg.Room
	}
	return handler(r.dir, msg, arg)
}

// directMessage relays a HOME direct message. The target gains the
// sender as a DM thread unless it banned the sender; the author always
// gets a self echo; if the author banned the target nothing is sent but
// an explanatory reply.
func (r *Router) directMessage(msg Message) []Message {
	target := msg.Room

	if !r.dir.HasUser(target) {
		return []Message{msg.Convert(Patch{Text: "No user with that name"})}
	}
	if r.dir.HasBanned(msg.Sender, target) {
		return []Message{msg.Convert(Patch{
			Text: fmt.Sprintf("You have banned this user, to undo type /unban %s", target),
		})}
	}

	out := make([]Message, 0, 3)
	if !r.dir.HasBanned(target, msg.Sender) {
		out = append(out,
			msg.Convert(Patch{
				Action:     "add_room",
				Data:       map[string]any{"room": msg.Sender},
				Recipients: []string{target},
			}),
			msg.Convert(Patch{
				Room:       msg.Sender,
				Recipients: []string{target},
			}),
		)
	}
	return append(out, msg.Convert(Patch{Sender: SelfSender}))
}
