package core

import (
	"fmt"
	"strings"
)

// CommandFunc handles one named slash-command. arg is the remainder of
// the command line after the first space, trimmed. Handlers return the
// outbound messages, each already carrying resolved recipients; replies
// to the author use Convert's default reply route.
type CommandFunc func(dir *Directory, msg Message, arg string) []Message

// SplitCommand splits a "/name rest" command line into its name and the
// trimmed remainder.
func SplitCommand(text string) (name, arg string) {
	name, arg, _ = strings.Cut(strings.TrimPrefix(text, "/"), " ")
	return name, strings.TrimSpace(arg)
}

// generalCommands is the fixed registry of HOME/general operations.
// Lookup by name replaces any dynamic dispatch; a missing key is the
// "no such command" case, handled by the router.
func generalCommands() map[string]CommandFunc {
	return map[string]CommandFunc{
		"join":          cmdJoin,
		"add_room":      cmdAddRoom,
		"add_house":     cmdAddHouse,
		"ban":           cmdBan,
		"unban":         cmdUnban,
		"toggle_silent": cmdToggleSilent,
		"clear_chat":    cmdClearChat,
		"archive":       cmdArchive,
	}
}

// actionCommands is the registry for commands typed inside a direct
// message room. The router substitutes the room name as the implicit
// target argument, so most entries are the general handlers themselves.
func actionCommands() map[string]CommandFunc {
	return map[string]CommandFunc{
		"ban":           cmdBan,
		"unban":         cmdUnban,
		"toggle_silent": cmdToggleSilent,
		"clear_chat":    cmdClearChat,
		"del_room":      cmdDelRoom,
		"archive":       cmdArchive,
	}
}

func cmdJoin(dir *Directory, msg Message, arg string) []Message {
	if arg == "" {
		return usage(msg, "/join <house>")
	}
	if !dir.HasHouse(arg) {
		return []Message{msg.Convert(Patch{Text: "No such house"})}
	}
	return dir.HouseMessage(arg, msg)
}

func cmdAddRoom(dir *Directory, msg Message, arg string) []Message {
	switch {
	case arg == "":
		return usage(msg, "/add_room <user>")
	case arg == msg.Sender:
		return []Message{msg.Convert(Patch{
			Text: "Chatting with yourself? The general room of this house is all yours",
		})}
	case !dir.HasUser(arg):
		return []Message{msg.Convert(Patch{Text: "No user with that name"})}
	case dir.HasBanned(arg, msg.Sender):
		return []Message{msg.Convert(Patch{Text: "This user has blocked you"})}
	}
	return []Message{
		msg.Convert(Patch{Action: "add_room", Data: map[string]any{"room": arg}}),
		msg.Convert(Patch{Text: fmt.Sprintf("You can now chat with %s", arg)}),
	}
}

func cmdAddHouse(dir *Directory, msg Message, arg string) []Message {
	if arg == "" {
		return []Message{msg.Convert(Patch{Text: "The house must have a name"})}
	}
	h, err := dir.CreateHouse(arg, msg.Sender)
	if err != nil {
		return []Message{msg.Convert(Patch{Text: "There is already a house with that name"})}
	}
	return []Message{msg.Convert(Patch{
		House:  arg,
		Action: "add_house",
		Data:   map[string]any{"house": h.ClientData()},
	})}
}

func cmdBan(dir *Directory, msg Message, arg string) []Message {
	switch {
	case arg == "":
		return usage(msg, "/ban <user>")
	case !dir.HasUser(arg):
		return []Message{msg.Convert(Patch{Text: "No user with that name"})}
	case !dir.Ban(msg.Sender, arg):
		return []Message{msg.Convert(Patch{Text: "This user is already banned"})}
	}
	return []Message{msg.Convert(Patch{
		Text: fmt.Sprintf("User %s can no longer send you direct messages", arg),
	})}
}

func cmdUnban(dir *Directory, msg Message, arg string) []Message {
	if arg == "" {
		return usage(msg, "/unban <user>")
	}
	if !dir.Unban(msg.Sender, arg) {
		return []Message{msg.Convert(Patch{Text: "This user is not banned by you"})}
	}
	return []Message{msg.Convert(Patch{
		Text: fmt.Sprintf("User %s can send you direct messages again", arg),
	})}
}

func cmdToggleSilent(_ *Directory, msg Message, _ string) []Message {
	return []Message{msg.Convert(Patch{Action: "toggle_silent"})}
}

func cmdClearChat(_ *Directory, msg Message, _ string) []Message {
	return []Message{msg.Convert(Patch{Action: "clear_chat"})}
}

func cmdDelRoom(_ *Directory, msg Message, _ string) []Message {
	// Client-side thread removal only; no directory mutation.
	return []Message{msg.Convert(Patch{Action: "del_room"})}
}

func cmdArchive(_ *Directory, msg Message, arg string) []Message {
	if arg == "" {
		return []Message{msg.Convert(Patch{Text: "A name is required to archive"})}
	}
	return []Message{msg.Convert(Patch{Action: "archive"})}
}

func usage(msg Message, hint string) []Message {
	return []Message{msg.Convert(Patch{Text: "Invalid usage, try: " + hint})}
}
