package core

import (
	"fmt"
	"sort"
	"strings"
)

// Default ranks assigned when a house is created.
const (
	RankOwner  = "owner"
	RankMember = "member"
)

// Rank maps a named position inside a house to a display color.
type Rank struct {
	Name  string
	Color string
}

// House is a named persistent group-chat space with ranked membership.
// Houses are created once, live for the server lifetime and are persisted
// in the snapshot; they are never destroyed in-process.
//
// A House instance is owned by the Directory and must only be touched
// while the Directory lock is held.
type House struct {
	Name    string
	Creator string
	Rooms   []string
	Members map[string]string // username -> rank name
	Ranks   map[string]Rank   // rank name -> rank
}

// NewHouse creates a house with the creator as its sole member at the
// owner rank.
func NewHouse(name, creator string) *House {
	return &House{
		Name:    name,
		Creator: creator,
		Rooms:   []string{GeneralRoom},
		Members: map[string]string{creator: RankOwner},
		Ranks: map[string]Rank{
			RankOwner:  {Name: RankOwner, Color: "red"},
			RankMember: {Name: RankMember, Color: "cyan"},
		},
	}
}

// HasMember reports whether the user belongs to the house.
func (h *House) HasMember(user string) bool {
	_, ok := h.Members[user]
	return ok
}

// MemberColor resolves the display color for a member through its rank.
func (h *House) MemberColor(user string) (string, bool) {
	rankName, ok := h.Members[user]
	if !ok {
		return "", false
	}
	rank, ok := h.Ranks[rankName]
	if !ok {
		return "", false
	}
	return rank.Color, true
}

// ClientData is the displayable snapshot sent as the add_house action
// payload, consumed by clients to render the room tree.
func (h *House) ClientData() map[string]any {
	memberColors := make(map[string]any, len(h.Members))
	for user, rankName := range h.Members {
		color := "white"
		if rank, ok := h.Ranks[rankName]; ok {
			color = rank.Color
		}
		memberColors[user] = color
	}
	return map[string]any{
		"name":    h.Name,
		"rooms":   append([]string(nil), h.Rooms...),
		"members": memberColors,
	}
}

// ProcessMessage handles a message addressed to this house and returns
// the outbound replies, each carrying resolved recipients.
//
// This is the v1 collaborator contract: /join adds a member at the
// default rank, /members lists membership, plain text fans out to every
// other member plus a local echo. Rank administration is deliberately
// not part of v1.
func (h *House) ProcessMessage(msg Message) []Message {
	if strings.HasPrefix(msg.Text, "/") {
		name, _ := SplitCommand(msg.Text)
		switch name {
		case "join":
			return h.processJoin(msg)
		case "members":
			return []Message{msg.Convert(Patch{Text: h.memberListing()})}
		default:
			return []Message{msg.Convert(Patch{Text: "No such command in this house"})}
		}
	}

	if !h.HasMember(msg.Sender) {
		return []Message{msg.Convert(Patch{Text: "You are not a member of this house"})}
	}

	out := make([]Message, 0, 2)
	if others := h.otherMembers(msg.Sender); len(others) > 0 {
		out = append(out, msg.Convert(Patch{Recipients: others}))
	}
	out = append(out, msg.Convert(Patch{Sender: SelfSender}))
	return out
}

func (h *House) processJoin(msg Message) []Message {
	if h.HasMember(msg.Sender) {
		return []Message{msg.Convert(Patch{Text: "You are already a member of this house"})}
	}

	h.Members[msg.Sender] = RankMember

	out := []Message{msg.Convert(Patch{
		House:  h.Name,
		Action: "add_house",
		Data:   map[string]any{"house": h.ClientData()},
	})}
	if others := h.otherMembers(msg.Sender); len(others) > 0 {
		out = append(out, msg.Convert(Patch{
			Sender:     ServerSender,
			House:      h.Name,
			Text:       fmt.Sprintf("%s joined the house", msg.Sender),
			Recipients: others,
		}))
	}
	return out
}

func (h *House) otherMembers(except string) []string {
	out := make([]string, 0, len(h.Members))
	for user := range h.Members {
		if user != except {
			out = append(out, user)
		}
	}
	sort.Strings(out)
	return out
}

func (h *House) memberListing() string {
	var b strings.Builder
	b.WriteString("Members of " + h.Name + ":")
	for _, user := range sortedKeys(h.Members) {
		fmt.Fprintf(&b, "\n%s (%s)", user, h.Members[user])
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
