package core

import (
	"sync"

	"github.com/rs/zerolog"
)

// Channel is one live connection to a user, as seen by the core. The
// broadcaster is the only caller of Send; Close may additionally be
// called by the directory when a reconnect evicts a stale session.
type Channel interface {
	Send(Message) error
	Close() error
}

// Directory holds all server-wide state: houses, user profiles, per-user
// offline logs and the live connection table. It is mutated from every
// receiver goroutine and read by the broadcaster, so all access goes
// through its lock.
type Directory struct {
	mu       sync.RWMutex
	houses   map[string]*House
	profiles map[string]*Profile
	offline  map[string][]Message
	channels map[string]Channel
	log      *zerolog.Logger
}

// NewDirectory creates an empty directory.
func NewDirectory(logger *zerolog.Logger) *Directory {
	return &Directory{
		houses:   make(map[string]*House),
		profiles: make(map[string]*Profile),
		offline:  make(map[string][]Message),
		channels: make(map[string]Channel),
		log:      logger,
	}
}

// EnsureUser creates the profile and the personal namespace house for a
// first-time username. Returns true when the user was created.
func (d *Directory) EnsureUser(username string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.profiles[username]; ok {
		return false
	}
	d.profiles[username] = NewProfile(username)
	if _, ok := d.houses[username]; !ok {
		d.houses[username] = NewHouse(username, username)
	}
	return true
}

// HasUser reports whether a profile exists for the username.
func (d *Directory) HasUser(username string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.profiles[username]
	return ok
}

// RegisterConnection installs the live channel for a user, closing any
// prior one so a reconnect evicts the old session.
func (d *Directory) RegisterConnection(username string, ch Channel) {
	d.mu.Lock()
	old := d.channels[username]
	d.channels[username] = ch
	d.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			d.log.Debug().Err(err).Str("user", username).Msg("close evicted session")
		}
	}
}

// UnregisterConnection removes the user's live channel, but only if it is
// still the given one; an evicted session must not tear down its
// replacement.
func (d *Directory) UnregisterConnection(username string, ch Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.channels[username] == ch {
		delete(d.channels, username)
	}
}

// LiveChannel returns the user's live channel if connected.
func (d *Directory) LiveChannel(username string) (Channel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ch, ok := d.channels[username]
	return ch, ok
}

// CloseAll closes every live connection. Used on shutdown after the
// snapshot has been persisted.
func (d *Directory) CloseAll() {
	d.mu.Lock()
	channels := d.channels
	d.channels = make(map[string]Channel)
	d.mu.Unlock()

	for user, ch := range channels {
		if err := ch.Close(); err != nil {
			d.log.Debug().Err(err).Str("user", user).Msg("close connection")
		}
	}
}

// CreateHouse atomically checks name uniqueness and creates the house.
// The loser of a concurrent create for the same name gets ErrHouseExists
// and no state is mutated.
func (d *Directory) CreateHouse(name, creator string) (*House, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.houses[name]; ok {
		return nil, ErrHouseExists
	}
	h := NewHouse(name, creator)
	d.houses[name] = h
	return h, nil
}

// HasHouse reports whether a house with the name exists.
func (d *Directory) HasHouse(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.houses[name]
	return ok
}

// HouseMessage hands a message to the named house under the directory
// lock, since house handlers may mutate membership.
func (d *Directory) HouseMessage(name string, msg Message) []Message {
	d.mu.Lock()
	defer d.mu.Unlock()

	h, ok := d.houses[name]
	if !ok {
		return []Message{msg.Convert(Patch{Text: "No such house"})}
	}
	return h.ProcessMessage(msg)
}

// HasBanned reports whether owner has banned target.
func (d *Directory) HasBanned(owner, target string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.profiles[owner]
	return ok && p.HasBanned(target)
}

// Ban adds target to owner's ban set. Returns false when already banned.
func (d *Directory) Ban(owner, target string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.profiles[owner]
	if !ok {
		return false
	}
	return p.Ban(target)
}

// Unban removes target from owner's ban set. Returns false when the
// target was not banned.
func (d *Directory) Unban(owner, target string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.profiles[owner]
	if !ok {
		return false
	}
	return p.Unban(target)
}

// AppendOffline appends one delivered message to the user's offline log.
// The log only ever grows; the implicit cursor is its length.
func (d *Directory) AppendOffline(username string, msg Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.offline[username] = append(d.offline[username], msg)
}

// OfflineSince returns a copy of the user's offline log entries from the
// cursor onward, in original order. Cursor -1 means skip catch-up.
func (d *Directory) OfflineSince(username string, cursor int) []Message {
	if cursor < 0 {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	log := d.offline[username]
	if cursor >= len(log) {
		return nil
	}
	out := make([]Message, len(log)-cursor)
	copy(out, log[cursor:])
	return out
}

// SenderColor resolves the display color for a message's sender: red for
// the server, magenta for HOME traffic, otherwise the sender's rank color
// within the message's house.
func (d *Directory) SenderColor(msg Message) string {
	if msg.Sender == ServerSender {
		return "red"
	}
	if msg.House == HomeHouse {
		return "magenta"
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if h, ok := d.houses[msg.House]; ok {
		if color, ok := h.MemberColor(msg.Sender); ok {
			return color
		}
	}
	return "white"
}

// Export deep-copies the persistable state under the read lock.
func (d *Directory) Export() State {
	d.mu.RLock()
	defer d.mu.RUnlock()

	state := NewState()
	for name, h := range d.houses {
		clone := &House{
			Name:    h.Name,
			Creator: h.Creator,
			Rooms:   append([]string(nil), h.Rooms...),
			Members: make(map[string]string, len(h.Members)),
			Ranks:   make(map[string]Rank, len(h.Ranks)),
		}
		for user, rank := range h.Members {
			clone.Members[user] = rank
		}
		for rankName, rank := range h.Ranks {
			clone.Ranks[rankName] = rank
		}
		state.Houses[name] = clone
	}
	for user, log := range d.offline {
		state.Offline[user] = append([]Message(nil), log...)
	}
	for user, p := range d.profiles {
		clone := NewProfile(user)
		for banned := range p.Banned {
			clone.Banned[banned] = struct{}{}
		}
		state.Profiles[user] = clone
	}
	return state
}

// Restore replaces the directory's persistable state from a snapshot.
// Live channels are untouched; Restore is only called before the
// listeners start.
func (d *Directory) Restore(state State) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if state.Houses != nil {
		d.houses = state.Houses
	}
	if state.Offline != nil {
		d.offline = state.Offline
	}
	if state.Profiles != nil {
		d.profiles = state.Profiles
	}
}
