package core

// Profile holds per-user server-side state, today just the ban set.
// Profiles are created on first connection and never removed.
//
// Like House, a Profile is owned by the Directory and is only accessed
// under its lock.
type Profile struct {
	Username string
	Banned   map[string]struct{}
}

// NewProfile creates an empty profile for the username.
func NewProfile(username string) *Profile {
	return &Profile{
		Username: username,
		Banned:   make(map[string]struct{}),
	}
}

// HasBanned reports whether the profile owner banned the target.
func (p *Profile) HasBanned(target string) bool {
	_, ok := p.Banned[target]
	return ok
}

// Ban adds the target to the ban set. Returns false if already present.
func (p *Profile) Ban(target string) bool {
	if p.HasBanned(target) {
		return false
	}
	p.Banned[target] = struct{}{}
	return true
}

// Unban removes the target from the ban set. Returns false if absent.
func (p *Profile) Unban(target string) bool {
	if !p.HasBanned(target) {
		return false
	}
	delete(p.Banned, target)
	return true
}
