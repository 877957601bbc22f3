package core

// State is the persistable portion of the directory: houses, offline logs
// and user profiles. Live channels are never part of it.
type State struct {
	Houses   map[string]*House
	Offline  map[string][]Message
	Profiles map[string]*Profile
}

// NewState returns an empty state with all maps allocated.
func NewState() State {
	return State{
		Houses:   make(map[string]*House),
		Offline:  make(map[string][]Message),
		Profiles: make(map[string]*Profile),
	}
}
