package core

import "errors"

var (
	// ErrHouseExists is returned when creating a house under a taken name.
	ErrHouseExists = errors.New("house already exists")
	// ErrHouseNotFound is returned when addressing an unknown house.
	ErrHouseNotFound = errors.New("house not found")
	// ErrPeerDisconnected marks a send on a channel whose peer went away.
	// Callers treat it as non-fatal and skip the recipient.
	ErrPeerDisconnected = errors.New("peer disconnected")
)
