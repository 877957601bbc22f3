package store

import (
	"context"

	"github.com/hearthchat/hearth-server/internal/core"
)

// Store persists the directory snapshot: houses, offline logs and user
// profiles. Loaded once at startup and saved once on graceful shutdown.
type Store interface {
	// Load reads the full snapshot. A fresh database yields an empty
	// state, not an error.
	Load(ctx context.Context) (core.State, error)

	// Save replaces the stored snapshot with the given state.
	Save(ctx context.Context, state core.State) error

	// Close closes the underlying database connection.
	Close() error
}
