package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/hearthchat/hearth-server/internal/config"
	"github.com/hearthchat/hearth-server/internal/core"
	"github.com/hearthchat/hearth-server/internal/store"
	"github.com/hearthchat/hearth-server/internal/store/sqlite"
	transporthttp "github.com/hearthchat/hearth-server/internal/transport/http"
	transporttcp "github.com/hearthchat/hearth-server/internal/transport/tcp"
)

// App wires together core, storage and both transports.
type App struct {
	cfg   config.Config
	dir   *core.Directory
	bcast *core.Broadcaster
	tcp   *transporttcp.Server
	http  *stdhttp.Server
	store store.Store
	log   *zerolog.Logger
}

// New constructs the application: opens the snapshot store, restores the
// directory from it and builds the router, broadcaster and transports.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	state, err := st.Load(context.Background())
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	dir := core.NewDirectory(logger)
	dir.Restore(state)
	logger.Info().
		Str("db_path", cfg.DatabasePath).
		Int("houses", len(state.Houses)).
		Int("profiles", len(state.Profiles)).
		Msg("snapshot restored")

	router := core.NewRouter(dir)
	bcast := core.NewBroadcaster(dir, logger, cfg.BroadcastPacing)

	return &App{
		cfg:   cfg,
		dir:   dir,
		bcast: bcast,
		tcp:   transporttcp.NewServer(cfg, dir, router, bcast, logger),
		http:  transporthttp.NewServer(cfg, dir, router, bcast, logger),
		store: st,
		log:   logger,
	}, nil
}

// Run starts the broadcaster and both transports and blocks until
// context cancellation or a fatal listener error. Shutdown persists the
// snapshot before closing the live connections.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.bcast.Run(runCtx)

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.tcp.Run(runCtx)
	}()
	go func() {
		if err := a.http.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	var runErr error
	select {
	case runErr = <-errCh:
		cancel()
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer shutdownCancel()

	a.log.Info().Msg("shutting down http server")
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("http shutdown")
	}

	a.persistSnapshot()
	a.dir.CloseAll()

	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
	} else {
		a.log.Info().Msg("store closed")
	}

	return runErr
}

func (a *App) persistSnapshot() {
	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	state := a.dir.Export()
	if err := a.store.Save(saveCtx, state); err != nil {
		a.log.Error().Err(err).Msg("failed to persist snapshot")
		return
	}
	a.log.Info().Int("houses", len(state.Houses)).Int("profiles", len(state.Profiles)).
		Msg("snapshot persisted")
}
