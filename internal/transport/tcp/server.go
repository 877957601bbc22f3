package tcp

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hearthchat/hearth-server/internal/config"
	"github.com/hearthchat/hearth-server/internal/core"
	"github.com/hearthchat/hearth-server/internal/utils"
)

// Server owns the TCP accept loop and one receiver goroutine per active
// connection. Receivers hand inbound messages to the router; all writes
// go through the broadcaster.
type Server struct {
	addr     string
	maxFrame int
	dir      *core.Directory
	router   *core.Router
	bcast    *core.Broadcaster
	log      *zerolog.Logger
}

// NewServer builds a TCP transport server.
func NewServer(cfg config.Config, dir *core.Directory, router *core.Router, bcast *core.Broadcaster, logger *zerolog.Logger) *Server {
	return &Server{
		addr:     cfg.Addr,
		maxFrame: cfg.MaxFrameSize,
		dir:      dir,
		router:   router,
		bcast:    bcast,
		log:      logger,
	}
}

// Run listens and accepts until the context is cancelled. Only an
// accept-loop failure is fatal; per-connection errors end that
// connection's receiver only.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Listen binds the configured address.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return ln, nil
}

// Serve accepts connections on ln until the context is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("tcp transport listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go s.handle(conn)
	}
}

// handle runs the connection state machine: Connecting (accepted) →
// Handshaking (username, cursor) → Active (register, catch-up, receive
// loop) → Disconnected.
func (s *Server) handle(conn net.Conn) {
	connID := utils.NewID()
	ch := NewChannel(conn, s.maxFrame)

	username, cursor, err := s.handshake(ch)
	if err != nil {
		s.log.Warn().Err(err).Str("conn", connID).Msg("handshake failed")
		ch.Close()
		return
	}

	logger := s.log.With().Str("conn", connID).Str("user", username).Logger()
	if s.dir.EnsureUser(username) {
		logger.Info().Msg("user joined")
	} else {
		logger.Info().Msg("user reconnected")
	}

	// Registration closes any prior live channel for this username, so a
	// reconnect evicts the stale session.
	s.dir.RegisterConnection(username, ch)
	defer s.dir.UnregisterConnection(username, ch)

	// Catch-up entries replay as server-originated deliveries: no color
	// rewrite, no re-append to the offline log.
	for _, msg := range s.dir.OfflineSince(username, cursor) {
		s.bcast.Enqueue(msg, []string{username}, true)
	}

	for {
		msg, err := ch.Recv()
		if err != nil {
			logger.Info().Msg("user disconnected")
			ch.Close()
			return
		}
		// The session owns the identity; whatever the client put in the
		// sender field is replaced.
		msg.Sender = username

		for _, out := range s.router.Route(msg) {
			recipients := out.TakeRecipients()
			s.bcast.Enqueue(out, recipients, false)
		}
	}
}

// handshake reads the username frame and the decimal catch-up cursor
// frame; cursor -1 means skip catch-up.
func (s *Server) handshake(ch *Channel) (string, int, error) {
	raw, err := ch.recvRaw()
	if err != nil {
		return "", 0, fmt.Errorf("read username: %w", err)
	}
	username := strings.TrimSpace(string(raw))
	if username == "" {
		return "", 0, fmt.Errorf("empty username")
	}

	raw, err = ch.recvRaw()
	if err != nil {
		return "", 0, fmt.Errorf("read cursor: %w", err)
	}
	cursor, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return "", 0, fmt.Errorf("parse cursor: %w", err)
	}

	return username, cursor, nil
}
