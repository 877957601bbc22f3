package http

import (
	"context"
	"fmt"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/hearthchat/hearth-server/internal/core"
	"github.com/hearthchat/hearth-server/internal/proto"
	"github.com/hearthchat/hearth-server/internal/utils"
)

// WSHandler upgrades HTTP connections and bridges them to the core as
// live channels, one per session.
type WSHandler struct {
	dir    *core.Directory
	router *core.Router
	bcast  *core.Broadcaster
	log    *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(dir *core.Directory, router *core.Router, bcast *core.Broadcaster, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{dir: dir, router: router, bcast: bcast, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}

	connID := utils.NewID()
	username, cursor, err := h.handshake(r.Context(), conn)
	if err != nil {
		h.log.Warn().Err(err).Str("conn", connID).Msg("ws handshake failed")
		conn.Close(websocket.StatusPolicyViolation, "bad hello")
		return
	}

	logger := h.log.With().Str("conn", connID).Str("user", username).Logger()
	if h.dir.EnsureUser(username) {
		logger.Info().Msg("user joined")
	} else {
		logger.Info().Msg("user reconnected")
	}

	// The channel lives past the request handler's read loop only until
	// Close, which the directory calls on session eviction.
	ch := newWSChannel(conn)
	h.dir.RegisterConnection(username, ch)
	defer h.dir.UnregisterConnection(username, ch)

	for _, msg := range h.dir.OfflineSince(username, cursor) {
		h.bcast.Enqueue(msg, []string{username}, true)
	}

	for {
		var frame proto.Frame
		if err := wsjson.Read(ch.ctx, conn, &frame); err != nil {
			logger.Info().Msg("user disconnected")
			ch.Close()
			return
		}
		msg := frame.Message()
		msg.Sender = username

		for _, out := range h.router.Route(msg) {
			recipients := out.TakeRecipients()
			h.bcast.Enqueue(out, recipients, false)
		}
	}
}

func (h *WSHandler) handshake(ctx context.Context, conn *websocket.Conn) (string, int, error) {
	var hello proto.Hello
	if err := wsjson.Read(ctx, conn, &hello); err != nil {
		return "", 0, fmt.Errorf("read hello: %w", err)
	}
	if hello.User == "" {
		return "", 0, fmt.Errorf("empty username")
	}
	if hello.Protocol != 0 && hello.Protocol != proto.ProtocolVersion {
		return "", 0, fmt.Errorf("unsupported protocol version %d", hello.Protocol)
	}
	return hello.User, hello.Cursor, nil
}

// wsChannel adapts a WebSocket connection to core.Channel. WebSocket
// messages are already self-delimited, so no length prefix is needed on
// this transport.
type wsChannel struct {
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
}

func newWSChannel(conn *websocket.Conn) *wsChannel {
	ctx, cancel := context.WithCancel(context.Background())
	return &wsChannel{conn: conn, ctx: ctx, cancel: cancel}
}

func (c *wsChannel) Send(msg core.Message) error {
	if err := wsjson.Write(c.ctx, c.conn, proto.FromMessage(msg)); err != nil {
		return core.ErrPeerDisconnected
	}
	return nil
}

func (c *wsChannel) Close() error {
	c.cancel()
	return c.conn.Close(websocket.StatusNormalClosure, "session closed")
}
