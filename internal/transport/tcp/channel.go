package tcp

import (
	"errors"
	"io"
	"net"
	"sync"
	"syscall"

	"github.com/hearthchat/hearth-server/internal/core"
	"github.com/hearthchat/hearth-server/internal/proto"
)

// Channel frames and ships one logical message at a time over a single
// TCP connection. Frames are length-prefixed so a message of any size
// crosses the wire without truncation or concatenation.
type Channel struct {
	conn net.Conn
	mu   sync.Mutex // guards writes; reads happen on one goroutine only
	max  int
}

// NewChannel wraps an accepted connection.
func NewChannel(conn net.Conn, maxFrame int) *Channel {
	if maxFrame <= 0 {
		maxFrame = proto.DefaultMaxFrameSize
	}
	return &Channel{conn: conn, max: maxFrame}
}

// Send serializes and writes exactly one message. A write against a
// peer-closed socket maps to core.ErrPeerDisconnected so the caller can
// skip the recipient.
func (c *Channel) Send(msg core.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := proto.WriteFrame(c.conn, proto.FromMessage(msg), c.max); err != nil {
		if isPeerClosed(err) {
			return core.ErrPeerDisconnected
		}
		return err
	}
	return nil
}

// Recv blocks until one message frame is available and returns it.
func (c *Channel) Recv() (core.Message, error) {
	f, err := proto.ReadFrame(c.conn, c.max)
	if err != nil {
		return core.Message{}, err
	}
	return f.Message(), nil
}

// recvRaw reads one length-prefixed raw payload; the textual handshake
// frames come in through here.
func (c *Channel) recvRaw() ([]byte, error) {
	return proto.ReadRaw(c.conn, c.max)
}

// Close releases the socket. Closing also unblocks any pending Recv,
// which is the only way to cancel an in-flight read.
func (c *Channel) Close() error {
	return c.conn.Close()
}

func isPeerClosed(err error) bool {
	return errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe)
}
