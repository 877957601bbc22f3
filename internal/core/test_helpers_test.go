package core

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// fakeChannel records sent messages in place of a real socket.
type fakeChannel struct {
	mu     sync.Mutex
	sent   []Message
	closed bool
	fail   bool
}

func (c *fakeChannel) Send(m Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return ErrPeerDisconnected
	}
	c.sent = append(c.sent, m)
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeChannel) messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.sent))
	copy(out, c.sent)
	return out
}

// waitForSent polls until the channel has received n messages.
func waitForSent(t *testing.T, c *fakeChannel, n int) []Message {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msgs := c.messages(); len(msgs) >= n {
			return msgs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d sent messages, got %d", n, len(c.messages()))
	return nil
}

// waitForOffline polls until the user's offline log holds n entries.
func waitForOffline(t *testing.T, dir *Directory, user string, n int) []Message {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if log := dir.OfflineSince(user, 0); len(log) >= n {
			return log
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d offline entries for %s, got %d", n, user, len(dir.OfflineSince(user, 0)))
	return nil
}
