package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const broadcastQueueSize = 256

type envelope struct {
	msg        Message
	recipients []string
	fromServer bool
}

// Broadcaster is the single serialization point for delivery: it alone
// writes to live channels and appends to offline logs, so no two
// producers ever interleave writes on one connection.
type Broadcaster struct {
	dir    *Directory
	queue  chan envelope
	pacing time.Duration
	log    *zerolog.Logger
}

// NewBroadcaster creates a broadcaster over the directory. pacing, when
// positive, inserts a delay after each drained item; with framed
// transports it is normally zero and exists only to throttle slow
// terminal clients.
func NewBroadcaster(dir *Directory, logger *zerolog.Logger, pacing time.Duration) *Broadcaster {
	return &Broadcaster{
		dir:    dir,
		queue:  make(chan envelope, broadcastQueueSize),
		pacing: pacing,
		log:    logger,
	}
}

// Enqueue queues one message for delivery to the given recipients.
// fromServer marks offline-catch-up replays, which skip color rewriting
// and must not be appended to offline logs again.
func (b *Broadcaster) Enqueue(msg Message, recipients []string, fromServer bool) {
	if len(recipients) == 0 {
		b.log.Warn().Str("sender", msg.Sender).Str("house", msg.House).
			Msg("dropping message with no recipients")
		return
	}
	b.queue <- envelope{msg: msg, recipients: recipients, fromServer: fromServer}
}

// Run drains the queue until the context is cancelled. It is the only
// goroutine allowed to touch channels or offline logs.
func (b *Broadcaster) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-b.queue:
			b.deliver(env)
			if b.pacing > 0 {
				time.Sleep(b.pacing)
			}
		}
	}
}

func (b *Broadcaster) deliver(env envelope) {
	msg := env.msg
	if !env.fromServer {
		color := b.dir.SenderColor(msg)
		msg.Sender = fmt.Sprintf("[%s]%s[/%s]", color, msg.Sender, color)
	}

	for _, user := range env.recipients {
		if ch, ok := b.dir.LiveChannel(user); ok {
			if err := ch.Send(msg); err != nil {
				// Peer went away between lookup and write; the offline
				// log below still gets the message.
				b.log.Debug().Err(err).Str("user", user).Msg("recipient unreachable")
			}
		}
		if !env.fromServer {
			b.dir.AppendOffline(user, msg)
		}
	}
}
