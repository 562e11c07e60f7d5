package ws

import (
	"context"
	"dealwire/internal/core/domain"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const defaultOutboxSize = 64

// Transport is the write side of a connection. *WebSocket implements it.
type Transport interface {
	WriteMessage(data []byte) error
	Close()
}

// RuntimeClient is a registered connection. A single writer goroutine
// drains a bounded outbox so writes to one socket never interleave.
type RuntimeClient struct {
	ctx      context.Context
	cancel   context.CancelFunc
	ws       Transport
	id       string
	identity domain.Identity
	out      chan []byte
	once     sync.Once
	log      *slog.Logger
}

func NewClient(
	parent context.Context,
	ws Transport,
	identity domain.Identity,
	outboxSize int,
	log *slog.Logger,
) *RuntimeClient {
	if outboxSize <= 0 {
		outboxSize = defaultOutboxSize
	}
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)
	c := &RuntimeClient{
		ctx:      ctx,
		cancel:   cancel,
		ws:       ws,
		id:       uuid.NewString(),
		identity: identity,
		out:      make(chan []byte, outboxSize),
	}
	c.log = log.With("connection_id", c.id, "user_id", identity.UserID)
	go c.writeLoop()
	return c
}

func (c *RuntimeClient) ID() string                { return c.id }
func (c *RuntimeClient) Identity() domain.Identity { return c.identity }

// Done is closed when the client has been closed.
func (c *RuntimeClient) Done() <-chan struct{} { return c.ctx.Done() }

// Send never blocks: a full outbox means the peer is not keeping up. The
// caller's context is not consulted, a queued frame does not depend on the
// request that produced it.
func (c *RuntimeClient) Send(_ context.Context, data []byte) error {
	if c.ctx.Err() != nil {
		return domain.ErrClientClosed
	}
	select {
	case c.out <- data:
		return nil
	default:
		return domain.ErrSendBufferFull
	}
}

// Close is idempotent. The outbox is never closed so a racing Send cannot
// panic.
func (c *RuntimeClient) Close() {
	c.once.Do(func() {
		c.cancel()
		c.ws.Close()
	})
}

func (c *RuntimeClient) writeLoop() {
	defer c.Close()
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			if err := c.ws.WriteMessage(data); err != nil {
				c.log.Warn("ws client - write loop - write failed", "err", err)
				return
			}
		}
	}
}
