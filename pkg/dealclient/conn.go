package dealclient

import (
	"context"
	"dealwire/pkg/logging"
	"dealwire/pkg/protocol"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Conn is the browser-side end of the deal channel. It does not reconnect:
// once closed, from either side, no more updates are reconciled.
type Conn struct {
	ws     *websocket.Conn
	rec    *Reconciler
	log    *slog.Logger
	mu     sync.Mutex
	state  State
	connID string
	once   sync.Once
}

// Dial opens the socket. header carries the session credential, as a
// cookie or a bearer token.
func Dial(ctx context.Context, url string, header http.Header, rec *Reconciler, log *slog.Logger) (*Conn, error) {
	if log == nil {
		log = slog.Default()
	}
	c := &Conn{rec: rec, log: log, state: StateConnecting}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 10 * time.Second,
	}
	ws, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		c.setState(StateClosed)
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c.ws = ws
	c.setState(StateOpen)
	return c, nil
}

func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ConnectionID is the handle announced by the server, empty until the
// connected envelope has been read.
func (c *Conn) ConnectionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connID
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run reads envelopes one at a time until the socket closes or ctx ends.
// Bad frames are logged and skipped.
func (c *Conn) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, c.Close)
	defer stop()
	defer c.Close()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || c.State() == StateClosed {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if c.State() == StateClosed {
			return nil
		}

		env, err := protocol.Decode(data)
		if err != nil {
			c.log.Warn("dealclient - run - bad envelope dropped", logging.Err(err))
			continue
		}
		switch env.Type {
		case protocol.TypeConnected:
			c.mu.Lock()
			c.connID = env.ConnectionID
			c.mu.Unlock()
			c.log.Info("dealclient - run - connected", logging.Connection(env.ConnectionID))
		case protocol.TypeDealUpdate:
			if err := c.rec.Apply(env); err != nil && !errors.Is(err, protocol.ErrUnknownType) {
				c.log.Warn("dealclient - run - deal update dropped", logging.Err(err))
			}
		}
	}
}

// Close is idempotent.
func (c *Conn) Close() {
	c.once.Do(func() {
		c.setState(StateClosed)
		if c.ws != nil {
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = c.ws.Close()
		}
	})
}
