package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultReadLimit    = 4 * 1024
	closeGrace          = time.Second
)

// WebSocket wraps a gorilla connection with write deadlines and a single
// idempotent close.
type WebSocket struct {
	*websocket.Conn
	ctx          context.Context
	cancel       context.CancelFunc
	writeTimeout time.Duration
	once         sync.Once
	log          *slog.Logger
}

func NewWebSocket(parent context.Context, conn *websocket.Conn, writeTimeout time.Duration, log *slog.Logger) *WebSocket {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)
	return &WebSocket{Conn: conn, ctx: ctx, cancel: cancel, writeTimeout: writeTimeout, log: log}
}

func (w *WebSocket) WriteMessage(data []byte) error {
	if err := w.Conn.SetWriteDeadline(time.Now().Add(w.writeTimeout)); err != nil {
		return err
	}
	return w.Conn.WriteMessage(websocket.TextMessage, data)
}

// ReadLoop blocks until the peer goes away or the socket is closed. The
// deal channel is push only, so inbound frames are handed to onMsg for
// logging and otherwise dropped.
func (w *WebSocket) ReadLoop(readLimit int64, onMsg func([]byte)) {
	defer w.Close()
	if readLimit <= 0 {
		readLimit = defaultReadLimit
	}
	w.Conn.SetReadLimit(readLimit)

	for {
		_, data, err := w.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				w.log.Warn("ws conn - read loop - unexpected close", "err", err)
			}
			return
		}
		if len(data) > 0 && onMsg != nil {
			onMsg(data)
		}
	}
}

// Done is closed once the socket has been closed from either side.
func (w *WebSocket) Done() <-chan struct{} {
	return w.ctx.Done()
}

func (w *WebSocket) Close() {
	w.once.Do(func() {
		w.cancel()
		_ = w.Conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGrace),
		)
		_ = w.Conn.Close()
	})
}
