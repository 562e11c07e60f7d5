package registry

import (
	"context"
	"dealwire/internal/core/contracts"
	"dealwire/internal/core/domain"
	"dealwire/pkg/logging"
	"dealwire/pkg/protocol"
	"fmt"
	"log/slog"
	"sync"
)

// Registry is the in-memory set of live connections for this process. It
// is constructed once in main and torn down with Close.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]contracts.Client // connection id → client
	closed  bool
	log     *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		clients: make(map[string]contracts.Client),
		log:     log,
	}
}

// Register adds c to the live set and queues exactly one connected
// envelope for it. c must carry an identity that was already verified.
func (h *Registry) Register(ctx context.Context, c contracts.Client) error {
	data, err := protocol.NewConnected(c.ID()).Marshal()
	if err != nil {
		return fmt.Errorf("encode connected envelope: %w", err)
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return domain.ErrRegistryClosed
	}
	if _, ok := h.clients[c.ID()]; ok {
		h.mu.Unlock()
		return domain.ErrAlreadyRegistered
	}
	// Send does not block, so the ack is queued under the lock and is
	// always ahead of any broadcast frame.
	if err := c.Send(ctx, data); err != nil {
		h.mu.Unlock()
		return fmt.Errorf("send connected envelope: %w", err)
	}
	h.clients[c.ID()] = c
	h.mu.Unlock()
	h.log.InfoContext(ctx, "registry - register - client registered",
		logging.Connection(c.ID()), logging.User(c.Identity().UserID), logging.Role(string(c.Identity().Role)))
	return nil
}

// Unregister removes c if it is the client holding its id. It reports
// whether anything was removed; repeated calls are no-ops.
func (h *Registry) Unregister(c contracts.Client) bool {
	h.mu.Lock()
	cur, ok := h.clients[c.ID()]
	if ok && cur == c {
		delete(h.clients, c.ID())
	}
	h.mu.Unlock()
	if ok && cur == c {
		h.log.Info("registry - unregister - client removed", logging.Connection(c.ID()), logging.User(c.Identity().UserID))
		return true
	}
	return false
}

// ForEachOpen calls visit for every client registered when the call
// started. visit runs without the lock held, so it may Unregister.
func (h *Registry) ForEachOpen(visit func(contracts.Client)) {
	h.mu.RLock()
	snapshot := make([]contracts.Client, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	for _, c := range snapshot {
		visit(c)
	}
}

func (h *Registry) Lookup(id string) (contracts.Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	return c, ok
}

func (h *Registry) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close closes every live client and rejects later registrations.
func (h *Registry) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = make(map[string]contracts.Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	h.log.Info("registry - close - all clients closed", "count", len(clients))
}
