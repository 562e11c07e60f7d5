package contracts

import (
	"context"
	"dealwire/internal/core/domain"
)

// Registry owns the live set of authenticated real-time connections on
// this process.
type Registry interface {
	// Register adds a client and sends it the connected acknowledgement.
	Register(ctx context.Context, c Client) error
	// Unregister removes the client. Unknown or already removed clients are
	// a no-op.
	Unregister(c Client) bool
	// ForEachOpen visits every client registered at call time.
	ForEachOpen(visit func(Client))
}

// Client represents the minimal interface required for the Registry to
// communicate with an individual WebSocket connection.
type Client interface {
	ID() string
	Identity() domain.Identity
	// Send queues data for delivery without blocking on the network.
	Send(ctx context.Context, data []byte) error
	Close()
}
