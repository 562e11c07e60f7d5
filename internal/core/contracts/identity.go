package contracts

import (
	"context"
	"dealwire/internal/core/domain"
	"net/http"
)

// IdentityResolver turns the session credential of an inbound request into
// a verified identity, or fails with domain.ErrUnauthenticated.
type IdentityResolver interface {
	Resolve(ctx context.Context, r *http.Request) (domain.Identity, error)
}
