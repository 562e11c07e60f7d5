package middleware

import (
	"context"
	"dealwire/internal/core/contracts"
	"dealwire/internal/core/domain"
	"dealwire/pkg/logging"
	"log/slog"
	"net/http"
)

type identityKeyType struct{}

var IdentityKey = identityKeyType{}

// AuthMiddleware resolves the request credential before the wrapped handler
// runs. Unauthenticated requests never reach it.
func AuthMiddleware(resolver contracts.IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := resolver.Resolve(r.Context(), r)
			if err != nil {
				log, ok := r.Context().Value(LoggerKey).(*slog.Logger)
				if !ok {
					log = slog.Default()
				}
				log.WarnContext(r.Context(), "auth - resolve identity - rejected", logging.Err(err))
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFrom returns the identity AuthMiddleware stored on ctx.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(domain.Identity)
	return id, ok
}
