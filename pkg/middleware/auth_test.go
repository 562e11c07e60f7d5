package middleware

import (
	"context"
	"dealwire/internal/core/domain"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolverFunc func(ctx context.Context, r *http.Request) (domain.Identity, error)

func (f resolverFunc) Resolve(ctx context.Context, r *http.Request) (domain.Identity, error) {
	return f(ctx, r)
}

func TestAuthMiddleware(t *testing.T) {
	artist := domain.Identity{UserID: 5, Role: domain.RoleArtist}

	t.Run("resolved identity reaches the handler", func(t *testing.T) {
		var got domain.Identity
		h := AuthMiddleware(resolverFunc(func(context.Context, *http.Request) (domain.Identity, error) {
			return artist, nil
		}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var ok bool
			got, ok = IdentityFrom(r.Context())
			require.True(t, ok)
			w.WriteHeader(http.StatusNoContent)
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/deals", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, artist, got)
	})

	t.Run("failure stops the chain with 401", func(t *testing.T) {
		called := false
		h := AuthMiddleware(resolverFunc(func(context.Context, *http.Request) (domain.Identity, error) {
			return domain.Identity{}, fmt.Errorf("%w: expired", domain.ErrUnauthenticated)
		}))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, called)
	})
}

func TestIdentityFromEmptyContext(t *testing.T) {
	_, ok := IdentityFrom(context.Background())
	assert.False(t, ok)
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	h := RequestLogger(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.Context().Value(LoggerKey).(*slog.Logger)
		assert.True(t, ok)
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
