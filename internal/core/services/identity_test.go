package services

import (
	"context"
	"dealwire/internal/core/domain"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSessions struct {
	mu      sync.Mutex
	active  map[string]bool
	lookErr error
}

func newMemSessions() *memSessions { return &memSessions{active: map[string]bool{}} }

func (m *memSessions) SaveSession(_ context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[s.ID] = true
	return nil
}

func (m *memSessions) SessionActive(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookErr != nil {
		return false, m.lookErr
	}
	return m.active[id], nil
}

func (m *memSessions) RevokeSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, id)
	return nil
}

func newIdentityService(sessions domain.SessionRepository) *IdentityService {
	return NewIdentityService(slog.Default(), NewTokenService("secret"), sessions)
}

func TestResolveFromCookieAndBearer(t *testing.T) {
	sessions := newMemSessions()
	svc := newIdentityService(sessions)
	id := domain.Identity{UserID: 1, Role: domain.RoleArtist}
	token, err := svc.IssueSession(context.Background(), id, time.Hour)
	require.NoError(t, err)

	cookieReq := httptest.NewRequest(http.MethodGet, "/ws", nil)
	cookieReq.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	got, err := svc.Resolve(context.Background(), cookieReq)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	bearerReq := httptest.NewRequest(http.MethodGet, "/ws", nil)
	bearerReq.Header.Set("Authorization", "Bearer "+token)
	got, err = svc.Resolve(context.Background(), bearerReq)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestResolveRejectsMissingCredential(t *testing.T) {
	svc := newIdentityService(nil)
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Basic abc")

	_, err := svc.Resolve(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestResolveRejectsRevokedSession(t *testing.T) {
	sessions := newMemSessions()
	svc := newIdentityService(sessions)
	token, err := svc.IssueSession(context.Background(), domain.Identity{UserID: 2, Role: domain.RoleExec}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	require.NoError(t, svc.Revoke(context.Background(), req))

	_, err = svc.Resolve(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.ErrorIs(t, err, domain.ErrSessionRevoked)
}

func TestResolveFailsClosedWhenSessionStoreErrors(t *testing.T) {
	sessions := newMemSessions()
	svc := newIdentityService(sessions)
	token, err := svc.IssueSession(context.Background(), domain.Identity{UserID: 2, Role: domain.RoleExec}, time.Hour)
	require.NoError(t, err)
	sessions.lookErr = errors.New("redis down")

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	_, err = svc.Resolve(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestResolveWithoutSessionStoreTrustsToken(t *testing.T) {
	svc := newIdentityService(nil)
	token, err := svc.IssueSession(context.Background(), domain.Identity{UserID: 5, Role: domain.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/deals", nil)
	req.Header.Set("Authorization", "bearer "+token)
	got, err := svc.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, got.Role)
}
