package redis

import (
	"context"
	"dealwire/internal/config"
	"dealwire/internal/core/domain"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	rdb, err := NewRedisClient(context.Background(), config.RedisConfig{
		URL:         "redis://" + s.Addr(),
		PoolSize:    2,
		PingTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisSessionStore(rdb), s
}

func testSession(id string, ttl time.Duration) domain.Session {
	return domain.Session{
		ID:        id,
		Identity:  domain.Identity{UserID: 7, Role: domain.RoleArtist},
		ExpiresAt: time.Now().Add(ttl),
	}
}

func TestSaveAndLookupSession(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, testSession("sid-1", time.Hour)))

	active, err := store.SessionActive(ctx, "sid-1")
	require.NoError(t, err)
	assert.True(t, active)
	assert.True(t, s.Exists("session:sid-1"))

	active, err = store.SessionActive(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestSessionExpires(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, testSession("sid-2", time.Minute)))
	s.FastForward(2 * time.Minute)

	active, err := store.SessionActive(ctx, "sid-2")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestRevokeSessionIsIdempotent(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, testSession("sid-3", time.Hour)))
	require.NoError(t, store.RevokeSession(ctx, "sid-3"))
	require.NoError(t, store.RevokeSession(ctx, "sid-3"))

	active, err := store.SessionActive(ctx, "sid-3")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestNewRedisClientFailsFast(t *testing.T) {
	_, err := NewRedisClient(context.Background(), config.RedisConfig{URL: "not a url"})
	assert.Error(t, err)
}
