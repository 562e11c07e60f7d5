package redis

import (
	"context"
	"dealwire/internal/core/domain"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultSessionTTL = 24 * time.Hour

type sessionRecord struct {
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedisSessionStore keeps one key per live session id. A missing key means
// the session expired or was revoked.
type RedisSessionStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{
		rdb:    rdb,
		prefix: "session:",
	}
}

/*
	type SessionRepository interface {
		SaveSession(ctx context.Context, s Session) error
		SessionActive(ctx context.Context, sessionID string) (bool, error)
		RevokeSession(ctx context.Context, sessionID string) error
	}
*/

func (s *RedisSessionStore) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *RedisSessionStore) SaveSession(ctx context.Context, session domain.Session) error {
	raw, err := json.Marshal(sessionRecord{
		UserID:    session.Identity.UserID,
		Role:      string(session.Identity.Role),
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if err := s.rdb.Set(ctx, s.key(session.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) SessionActive(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("lookup session: %w", err)
	}
	return n == 1, nil
}

// RevokeSession is idempotent.
func (s *RedisSessionStore) RevokeSession(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}
