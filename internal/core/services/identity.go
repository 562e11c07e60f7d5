package services

import (
	"context"
	"dealwire/internal/core/domain"
	"dealwire/pkg/logging"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// SessionCookie carries the same session token browsers use for ordinary
// page requests.
const SessionCookie = "session"

// IdentityService resolves the session credential of a request. It is the
// only identity source for both the HTTP API and the websocket handshake.
type IdentityService struct {
	log      *slog.Logger
	tokens   *TokenService
	sessions domain.SessionRepository
}

// NewIdentityService builds the resolver. A nil sessions repository skips
// the revocation check.
func NewIdentityService(log *slog.Logger, tokens *TokenService, sessions domain.SessionRepository) *IdentityService {
	return &IdentityService{log: log, tokens: tokens, sessions: sessions}
}

func (s *IdentityService) Resolve(ctx context.Context, r *http.Request) (domain.Identity, error) {
	session, err := s.session(ctx, r)
	if err != nil {
		return domain.Identity{}, err
	}
	return session.Identity, nil
}

// IssueSession signs a token for id and records the session so it can be
// revoked later.
func (s *IdentityService) IssueSession(ctx context.Context, id domain.Identity, ttl time.Duration) (string, error) {
	token, session, err := s.tokens.GenerateToken(id, ttl)
	if err != nil {
		return "", err
	}
	if s.sessions != nil {
		if err := s.sessions.SaveSession(ctx, session); err != nil {
			s.log.ErrorContext(ctx, "identity - issue session - save session failed", logging.User(id.UserID), logging.Err(err))
			return "", fmt.Errorf("save session: %w", err)
		}
	}
	return token, nil
}

// Revoke ends the session behind the request credential.
func (s *IdentityService) Revoke(ctx context.Context, r *http.Request) error {
	session, err := s.session(ctx, r)
	if err != nil {
		return err
	}
	if s.sessions == nil {
		return nil
	}
	if err := s.sessions.RevokeSession(ctx, session.ID); err != nil {
		s.log.ErrorContext(ctx, "identity - revoke - revoke session failed", logging.User(session.Identity.UserID), logging.Err(err))
		return fmt.Errorf("revoke session: %w", err)
	}
	s.log.InfoContext(ctx, "identity - revoke - session revoked", logging.User(session.Identity.UserID))
	return nil
}

func (s *IdentityService) session(ctx context.Context, r *http.Request) (domain.Session, error) {
	raw := credential(r)
	if raw == "" {
		return domain.Session{}, fmt.Errorf("%w: no session credential", domain.ErrUnauthenticated)
	}
	session, err := s.tokens.ValidateToken(raw)
	if err != nil {
		return domain.Session{}, err
	}
	if s.sessions != nil {
		active, err := s.sessions.SessionActive(ctx, session.ID)
		if err != nil {
			s.log.ErrorContext(ctx, "identity - resolve - session lookup failed", logging.User(session.Identity.UserID), logging.Err(err))
			return domain.Session{}, fmt.Errorf("%w: session lookup failed", domain.ErrUnauthenticated)
		}
		if !active {
			return domain.Session{}, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, domain.ErrSessionRevoked)
		}
	}
	return session, nil
}

// credential prefers the session cookie and falls back to a bearer header
// for non-browser clients.
func credential(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
