package services

import (
	"dealwire/internal/core/domain"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "dealwire"

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secretKey []byte
	issuer    string
	now       func() time.Time
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{
		secretKey: []byte(secret),
		issuer:    tokenIssuer,
		now:       time.Now,
	}
}

// GenerateToken signs a session token for id. The session id travels as
// the jti claim so the session can be revoked server side.
func (s *TokenService) GenerateToken(id domain.Identity, ttl time.Duration) (string, domain.Session, error) {
	if len(s.secretKey) == 0 {
		return "", domain.Session{}, errors.New("token secret not configured")
	}
	if !id.Role.Valid() || id.UserID <= 0 {
		return "", domain.Session{}, fmt.Errorf("invalid identity %d/%q", id.UserID, id.Role)
	}
	now := s.now()
	session := domain.Session{
		ID:        uuid.NewString(),
		Identity:  id,
		ExpiresAt: now.Add(ttl),
	}
	claims := sessionClaims{
		Role: string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			ID:        session.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return "", domain.Session{}, err
	}
	return token, session, nil
}

// ValidateToken parses and validates the JWT string
func (s *TokenService) ValidateToken(tokenStr string) (domain.Session, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure signing method is HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return domain.Session{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthenticated)
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return domain.Session{}, fmt.Errorf("%w: subject not found in token", domain.ErrUnauthenticated)
	}
	role := domain.Role(claims.Role)
	if !role.Valid() {
		return domain.Session{}, fmt.Errorf("%w: unknown role %q", domain.ErrUnauthenticated, claims.Role)
	}
	if claims.ID == "" {
		return domain.Session{}, fmt.Errorf("%w: session id missing", domain.ErrUnauthenticated)
	}
	return domain.Session{
		ID:        claims.ID,
		Identity:  domain.Identity{UserID: userID, Role: role},
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
