package services

import (
	"dealwire/internal/core/domain"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewTokenService("secret")
	id := domain.Identity{UserID: 42, Role: domain.RoleExec}

	token, session, err := svc.GenerateToken(id, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)

	got, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, got.Identity)
	assert.Equal(t, session.ID, got.ID)
}

func TestValidateTokenRejects(t *testing.T) {
	svc := NewTokenService("secret")
	id := domain.Identity{UserID: 42, Role: domain.RoleArtist}
	valid, _, err := svc.GenerateToken(id, time.Hour)
	require.NoError(t, err)

	expired := NewTokenService("secret")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _, err := expired.GenerateToken(id, time.Hour)
	require.NoError(t, err)

	other, _, err := NewTokenService("other").GenerateToken(id, time.Hour)
	require.NoError(t, err)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Role: "superuser",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ID:        "sid",
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "42"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not-a-token",
		"expired":      stale,
		"wrong secret": other,
		"bad role":     badRole,
		"alg none":     noneAlg,
		"tampered":     valid + "x",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			assert.ErrorIs(t, err, domain.ErrUnauthenticated)
		})
	}
}

func TestGenerateTokenRequiresSecretAndIdentity(t *testing.T) {
	_, _, err := NewTokenService("").GenerateToken(domain.Identity{UserID: 1, Role: domain.RoleArtist}, time.Hour)
	assert.Error(t, err)

	_, _, err = NewTokenService("s").GenerateToken(domain.Identity{UserID: 1, Role: "guest"}, time.Hour)
	assert.Error(t, err)
}
