package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("station-test"))
	require.NoError(t, err)
	return raw
}

func TestParseToken(t *testing.T) {
	t.Run("Numeric Claims", func(t *testing.T) {
		exp := time.Now().Add(time.Hour).Unix()
		raw := signToken(t, jwt.MapClaims{
			"user_id":         float64(42),
			"organization_id": float64(7),
			"role":            "animation",
			"exp":             exp,
		})

		claims, err := ParseToken(raw)
		require.NoError(t, err)
		assert.Equal(t, int64(42), claims.UserID)
		assert.Equal(t, int64(7), claims.OrganizationID)
		assert.Equal(t, RoleAnimation, claims.Role)
		assert.Equal(t, exp, claims.ExpiresAt.Unix())
	})

	t.Run("String Claims Tolerated", func(t *testing.T) {
		raw := signToken(t, jwt.MapClaims{
			"sub": "42",
			"org": "7",
		})

		claims, err := ParseToken(raw)
		require.NoError(t, err)
		assert.Equal(t, int64(42), claims.UserID)
		assert.Equal(t, int64(7), claims.OrganizationID)
	})

	t.Run("Role Normalized", func(t *testing.T) {
		raw := signToken(t, jwt.MapClaims{"role": " Admin "})
		claims, err := ParseToken(raw)
		require.NoError(t, err)
		assert.Equal(t, RoleAdmin, claims.Role)
	})

	t.Run("Unknown Role Dropped", func(t *testing.T) {
		raw := signToken(t, jwt.MapClaims{"role": "superuser"})
		claims, err := ParseToken(raw)
		require.NoError(t, err)
		assert.Empty(t, claims.Role)
	})

	t.Run("Garbage Token", func(t *testing.T) {
		_, err := ParseToken("not-a-jwt")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing token")
	})
}

func TestTokenClaimsIsExpired(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	t.Run("No Expiry Never Expires", func(t *testing.T) {
		claims := &TokenClaims{}
		assert.False(t, claims.IsExpired(now, 0))
	})

	t.Run("Future Expiry", func(t *testing.T) {
		claims := &TokenClaims{ExpiresAt: now.Add(time.Hour)}
		assert.False(t, claims.IsExpired(now, 0))
	})

	t.Run("Past Expiry", func(t *testing.T) {
		claims := &TokenClaims{ExpiresAt: now.Add(-time.Minute)}
		assert.True(t, claims.IsExpired(now, 0))
	})

	t.Run("Leeway Expires Early", func(t *testing.T) {
		claims := &TokenClaims{ExpiresAt: now.Add(30 * time.Second)}
		assert.False(t, claims.IsExpired(now, 0))
		assert.True(t, claims.IsExpired(now, time.Minute))
	})
}
