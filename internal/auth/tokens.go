// Package auth holds the station's client-side session logic:
// introspection of access tokens issued by the Wampums backend and
// normalization of the loose role flags its API reports.
package auth

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the fields the station reads out of a Wampums access
// token. The backend signs its tokens server-side; the station receives
// them over TLS at login and only introspects them, so no signature
// verification happens here.
type TokenClaims struct {
	UserID         int64
	OrganizationID int64
	Role           string
	ExpiresAt      time.Time
}

// ParseToken decodes a Wampums JWT without verifying its signature and
// extracts the claims the station cares about. Numeric claims tolerate
// both string and number JSON forms.
func ParseToken(raw string) (*TokenClaims, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type %T", token.Claims)
	}

	tc := &TokenClaims{
		UserID:         numericClaim(claims, "user_id", "sub"),
		OrganizationID: numericClaim(claims, "organization_id", "org"),
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		tc.ExpiresAt = exp.Time
	}
	if role, ok := claims["role"].(string); ok {
		tc.Role = NormalizeRole(role)
	}
	return tc, nil
}

// IsExpired reports whether the claims have lapsed at the given time,
// with a safety leeway subtracted from the expiry. Tokens without an exp
// claim never expire.
func (c *TokenClaims) IsExpired(now time.Time, leeway time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt.Add(-leeway))
}

// numericClaim reads the first present claim among keys as an int64.
func numericClaim(claims jwt.MapClaims, keys ...string) int64 {
	for _, key := range keys {
		v, ok := claims[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return int64(n)
		case string:
			if parsed, err := strconv.ParseInt(n, 10, 64); err == nil {
				return parsed
			}
		case json.Number:
			if parsed, err := n.Int64(); err == nil {
				return parsed
			}
		}
	}
	return 0
}
