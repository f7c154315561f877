package models

import "time"

// Session is the station's cached login against the Wampums backend: the
// bearer token plus the identity attributes the client side needs for
// role routing. A station holds at most one session at a time.
type Session struct {
	UserID         int64     `json:"user_id"`
	OrganizationID int64     `json:"organization_id"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	AccessToken    string    `json:"-"`
	TokenExpiresAt time.Time `json:"token_expires_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsExpired reports whether the cached token has lapsed at the given
// time. A zero expiry means the backend issued a non-expiring token.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.TokenExpiresAt.IsZero() && !now.Before(s.TokenExpiresAt)
}

// RefreshResult contains the outcome of one roster refresh from the
// backend.
type RefreshResult struct {
	Participants int           `json:"participants"`
	Honors       int           `json:"honors"`
	Equipment    int           `json:"equipment"`
	Reservations int           `json:"reservations"`
	Duration     time.Duration `json:"-"`
	Error        error         `json:"-"`
	SyncedAt     time.Time     `json:"synced_at"`
}
