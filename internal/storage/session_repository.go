package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/csabourin/wampums-station/internal/storage/models"
)

// SessionRepository provides data access for the cached login session.
// The station holds at most one session, stored as a single row.
type SessionRepository struct {
	BaseRepository
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Save stores the current session, replacing any previous one.
func (r *SessionRepository) Save(ctx context.Context, session *models.Session) error {
	now := r.Now()
	session.UpdatedAt = now
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}

	expires := sql.NullTime{Time: session.TokenExpiresAt, Valid: !session.TokenExpiresAt.IsZero()}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, organization_id, email, role, access_token, token_expires_at, created_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			organization_id = excluded.organization_id,
			email = excluded.email,
			role = excluded.role,
			access_token = excluded.access_token,
			token_expires_at = excluded.token_expires_at,
			updated_at = excluded.updated_at
	`,
		session.UserID, session.OrganizationID, session.Email, session.Role,
		session.AccessToken, expires, session.CreatedAt, session.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	return nil
}

// Get retrieves the cached session, or nil when nobody is logged in.
func (r *SessionRepository) Get(ctx context.Context) (*models.Session, error) {
	session := &models.Session{}
	var expires sql.NullTime

	err := r.DB().QueryRowContext(ctx, `
		SELECT user_id, organization_id, email, role, access_token, token_expires_at, created_at, updated_at
		FROM sessions WHERE id = 1
	`).Scan(
		&session.UserID, &session.OrganizationID, &session.Email, &session.Role,
		&session.AccessToken, &expires, &session.CreatedAt, &session.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	if expires.Valid {
		session.TokenExpiresAt = expires.Time
	}

	return session, nil
}

// Clear removes the cached session.
func (r *SessionRepository) Clear(ctx context.Context) error {
	_, err := r.DB().ExecContext(ctx, "DELETE FROM sessions WHERE id = 1")
	if err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}
