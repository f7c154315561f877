package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/csabourin/wampums-station/internal/storage/models"
)

// ParticipantRepository provides data access for the cached roster.
type ParticipantRepository struct {
	BaseRepository
}

// NewParticipantRepository creates a new participant repository.
func NewParticipantRepository(db *DB) *ParticipantRepository {
	return &ParticipantRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// ReplaceAll swaps the cached roster for a fresh backend snapshot in one
// transaction, so readers never observe a half-filled table.
func (r *ParticipantRepository) ReplaceAll(ctx context.Context, participants []models.Participant) error {
	return r.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM participants"); err != nil {
			return fmt.Errorf("clearing participants: %w", err)
		}

		for _, p := range participants {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO participants (id, first_name, last_name, group_section)
				VALUES (?, ?, ?, ?)
			`, nullableID(p.ID), p.FirstName, p.LastName, p.GroupSection)
			if err != nil {
				return fmt.Errorf("inserting participant: %w", err)
			}
		}

		return nil
	})
}

// List retrieves the cached roster in stable id order, matching the order
// the backend returned it in.
func (r *ParticipantRepository) List(ctx context.Context) ([]models.Participant, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, first_name, last_name, group_section
		FROM participants
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying participants: %w", err)
	}
	defer rows.Close()

	return r.scanParticipants(rows)
}

// GetByID retrieves one participant, or nil when unknown.
func (r *ParticipantRepository) GetByID(ctx context.Context, id int64) (*models.Participant, error) {
	p := &models.Participant{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, first_name, last_name, group_section
		FROM participants WHERE id = ?
	`, id).Scan(&p.ID, &p.FirstName, &p.LastName, &p.GroupSection)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying participant: %w", err)
	}

	return p, nil
}

// Count returns the number of cached participants.
func (r *ParticipantRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM participants").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting participants: %w", err)
	}
	return count, nil
}

func (r *ParticipantRepository) scanParticipants(rows *sql.Rows) ([]models.Participant, error) {
	var participants []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.GroupSection); err != nil {
			return nil, fmt.Errorf("scanning participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// nullableID maps a missing backend id to NULL so SQLite assigns a local
// rowid instead of colliding on zero.
func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
