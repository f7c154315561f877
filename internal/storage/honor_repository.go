package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/csabourin/wampums-station/internal/storage/models"
)

// HonorRepository provides data access for cached honor records.
type HonorRepository struct {
	BaseRepository
}

// NewHonorRepository creates a new honor repository.
func NewHonorRepository(db *DB) *HonorRepository {
	return &HonorRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// ReplaceAll swaps the cached honor history for a fresh backend snapshot.
func (r *HonorRepository) ReplaceAll(ctx context.Context, honors []models.HonorRecord) error {
	return r.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM honors"); err != nil {
			return fmt.Errorf("clearing honors: %w", err)
		}

		for _, h := range honors {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO honors (id, participant_id, date, reason)
				VALUES (?, ?, ?, ?)
			`, nullableID(h.ID), h.ParticipantID, h.Date, h.Reason)
			if err != nil {
				return fmt.Errorf("inserting honor: %w", err)
			}
		}

		return nil
	})
}

// Insert caches one honor record, typically the echo of an award call.
func (r *HonorRepository) Insert(ctx context.Context, honor *models.HonorRecord) error {
	result, err := r.DB().ExecContext(ctx, `
		INSERT INTO honors (id, participant_id, date, reason)
		VALUES (?, ?, ?, ?)
	`, nullableID(honor.ID), honor.ParticipantID, honor.Date, honor.Reason)
	if err != nil {
		return fmt.Errorf("inserting honor: %w", err)
	}

	if honor.ID == 0 {
		if id, err := result.LastInsertId(); err == nil {
			honor.ID = id
		}
	}

	return nil
}

// List retrieves every cached honor in chronological order; ties on the
// same date keep their backend id order, which the eligibility rules rely
// on for their first-record tie-break.
func (r *HonorRepository) List(ctx context.Context) ([]models.HonorRecord, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, participant_id, date, reason
		FROM honors
		ORDER BY date, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying honors: %w", err)
	}
	defer rows.Close()

	return r.scanHonors(rows)
}

// ListUpTo retrieves honors dated on or before the given ISO date.
func (r *HonorRepository) ListUpTo(ctx context.Context, date string) ([]models.HonorRecord, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, participant_id, date, reason
		FROM honors
		WHERE date <= ?
		ORDER BY date, id
	`, date)
	if err != nil {
		return nil, fmt.Errorf("querying honors up to date: %w", err)
	}
	defer rows.Close()

	return r.scanHonors(rows)
}

// CountForParticipantOnDate returns how many honors a participant holds
// on exactly the given ISO date. The award path uses it as the
// double-award guard.
func (r *HonorRepository) CountForParticipantOnDate(ctx context.Context, participantID int64, date string) (int, error) {
	var count int
	err := r.DB().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM honors WHERE participant_id = ? AND date = ?
	`, participantID, date).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting honors: %w", err)
	}
	return count, nil
}

// Count returns the number of cached honor records.
func (r *HonorRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM honors").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting honors: %w", err)
	}
	return count, nil
}

func (r *HonorRepository) scanHonors(rows *sql.Rows) ([]models.HonorRecord, error) {
	var honors []models.HonorRecord
	for rows.Next() {
		var h models.HonorRecord
		if err := rows.Scan(&h.ID, &h.ParticipantID, &h.Date, &h.Reason); err != nil {
			return nil, fmt.Errorf("scanning honor: %w", err)
		}
		honors = append(honors, h)
	}
	return honors, rows.Err()
}
