package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/csabourin/wampums-station/internal/storage/models"
)

// ReservationRepository provides data access for cached reservations.
type ReservationRepository struct {
	BaseRepository
}

// NewReservationRepository creates a new reservation repository.
func NewReservationRepository(db *DB) *ReservationRepository {
	return &ReservationRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// ReplaceAll swaps the cached reservations for a fresh backend snapshot.
func (r *ReservationRepository) ReplaceAll(ctx context.Context, reservations []models.Reservation) error {
	return r.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM reservations"); err != nil {
			return fmt.Errorf("clearing reservations: %w", err)
		}

		for _, res := range reservations {
			if err := insertReservation(ctx, tx, &res); err != nil {
				return err
			}
		}

		return nil
	})
}

// Insert caches one reservation, typically the echo of a create call.
func (r *ReservationRepository) Insert(ctx context.Context, res *models.Reservation) error {
	result, err := r.DB().ExecContext(ctx, `
		INSERT INTO reservations (id, equipment_id, date_from, date_to, meeting_date, status, reserved_quantity, reserved_for, organization_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		nullableID(res.ID), res.EquipmentID, res.DateFrom, res.DateTo, res.MeetingDate,
		res.Status, res.ReservedQuantity, res.ReservedFor, res.OrganizationName,
	)
	if err != nil {
		return fmt.Errorf("inserting reservation: %w", err)
	}

	if res.ID == 0 {
		if id, err := result.LastInsertId(); err == nil {
			res.ID = id
		}
	}

	return nil
}

// List retrieves every cached reservation ordered by start date, then id,
// so conflict queries always see the same input order.
func (r *ReservationRepository) List(ctx context.Context) ([]models.Reservation, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, equipment_id, date_from, date_to, meeting_date, status, reserved_quantity, reserved_for, organization_name
		FROM reservations
		ORDER BY date_from, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying reservations: %w", err)
	}
	defer rows.Close()

	return r.scanReservations(rows)
}

// ListByEquipment retrieves the cached reservations for one equipment item.
func (r *ReservationRepository) ListByEquipment(ctx context.Context, equipmentID int64) ([]models.Reservation, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, equipment_id, date_from, date_to, meeting_date, status, reserved_quantity, reserved_for, organization_name
		FROM reservations
		WHERE equipment_id = ?
		ORDER BY date_from, id
	`, equipmentID)
	if err != nil {
		return nil, fmt.Errorf("querying reservations by equipment: %w", err)
	}
	defer rows.Close()

	return r.scanReservations(rows)
}

// Count returns the number of cached reservations.
func (r *ReservationRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM reservations").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting reservations: %w", err)
	}
	return count, nil
}

func (r *ReservationRepository) scanReservations(rows *sql.Rows) ([]models.Reservation, error) {
	var reservations []models.Reservation
	for rows.Next() {
		var res models.Reservation
		if err := rows.Scan(
			&res.ID, &res.EquipmentID, &res.DateFrom, &res.DateTo, &res.MeetingDate,
			&res.Status, &res.ReservedQuantity, &res.ReservedFor, &res.OrganizationName,
		); err != nil {
			return nil, fmt.Errorf("scanning reservation: %w", err)
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

func insertReservation(ctx context.Context, tx *sql.Tx, res *models.Reservation) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO reservations (id, equipment_id, date_from, date_to, meeting_date, status, reserved_quantity, reserved_for, organization_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		nullableID(res.ID), res.EquipmentID, res.DateFrom, res.DateTo, res.MeetingDate,
		res.Status, res.ReservedQuantity, res.ReservedFor, res.OrganizationName,
	)
	if err != nil {
		return fmt.Errorf("inserting reservation: %w", err)
	}
	return nil
}
