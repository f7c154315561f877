package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/csabourin/wampums-station/internal/storage/models"
)

// EquipmentRepository provides data access for the cached equipment catalog.
type EquipmentRepository struct {
	BaseRepository
}

// NewEquipmentRepository creates a new equipment repository.
func NewEquipmentRepository(db *DB) *EquipmentRepository {
	return &EquipmentRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// ReplaceAll swaps the cached catalog for a fresh backend snapshot.
func (r *EquipmentRepository) ReplaceAll(ctx context.Context, equipment []models.Equipment) error {
	return r.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM equipment"); err != nil {
			return fmt.Errorf("clearing equipment: %w", err)
		}

		for _, e := range equipment {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO equipment (id, name, category, quantity_total)
				VALUES (?, ?, ?, ?)
			`, nullableID(e.ID), e.Name, e.Category, e.QuantityTotal)
			if err != nil {
				return fmt.Errorf("inserting equipment: %w", err)
			}
		}

		return nil
	})
}

// List retrieves the catalog grouped by category for display.
func (r *EquipmentRepository) List(ctx context.Context) ([]models.Equipment, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, name, category, quantity_total
		FROM equipment
		ORDER BY category, name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying equipment: %w", err)
	}
	defer rows.Close()

	var equipment []models.Equipment
	for rows.Next() {
		var e models.Equipment
		if err := rows.Scan(&e.ID, &e.Name, &e.Category, &e.QuantityTotal); err != nil {
			return nil, fmt.Errorf("scanning equipment: %w", err)
		}
		equipment = append(equipment, e)
	}
	return equipment, rows.Err()
}

// GetByID retrieves one equipment item, or nil when unknown.
func (r *EquipmentRepository) GetByID(ctx context.Context, id int64) (*models.Equipment, error) {
	e := &models.Equipment{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, name, category, quantity_total
		FROM equipment WHERE id = ?
	`, id).Scan(&e.ID, &e.Name, &e.Category, &e.QuantityTotal)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying equipment item: %w", err)
	}

	return e, nil
}

// Count returns the number of cached equipment items.
func (r *EquipmentRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM equipment").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting equipment: %w", err)
	}
	return count, nil
}
