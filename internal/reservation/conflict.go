// Package reservation implements conflict detection for equipment
// reservations: finding the existing active reservations that overlap a
// proposed date window for a piece of equipment.
package reservation

import (
	"context"
	"fmt"

	"github.com/csabourin/wampums-station/internal/storage/models"
)

// Overlaps reports whether two inclusive calendar-date ranges intersect.
// Dates are ISO YYYY-MM-DD strings; lexicographic order matches
// chronological order, so no time parsing is involved.
func Overlaps(aFrom, aTo, bFrom, bTo string) bool {
	return aFrom <= bTo && aTo >= bFrom
}

// FindConflicts returns the reservations that block a proposed window for
// the given equipment item. A reservation conflicts when it targets the
// same equipment, its status is active (reserved or confirmed), and its
// date range overlaps the proposed one, boundaries inclusive.
//
// An absent or inverted proposed window means no meaningful query was
// asked; the result is empty, not an error. Input order is preserved,
// duplicates pass through, and the input slice is never modified.
func FindConflicts(reservations []models.Reservation, equipmentID int64, proposedFrom, proposedTo string) []models.Reservation {
	conflicts := []models.Reservation{}
	if proposedFrom == "" || proposedTo == "" || proposedFrom > proposedTo {
		return conflicts
	}

	for _, res := range reservations {
		if res.EquipmentID != equipmentID || !res.IsActiveStatus() {
			continue
		}

		from := res.StartDate()
		to := res.EndDate()
		if from == "" || to == "" {
			continue
		}

		if Overlaps(from, to, proposedFrom, proposedTo) {
			conflicts = append(conflicts, res)
		}
	}

	return conflicts
}

// AvailableQuantity returns how many units of an equipment item remain
// free over a proposed window, given the conflicts already found for it.
// A reservation without an explicit quantity holds one unit. The result
// never goes below zero.
func AvailableQuantity(equipment *models.Equipment, conflicts []models.Reservation) int {
	if equipment == nil {
		return 0
	}

	available := equipment.QuantityTotal
	for _, res := range conflicts {
		qty := res.ReservedQuantity
		if qty < 1 {
			qty = 1
		}
		available -= qty
	}

	if available < 0 {
		return 0
	}
	return available
}

// Checker runs conflict queries against a reservation source.
type Checker struct {
	// loadReservations is a function that queries the cached reservations
	// for one equipment item
	loadReservations func(ctx context.Context, equipmentID int64) ([]models.Reservation, error)
}

// NewChecker creates a new conflict checker around a reservation loader.
func NewChecker(loadFunc func(ctx context.Context, equipmentID int64) ([]models.Reservation, error)) *Checker {
	return &Checker{
		loadReservations: loadFunc,
	}
}

// Check loads the reservations for an equipment item and returns the ones
// conflicting with the proposed window.
func (c *Checker) Check(ctx context.Context, equipmentID int64, proposedFrom, proposedTo string) ([]models.Reservation, error) {
	reservations, err := c.loadReservations(ctx, equipmentID)
	if err != nil {
		return nil, fmt.Errorf("loading reservations: %w", err)
	}
	return FindConflicts(reservations, equipmentID, proposedFrom, proposedTo), nil
}

// HasConflict returns true if any active reservation overlaps the window.
func (c *Checker) HasConflict(ctx context.Context, equipmentID int64, proposedFrom, proposedTo string) (bool, error) {
	conflicts, err := c.Check(ctx, equipmentID, proposedFrom, proposedTo)
	if err != nil {
		return false, err
	}
	return len(conflicts) > 0, nil
}
