package reservation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csabourin/wampums-station/internal/storage/models"
)

func TestOverlaps(t *testing.T) {
	t.Run("Boundary Touch Counts", func(t *testing.T) {
		assert.True(t, Overlaps("2024-06-01", "2024-06-03", "2024-06-03", "2024-06-05"))
		assert.True(t, Overlaps("2024-06-03", "2024-06-05", "2024-06-01", "2024-06-03"))
	})

	t.Run("Disjoint Ranges", func(t *testing.T) {
		assert.False(t, Overlaps("2024-06-01", "2024-06-03", "2024-06-04", "2024-06-05"))
		assert.False(t, Overlaps("2024-06-04", "2024-06-05", "2024-06-01", "2024-06-03"))
	})

	t.Run("Contained Range", func(t *testing.T) {
		assert.True(t, Overlaps("2024-06-02", "2024-06-02", "2024-06-01", "2024-06-05"))
		assert.True(t, Overlaps("2024-06-01", "2024-06-05", "2024-06-02", "2024-06-02"))
	})
}

func TestFindConflicts(t *testing.T) {
	reservations := []models.Reservation{
		{ID: 1, EquipmentID: 7, Status: models.ReservationStatusConfirmed, DateFrom: "2024-06-01", DateTo: "2024-06-03"},
	}

	t.Run("Boundary Inclusive Overlap", func(t *testing.T) {
		conflicts := FindConflicts(reservations, 7, "2024-06-03", "2024-06-05")
		require.Len(t, conflicts, 1)
		assert.Equal(t, int64(1), conflicts[0].ID)
	})

	t.Run("No Overlap After Range", func(t *testing.T) {
		conflicts := FindConflicts(reservations, 7, "2024-06-04", "2024-06-05")
		assert.Empty(t, conflicts)
		assert.NotNil(t, conflicts)
	})

	t.Run("Missing Dates Short Circuit", func(t *testing.T) {
		assert.Empty(t, FindConflicts(reservations, 7, "", "2024-06-05"))
		assert.Empty(t, FindConflicts(reservations, 7, "2024-06-01", ""))
		assert.Empty(t, FindConflicts(reservations, 7, "", ""))
	})

	t.Run("Inverted Range Short Circuit", func(t *testing.T) {
		spanning := []models.Reservation{
			{ID: 2, EquipmentID: 7, Status: models.ReservationStatusReserved, DateFrom: "2024-01-01", DateTo: "2024-12-31"},
		}
		assert.Empty(t, FindConflicts(spanning, 7, "2024-06-10", "2024-06-05"))
	})

	t.Run("Inactive Status Excluded", func(t *testing.T) {
		mixed := []models.Reservation{
			{ID: 1, EquipmentID: 7, Status: models.ReservationStatusCancelled, DateFrom: "2024-06-01", DateTo: "2024-06-03"},
			{ID: 2, EquipmentID: 7, Status: models.ReservationStatusReturned, DateFrom: "2024-06-01", DateTo: "2024-06-03"},
			{ID: 3, EquipmentID: 7, Status: "", DateFrom: "2024-06-01", DateTo: "2024-06-03"},
			{ID: 4, EquipmentID: 7, Status: models.ReservationStatusReserved, DateFrom: "2024-06-01", DateTo: "2024-06-03"},
		}
		conflicts := FindConflicts(mixed, 7, "2024-06-01", "2024-06-05")
		require.Len(t, conflicts, 1)
		assert.Equal(t, int64(4), conflicts[0].ID)
	})

	t.Run("Other Equipment Excluded", func(t *testing.T) {
		assert.Empty(t, FindConflicts(reservations, 8, "2024-06-01", "2024-06-05"))
	})

	t.Run("Single Day Reservation Symmetry", func(t *testing.T) {
		day := []models.Reservation{
			{ID: 1, EquipmentID: 3, Status: models.ReservationStatusConfirmed, DateFrom: "2024-06-10", DateTo: "2024-06-10"},
		}
		assert.Len(t, FindConflicts(day, 3, "2024-06-10", "2024-06-10"), 1)
		assert.Len(t, FindConflicts(day, 3, "2024-06-01", "2024-06-30"), 1)
		assert.Empty(t, FindConflicts(day, 3, "2024-06-01", "2024-06-09"))
		assert.Empty(t, FindConflicts(day, 3, "2024-06-11", "2024-06-30"))
	})

	t.Run("Meeting Date Fallback", func(t *testing.T) {
		meeting := []models.Reservation{
			{ID: 5, EquipmentID: 3, Status: models.ReservationStatusReserved, MeetingDate: "2024-06-10"},
		}
		conflicts := FindConflicts(meeting, 3, "2024-06-10", "2024-06-12")
		require.Len(t, conflicts, 1)
		assert.Equal(t, int64(5), conflicts[0].ID)
		assert.Empty(t, FindConflicts(meeting, 3, "2024-06-11", "2024-06-12"))
	})

	t.Run("Dateless Reservation Skipped", func(t *testing.T) {
		dateless := []models.Reservation{
			{ID: 6, EquipmentID: 3, Status: models.ReservationStatusReserved},
		}
		assert.Empty(t, FindConflicts(dateless, 3, "2024-06-01", "2024-06-30"))
	})

	t.Run("Order Preserved And Duplicates Kept", func(t *testing.T) {
		dup := models.Reservation{ID: 9, EquipmentID: 7, Status: models.ReservationStatusReserved, DateFrom: "2024-06-02", DateTo: "2024-06-02"}
		input := []models.Reservation{
			{ID: 2, EquipmentID: 7, Status: models.ReservationStatusConfirmed, DateFrom: "2024-06-05", DateTo: "2024-06-06"},
			dup,
			dup,
			{ID: 1, EquipmentID: 7, Status: models.ReservationStatusReserved, DateFrom: "2024-06-01", DateTo: "2024-06-01"},
		}
		conflicts := FindConflicts(input, 7, "2024-06-01", "2024-06-30")
		require.Len(t, conflicts, 4)
		assert.Equal(t, int64(2), conflicts[0].ID)
		assert.Equal(t, int64(9), conflicts[1].ID)
		assert.Equal(t, int64(9), conflicts[2].ID)
		assert.Equal(t, int64(1), conflicts[3].ID)
	})

	t.Run("Input Not Mutated", func(t *testing.T) {
		input := []models.Reservation{
			{ID: 1, EquipmentID: 7, Status: models.ReservationStatusConfirmed, DateFrom: "2024-06-01", DateTo: "2024-06-03"},
			{ID: 2, EquipmentID: 8, Status: models.ReservationStatusReserved, DateFrom: "2024-06-01", DateTo: "2024-06-03"},
		}
		FindConflicts(input, 7, "2024-06-01", "2024-06-05")
		assert.Equal(t, int64(1), input[0].ID)
		assert.Equal(t, int64(2), input[1].ID)
		assert.Equal(t, int64(8), input[1].EquipmentID)
	})
}

func TestAvailableQuantity(t *testing.T) {
	tent := &models.Equipment{ID: 7, Name: "Tente 4 places", QuantityTotal: 5}

	t.Run("Subtracts Reserved Quantities", func(t *testing.T) {
		conflicts := []models.Reservation{
			{ReservedQuantity: 2},
			{ReservedQuantity: 1},
		}
		assert.Equal(t, 2, AvailableQuantity(tent, conflicts))
	})

	t.Run("Zero Quantity Counts As One Unit", func(t *testing.T) {
		conflicts := []models.Reservation{{ReservedQuantity: 0}}
		assert.Equal(t, 4, AvailableQuantity(tent, conflicts))
	})

	t.Run("Never Negative", func(t *testing.T) {
		conflicts := []models.Reservation{{ReservedQuantity: 9}}
		assert.Equal(t, 0, AvailableQuantity(tent, conflicts))
	})

	t.Run("No Conflicts Leaves Total", func(t *testing.T) {
		assert.Equal(t, 5, AvailableQuantity(tent, nil))
	})

	t.Run("Nil Equipment", func(t *testing.T) {
		assert.Equal(t, 0, AvailableQuantity(nil, nil))
	})
}

func TestChecker(t *testing.T) {
	stored := []models.Reservation{
		{ID: 1, EquipmentID: 7, Status: models.ReservationStatusConfirmed, DateFrom: "2024-06-01", DateTo: "2024-06-03"},
		{ID: 2, EquipmentID: 7, Status: models.ReservationStatusCancelled, DateFrom: "2024-06-01", DateTo: "2024-06-03"},
	}

	t.Run("Check Filters Loaded Reservations", func(t *testing.T) {
		checker := NewChecker(func(ctx context.Context, equipmentID int64) ([]models.Reservation, error) {
			assert.Equal(t, int64(7), equipmentID)
			return stored, nil
		})

		conflicts, err := checker.Check(context.Background(), 7, "2024-06-02", "2024-06-04")
		require.NoError(t, err)
		require.Len(t, conflicts, 1)
		assert.Equal(t, int64(1), conflicts[0].ID)
	})

	t.Run("HasConflict", func(t *testing.T) {
		checker := NewChecker(func(ctx context.Context, equipmentID int64) ([]models.Reservation, error) {
			return stored, nil
		})

		has, err := checker.HasConflict(context.Background(), 7, "2024-06-02", "2024-06-04")
		require.NoError(t, err)
		assert.True(t, has)

		has, err = checker.HasConflict(context.Background(), 7, "2024-06-04", "2024-06-05")
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("Loader Error Propagates", func(t *testing.T) {
		checker := NewChecker(func(ctx context.Context, equipmentID int64) ([]models.Reservation, error) {
			return nil, errors.New("db closed")
		})

		_, err := checker.Check(context.Background(), 7, "2024-06-01", "2024-06-02")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "loading reservations")
	})
}
