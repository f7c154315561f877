package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/csabourin/wampums-station/internal/api/middleware"
	"github.com/csabourin/wampums-station/internal/reservation"
	"github.com/csabourin/wampums-station/internal/storage"
	"github.com/csabourin/wampums-station/internal/storage/models"
)

// ListEquipment returns the cached equipment inventory.
func ListEquipment(equipmentRepo *storage.EquipmentRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		equipment, err := equipmentRepo.List(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query equipment")
			return
		}

		if equipment == nil {
			equipment = []models.Equipment{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(equipment)
	}
}

// EquipmentReservations returns the cached reservations for one piece of
// equipment, every status included.
func EquipmentReservations(equipmentRepo *storage.EquipmentRepository, reservationRepo *storage.ReservationRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, ok := equipmentIDVar(w, r)
		if !ok {
			return
		}

		equipment, err := equipmentRepo.GetByID(ctx, id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query equipment")
			return
		}
		if equipment == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Equipment not found")
			return
		}

		reservations, err := reservationRepo.ListByEquipment(ctx, id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query reservations")
			return
		}

		if reservations == nil {
			reservations = []models.Reservation{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(reservations)
	}
}

// ConflictCheckResponse reports the overlaps for a proposed window and
// how many units remain available inside it.
type ConflictCheckResponse struct {
	EquipmentID int64                `json:"equipment_id"`
	DateFrom    string               `json:"date_from"`
	DateTo      string               `json:"date_to"`
	Conflicts   []models.Reservation `json:"conflicts"`
	Available   int                  `json:"available"`
}

// EquipmentConflicts dry-runs a reservation window against the cache:
// no reservation is created, the caller just learns what collides.
func EquipmentConflicts(equipmentRepo *storage.EquipmentRepository, reservationRepo *storage.ReservationRepository) http.HandlerFunc {
	checker := reservation.NewChecker(reservationRepo.ListByEquipment)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, ok := equipmentIDVar(w, r)
		if !ok {
			return
		}

		dateFrom := r.URL.Query().Get("date_from")
		dateTo := r.URL.Query().Get("date_to")
		if dateFrom == "" || dateTo == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "date_from and date_to are required")
			return
		}
		if !isISODate(dateFrom) || !isISODate(dateTo) {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "dates must be YYYY-MM-DD")
			return
		}

		equipment, err := equipmentRepo.GetByID(ctx, id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query equipment")
			return
		}
		if equipment == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Equipment not found")
			return
		}

		conflicts, err := checker.Check(ctx, id, dateFrom, dateTo)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query reservations")
			return
		}

		response := ConflictCheckResponse{
			EquipmentID: id,
			DateFrom:    dateFrom,
			DateTo:      dateTo,
			Conflicts:   conflicts,
			Available:   reservation.AvailableQuantity(equipment, conflicts),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

// equipmentIDVar parses the {id} route variable, writing the error
// response itself on junk input.
func equipmentIDVar(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Equipment id must be a positive integer")
		return 0, false
	}
	return id, true
}
