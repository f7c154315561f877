package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/csabourin/wampums-station/internal/api/middleware"
	"github.com/csabourin/wampums-station/internal/auth"
	"github.com/csabourin/wampums-station/internal/reservation"
	"github.com/csabourin/wampums-station/internal/storage"
	"github.com/csabourin/wampums-station/internal/storage/models"
	"github.com/csabourin/wampums-station/internal/wampums"
	"github.com/csabourin/wampums-station/internal/websocket"
)

// CreateReservationRequest is the body of POST /api/reservations.
type CreateReservationRequest struct {
	EquipmentID int64  `json:"equipment_id"`
	DateFrom    string `json:"date_from"`
	DateTo      string `json:"date_to"`
	Quantity    int    `json:"quantity"`
	ReservedFor string `json:"reserved_for"`
}

// CreateReservation checks the proposed window against the cache, then
// forwards the reservation to the backend, caches the stored row, and
// broadcasts reservation.created. A window that would exhaust the
// inventory is rejected with the conflicting reservations attached.
func CreateReservation(
	client *wampums.Client,
	sessionRepo *storage.SessionRepository,
	equipmentRepo *storage.EquipmentRepository,
	reservationRepo *storage.ReservationRepository,
	hub *websocket.Hub,
) http.HandlerFunc {
	checker := reservation.NewChecker(reservationRepo.ListByEquipment)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req CreateReservationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		session, valid := activeSession(ctx, sessionRepo)
		if !valid {
			middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "No active session")
			return
		}
		if !auth.CanManageEquipment(session.Role) {
			middleware.WriteError(w, http.StatusForbidden, middleware.ErrForbidden, "Role cannot reserve equipment")
			return
		}

		if req.EquipmentID == 0 {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "equipment_id is required")
			return
		}
		if req.DateFrom == "" || req.DateTo == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "date_from and date_to are required")
			return
		}
		if !isISODate(req.DateFrom) || !isISODate(req.DateTo) {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "dates must be YYYY-MM-DD")
			return
		}
		if req.DateFrom > req.DateTo {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "date_from must not be after date_to")
			return
		}
		if req.Quantity <= 0 {
			req.Quantity = 1
		}

		equipment, err := equipmentRepo.GetByID(ctx, req.EquipmentID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query equipment")
			return
		}
		if equipment == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Equipment not found")
			return
		}

		conflicts, err := checker.Check(ctx, req.EquipmentID, req.DateFrom, req.DateTo)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query reservations")
			return
		}

		if available := reservation.AvailableQuantity(equipment, conflicts); req.Quantity > available {
			middleware.WriteErrorWithDetails(w, http.StatusConflict, middleware.ErrConflict,
				"Requested window collides with existing reservations", conflicts)
			return
		}

		client.SetCredentials(session.AccessToken, session.OrganizationID)

		created, err := client.CreateReservation(ctx, models.Reservation{
			EquipmentID:      req.EquipmentID,
			DateFrom:         req.DateFrom,
			DateTo:           req.DateTo,
			ReservedQuantity: req.Quantity,
			ReservedFor:      req.ReservedFor,
		})
		if err != nil {
			writeBackendError(w, err, "reservation")
			return
		}

		if err := reservationRepo.Insert(ctx, created); err != nil {
			// The backend accepted it; the next refresh heals the cache.
			log.Printf("Failed to cache reservation: %v", err)
		}

		if hub != nil {
			websocket.NewEventBroadcaster(hub).BroadcastReservationCreated(*created, equipment.Name)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
	}
}
