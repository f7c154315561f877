// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/csabourin/wampums-station/internal/auth"
	"github.com/csabourin/wampums-station/internal/storage"
	syncsvc "github.com/csabourin/wampums-station/internal/sync"
	"github.com/csabourin/wampums-station/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status           string `json:"status"`
	DBConnected      bool   `json:"db_connected"`
	SessionValid     bool   `json:"session_valid"`
	BackendReachable bool   `json:"backend_reachable"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(db *storage.DB, sessionRepo *storage.SessionRepository, settingsRepo *storage.SettingsRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		dbConnected := db.Ping() == nil

		sessionValid := false
		if session, err := sessionRepo.Get(ctx); err == nil && session != nil {
			sessionValid = !session.IsExpired(time.Now().UTC())
		}

		// The backend counts as reachable while the last completed
		// refresh succeeded.
		backendReachable := false
		if lastSync, err := settingsRepo.Get(ctx, storage.SettingLastSyncAt, ""); err == nil && lastSync != "" {
			lastErr, err := settingsRepo.Get(ctx, storage.SettingLastSyncError, "")
			backendReachable = err == nil && lastErr == ""
		}

		// Only the local database gates liveness; a logged-out or
		// offline station still serves its cache.
		status := "healthy"
		if !dbConnected {
			status = "degraded"
		}

		response := HealthResponse{
			Status:           status,
			DBConnected:      dbConnected,
			SessionValid:     sessionValid,
			BackendReachable: backendReachable,
		}

		w.Header().Set("Content-Type", "application/json")
		if status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(response)
	}
}

// StatusResponse represents the station status response.
type StatusResponse struct {
	Participants     int    `json:"participants"`
	Honors           int    `json:"honors"`
	Equipment        int    `json:"equipment"`
	Reservations     int    `json:"reservations"`
	LastSyncAt       string `json:"last_sync_at,omitempty"`
	LastSyncError    string `json:"last_sync_error,omitempty"`
	NextSyncAt       string `json:"next_sync_at,omitempty"`
	ConnectedClients int    `json:"connected_clients"`
	Role             string `json:"role,omitempty"`
	Dashboard        string `json:"dashboard,omitempty"`
}

// Status returns a handler that reports cache counts and sync state.
func Status(
	sessionRepo *storage.SessionRepository,
	participantRepo *storage.ParticipantRepository,
	honorRepo *storage.HonorRepository,
	equipmentRepo *storage.EquipmentRepository,
	reservationRepo *storage.ReservationRepository,
	settingsRepo *storage.SettingsRepository,
	hub *websocket.Hub,
	scheduler *syncsvc.Scheduler,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var response StatusResponse
		response.Participants, _ = participantRepo.Count(ctx)
		response.Honors, _ = honorRepo.Count(ctx)
		response.Equipment, _ = equipmentRepo.Count(ctx)
		response.Reservations, _ = reservationRepo.Count(ctx)

		response.LastSyncAt, _ = settingsRepo.Get(ctx, storage.SettingLastSyncAt, "")
		response.LastSyncError, _ = settingsRepo.Get(ctx, storage.SettingLastSyncError, "")

		if hub != nil {
			response.ConnectedClients = hub.ClientCount()
		}
		if scheduler != nil {
			if next := scheduler.NextRefresh(); next != nil {
				response.NextSyncAt = next.UTC().Format(time.RFC3339)
			}
		}

		if session, err := sessionRepo.Get(ctx); err == nil && session != nil {
			response.Role = session.Role
			response.Dashboard = auth.DashboardRoute(session.Role)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}
