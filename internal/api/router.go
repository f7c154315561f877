// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/csabourin/wampums-station/internal/api/handlers"
	"github.com/csabourin/wampums-station/internal/api/middleware"
	"github.com/csabourin/wampums-station/internal/storage"
	syncsvc "github.com/csabourin/wampums-station/internal/sync"
	"github.com/csabourin/wampums-station/internal/wampums"
	"github.com/csabourin/wampums-station/internal/websocket"
)

// NewRouter creates and configures the HTTP router with all API routes.
// This is a convenience wrapper for callers without a scheduler.
func NewRouter(db *storage.DB, client *wampums.Client, hub *websocket.Hub, staticDir string) *mux.Router {
	return NewRouterWithScheduler(db, client, hub, staticDir, nil)
}

// NewRouterWithScheduler creates and configures the HTTP router with all
// API routes and injects the sync scheduler for refresh operations.
func NewRouterWithScheduler(
	db *storage.DB,
	client *wampums.Client,
	hub *websocket.Hub,
	staticDir string,
	scheduler *syncsvc.Scheduler,
) *mux.Router {
	sessionRepo := storage.NewSessionRepository(db)
	participantRepo := storage.NewParticipantRepository(db)
	honorRepo := storage.NewHonorRepository(db)
	equipmentRepo := storage.NewEquipmentRepository(db)
	reservationRepo := storage.NewReservationRepository(db)
	settingsRepo := storage.NewSettingsRepository(db)

	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging)
	r.Use(middleware.ErrorRecovery)

	// API subrouter
	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(db, sessionRepo, settingsRepo)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(sessionRepo, participantRepo, honorRepo, equipmentRepo, reservationRepo, settingsRepo, hub, scheduler)).Methods("GET")

	// WebSocket endpoint
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(hub)).Methods("GET")

	// Session endpoints
	api.HandleFunc("/session/login", handlers.Login(client, sessionRepo, scheduler)).Methods("POST")
	api.HandleFunc("/session", handlers.Logout(client, sessionRepo)).Methods("DELETE")

	// Roster endpoints
	api.HandleFunc("/participants", handlers.ListParticipants(participantRepo)).Methods("GET")
	api.HandleFunc("/honors", handlers.ListHonors(participantRepo, honorRepo, sessionRepo, settingsRepo)).Methods("GET")
	api.HandleFunc("/honors/award", handlers.AwardHonor(client, sessionRepo, participantRepo, honorRepo, settingsRepo, hub)).Methods("POST")

	// Equipment endpoints
	api.HandleFunc("/equipment", handlers.ListEquipment(equipmentRepo)).Methods("GET")
	api.HandleFunc("/equipment/{id}/reservations", handlers.EquipmentReservations(equipmentRepo, reservationRepo)).Methods("GET")
	api.HandleFunc("/equipment/{id}/conflicts", handlers.EquipmentConflicts(equipmentRepo, reservationRepo)).Methods("GET")
	api.HandleFunc("/reservations", handlers.CreateReservation(client, sessionRepo, equipmentRepo, reservationRepo, hub)).Methods("POST")

	// Sync and settings endpoints
	api.HandleFunc("/sync", handlers.TriggerSync(scheduler, sessionRepo)).Methods("POST")
	api.HandleFunc("/settings", handlers.GetSettings(settingsRepo)).Methods("GET")
	api.HandleFunc("/settings", handlers.UpdateSettings(settingsRepo, scheduler, hub)).Methods("PUT")

	// Serve static frontend files
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))

	return r
}
