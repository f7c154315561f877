// Package main is the entry point for the Wampums station server.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/csabourin/wampums-station/internal/api"
	"github.com/csabourin/wampums-station/internal/storage"
	syncsvc "github.com/csabourin/wampums-station/internal/sync"
	"github.com/csabourin/wampums-station/internal/wampums"
	"github.com/csabourin/wampums-station/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	// Parse command-line flags
	addr := flag.String("addr", ":8180", "HTTP server address")
	dataDir := flag.String("data", "/data", "Data directory for SQLite database")
	staticDir := flag.String("static", "./static", "Directory for static dashboard files")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(*addr); err != nil {
			log.Fatalf("Health check failed: %v", err)
		}
		os.Exit(0)
	}

	// Hall installs configured by hand keep their backend settings in .env
	_ = godotenv.Load()

	// Allow overriding version via environment (e.g., injected by container build/runtime)
	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	log.Printf("Starting Wampums station (version: %s)...", version)

	// Initialize database
	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory %q: %v", *dataDir, err)
	}
	dbPath := *dataDir + "/wampums-station.db"
	db, err := storage.NewDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := storage.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations complete")

	// Initialize WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()

	// Initialize repositories
	sessionRepo := storage.NewSessionRepository(db)
	participantRepo := storage.NewParticipantRepository(db)
	honorRepo := storage.NewHonorRepository(db)
	equipmentRepo := storage.NewEquipmentRepository(db)
	reservationRepo := storage.NewReservationRepository(db)
	settingsRepo := storage.NewSettingsRepository(db)

	// Initialize Wampums backend client
	client := wampums.NewClient(wampums.DefaultConfig())

	// Re-arm the client if a session survived a restart
	if session, err := sessionRepo.Get(context.Background()); err == nil && session != nil {
		client.SetCredentials(session.AccessToken, session.OrganizationID)
		log.Printf("Restored session for %s (%s)", session.Email, session.Role)
	}

	// Initialize sync service and scheduler
	syncService := syncsvc.NewService(
		client,
		sessionRepo,
		participantRepo,
		honorRepo,
		equipmentRepo,
		reservationRepo,
		settingsRepo,
		hub,
	)
	scheduler := syncsvc.NewScheduler(syncService, sessionRepo, settingsRepo, hub, syncsvc.DefaultSyncIntervalMin)

	if err := scheduler.Start(context.Background()); err != nil {
		log.Printf("Warning: Failed to start sync scheduler: %v", err)
	}

	// Initialize HTTP router with services
	router := api.NewRouterWithScheduler(db, client, hub, *staticDir, scheduler)

	// Create HTTP server
	server := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("Server listening on %s", *addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Stop the scheduler before the server so no refresh lands mid-shutdown
	scheduler.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return http.ErrAbortHandler
	}
	return nil
}
