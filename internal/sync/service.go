// Package sync keeps the station's local cache aligned with the Wampums backend.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/csabourin/wampums-station/internal/storage"
	"github.com/csabourin/wampums-station/internal/storage/models"
	"github.com/csabourin/wampums-station/internal/wampums"
	"github.com/csabourin/wampums-station/internal/websocket"
)

var (
	// ErrNoSession is returned when no backend session has been cached yet.
	ErrNoSession = errors.New("no cached session")

	// ErrSessionExpired is returned when the cached session token has lapsed.
	ErrSessionExpired = errors.New("session expired")
)

// Service refreshes the local roster cache from the Wampums backend.
type Service struct {
	client          *wampums.Client
	sessionRepo     *storage.SessionRepository
	participantRepo *storage.ParticipantRepository
	honorRepo       *storage.HonorRepository
	equipmentRepo   *storage.EquipmentRepository
	reservationRepo *storage.ReservationRepository
	settingsRepo    *storage.SettingsRepository
	broadcaster     *websocket.EventBroadcaster
}

// NewService creates a new roster sync service.
func NewService(
	client *wampums.Client,
	sessionRepo *storage.SessionRepository,
	participantRepo *storage.ParticipantRepository,
	honorRepo *storage.HonorRepository,
	equipmentRepo *storage.EquipmentRepository,
	reservationRepo *storage.ReservationRepository,
	settingsRepo *storage.SettingsRepository,
	hub *websocket.Hub,
) *Service {
	var broadcaster *websocket.EventBroadcaster
	if hub != nil {
		broadcaster = websocket.NewEventBroadcaster(hub)
	}

	return &Service{
		client:          client,
		sessionRepo:     sessionRepo,
		participantRepo: participantRepo,
		honorRepo:       honorRepo,
		equipmentRepo:   equipmentRepo,
		reservationRepo: reservationRepo,
		settingsRepo:    settingsRepo,
		broadcaster:     broadcaster,
	}
}

// RefreshAll fetches every backend collection and snapshot-swaps the local
// cache. A failed refresh leaves the previous cache untouched so dashboards
// keep working from stale data while the backend is unreachable.
func (s *Service) RefreshAll(ctx context.Context) (*models.RefreshResult, error) {
	session, err := s.sessionRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if session == nil {
		return nil, ErrNoSession
	}
	if session.IsExpired(time.Now().UTC()) {
		return nil, ErrSessionExpired
	}

	// The client may have restarted since login; re-arm its credentials.
	s.client.SetCredentials(session.AccessToken, session.OrganizationID)

	log.Println("Refreshing roster from Wampums backend...")
	started := time.Now()

	var (
		participants []models.Participant
		honors       []models.HonorRecord
		equipment    []models.Equipment
		reservations []models.Reservation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if participants, err = s.client.FetchParticipants(gctx); err != nil {
			return fmt.Errorf("fetching participants: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if honors, err = s.client.FetchHonors(gctx, ""); err != nil {
			return fmt.Errorf("fetching honors: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if equipment, err = s.client.FetchEquipment(gctx); err != nil {
			return fmt.Errorf("fetching equipment: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if reservations, err = s.client.FetchReservations(gctx, 0); err != nil {
			return fmt.Errorf("fetching reservations: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return s.fail(ctx, started, err), err
	}

	if err := s.participantRepo.ReplaceAll(ctx, participants); err != nil {
		err = fmt.Errorf("storing participants: %w", err)
		return s.fail(ctx, started, err), err
	}
	if err := s.honorRepo.ReplaceAll(ctx, honors); err != nil {
		err = fmt.Errorf("storing honors: %w", err)
		return s.fail(ctx, started, err), err
	}
	if err := s.equipmentRepo.ReplaceAll(ctx, equipment); err != nil {
		err = fmt.Errorf("storing equipment: %w", err)
		return s.fail(ctx, started, err), err
	}
	if err := s.reservationRepo.ReplaceAll(ctx, reservations); err != nil {
		err = fmt.Errorf("storing reservations: %w", err)
		return s.fail(ctx, started, err), err
	}

	result := &models.RefreshResult{
		Participants: len(participants),
		Honors:       len(honors),
		Equipment:    len(equipment),
		Reservations: len(reservations),
		Duration:     time.Since(started),
		SyncedAt:     time.Now().UTC(),
	}

	if err := s.settingsRepo.Set(ctx, storage.SettingLastSyncAt, result.SyncedAt.Format(time.RFC3339)); err != nil {
		log.Printf("Failed to record sync time: %v", err)
	}
	if err := s.settingsRepo.Set(ctx, storage.SettingLastSyncError, ""); err != nil {
		log.Printf("Failed to clear sync error: %v", err)
	}

	log.Printf("Roster sync completed: %d participants, %d honors, %d equipment, %d reservations in %s",
		result.Participants, result.Honors, result.Equipment, result.Reservations,
		result.Duration.Round(time.Millisecond))

	if s.broadcaster != nil {
		s.broadcaster.BroadcastSyncCompleted(*result)
	}

	return result, nil
}

// fail records a refresh failure without touching the cached snapshot.
func (s *Service) fail(ctx context.Context, started time.Time, err error) *models.RefreshResult {
	log.Printf("Roster sync failed: %v", err)

	if setErr := s.settingsRepo.Set(ctx, storage.SettingLastSyncError, err.Error()); setErr != nil {
		log.Printf("Failed to record sync error: %v", setErr)
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastSyncError(err)
	}

	return &models.RefreshResult{
		Duration: time.Since(started),
		Error:    err,
		SyncedAt: time.Now().UTC(),
	}
}
