package sync

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/csabourin/wampums-station/internal/storage"
	"github.com/csabourin/wampums-station/internal/websocket"
)

// DefaultSyncIntervalMin is used when no refresh interval has been configured.
const DefaultSyncIntervalMin = 15

// Scheduler manages the periodic roster refresh and the session watchdog.
type Scheduler struct {
	cron         *cron.Cron
	service      *Service
	sessionRepo  *storage.SessionRepository
	settingsRepo *storage.SettingsRepository
	broadcaster  *websocket.EventBroadcaster

	mu                 sync.Mutex
	refreshJob         cron.EntryID
	defaultIntervalMin int

	// Set once the expiry broadcast has gone out, cleared when a fresh
	// session appears, so dashboards hear about a lapse exactly once.
	expiryNotified bool
}

// NewScheduler creates a new roster sync scheduler.
func NewScheduler(
	service *Service,
	sessionRepo *storage.SessionRepository,
	settingsRepo *storage.SettingsRepository,
	hub *websocket.Hub,
	defaultIntervalMin int,
) *Scheduler {
	if defaultIntervalMin <= 0 {
		defaultIntervalMin = DefaultSyncIntervalMin
	}

	var broadcaster *websocket.EventBroadcaster
	if hub != nil {
		broadcaster = websocket.NewEventBroadcaster(hub)
	}

	return &Scheduler{
		cron:               cron.New(cron.WithSeconds()),
		service:            service,
		sessionRepo:        sessionRepo,
		settingsRepo:       settingsRepo,
		broadcaster:        broadcaster,
		defaultIntervalMin: defaultIntervalMin,
	}
}

// Start begins the scheduler with the configured refresh interval.
func (s *Scheduler) Start(ctx context.Context) error {
	log.Println("Starting roster sync scheduler...")

	interval, err := s.settingsRepo.GetInt(ctx, storage.SettingSyncIntervalMin, s.defaultIntervalMin)
	if err != nil {
		return err
	}

	s.scheduleRefresh(interval)

	// Watch the cached session for expiry every minute
	s.cron.AddFunc("@every 1m", s.checkSession)

	s.cron.Start()
	log.Println("Roster scheduler started")

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	log.Println("Stopping roster sync scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Roster scheduler stopped")
}

// Reschedule replaces the refresh job with a new interval. Called when the
// sync_interval_min setting changes.
func (s *Scheduler) Reschedule(intervalMin int) {
	s.scheduleRefresh(intervalMin)
}

// TriggerRefresh starts an immediate refresh in the background.
func (s *Scheduler) TriggerRefresh() {
	go s.refresh()
}

// NextRefresh returns the next scheduled refresh time, if any.
func (s *Scheduler) NextRefresh() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refreshJob == 0 {
		return nil
	}

	entry := s.cron.Entry(s.refreshJob)
	if entry.Next.IsZero() {
		return nil
	}
	next := entry.Next
	return &next
}

// scheduleRefresh replaces the refresh job, normalizing the interval.
func (s *Scheduler) scheduleRefresh(intervalMin int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if intervalMin <= 0 {
		intervalMin = s.defaultIntervalMin
	}

	if s.refreshJob != 0 {
		s.cron.Remove(s.refreshJob)
		s.refreshJob = 0
	}

	entryID, err := s.cron.AddFunc(minutesToCronSpec(intervalMin), s.refresh)
	if err != nil {
		log.Printf("Failed to schedule roster refresh: %v", err)
		return
	}

	s.refreshJob = entryID
	log.Printf("Scheduled roster refresh every %d minutes", intervalMin)
}

// refresh performs one refresh cycle. RefreshAll logs, records, and
// broadcasts its own failures; a missing session just means nobody has
// logged in yet.
func (s *Scheduler) refresh() {
	_, _ = s.service.RefreshAll(context.Background())
}

// checkSession broadcasts session.expired once when the cached token lapses.
func (s *Scheduler) checkSession() {
	session, err := s.sessionRepo.Get(context.Background())
	if err != nil {
		log.Printf("Session check failed: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if session == nil || !session.IsExpired(time.Now().UTC()) {
		s.expiryNotified = false
		return
	}

	if s.expiryNotified {
		return
	}
	s.expiryNotified = true

	log.Printf("Cached session for %s has expired", session.Email)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastSessionExpired(session.Email)
	}
}

// minutesToCronSpec converts minutes to a cron spec.
func minutesToCronSpec(minutes int) string {
	if minutes <= 0 {
		minutes = DefaultSyncIntervalMin
	}

	duration := time.Duration(minutes) * time.Minute
	return "@every " + duration.String()
}
