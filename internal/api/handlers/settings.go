package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/text/language"

	"github.com/csabourin/wampums-station/internal/api/middleware"
	"github.com/csabourin/wampums-station/internal/storage"
	syncsvc "github.com/csabourin/wampums-station/internal/sync"
	"github.com/csabourin/wampums-station/internal/websocket"
)

// SettingsResponse represents settings in API responses.
type SettingsResponse struct {
	SyncIntervalMin int    `json:"sync_interval_min"`
	Locale          string `json:"locale"`
	Timezone        string `json:"timezone"`
	LastSyncAt      string `json:"last_sync_at,omitempty"`
	LastSyncError   string `json:"last_sync_error,omitempty"`
}

// GetSettings returns the station settings.
func GetSettings(settingsRepo *storage.SettingsRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		settings, err := settingsRepo.All(ctx)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query settings")
			return
		}

		response := SettingsResponse{
			SyncIntervalMin: syncsvc.DefaultSyncIntervalMin,
			Locale:          settings[storage.SettingLocale],
			Timezone:        settings[storage.SettingTimezone],
			LastSyncAt:      settings[storage.SettingLastSyncAt],
			LastSyncError:   settings[storage.SettingLastSyncError],
		}
		if interval, err := strconv.Atoi(settings[storage.SettingSyncIntervalMin]); err == nil && interval > 0 {
			response.SyncIntervalMin = interval
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

// UpdateSettingsRequest carries the tunable settings; absent fields keep
// their current value.
type UpdateSettingsRequest struct {
	SyncIntervalMin *int    `json:"sync_interval_min"`
	Locale          *string `json:"locale"`
	Timezone        *string `json:"timezone"`
}

// UpdateSettings updates station settings, reschedules the refresh job
// when the interval changes, and notifies connected dashboards.
func UpdateSettings(settingsRepo *storage.SettingsRepository, scheduler *syncsvc.Scheduler, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req UpdateSettingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if req.SyncIntervalMin != nil {
			if *req.SyncIntervalMin < 1 || *req.SyncIntervalMin > 1440 {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "sync_interval_min must be between 1 and 1440")
				return
			}
		}
		if req.Locale != nil {
			if _, err := language.Parse(*req.Locale); err != nil {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Unknown locale")
				return
			}
		}
		if req.Timezone != nil {
			if _, err := time.LoadLocation(*req.Timezone); err != nil {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Unknown timezone")
				return
			}
		}

		if req.SyncIntervalMin != nil {
			if err := settingsRepo.Set(ctx, storage.SettingSyncIntervalMin, strconv.Itoa(*req.SyncIntervalMin)); err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update settings")
				return
			}
			if scheduler != nil {
				scheduler.Reschedule(*req.SyncIntervalMin)
			}
		}
		if req.Locale != nil {
			if err := settingsRepo.Set(ctx, storage.SettingLocale, *req.Locale); err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update settings")
				return
			}
		}
		if req.Timezone != nil {
			if err := settingsRepo.Set(ctx, storage.SettingTimezone, *req.Timezone); err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update settings")
				return
			}
		}

		if hub != nil {
			websocket.NewEventBroadcaster(hub).BroadcastNotification("success", "Settings Updated", "Station settings were updated")
		}

		GetSettings(settingsRepo)(w, r)
	}
}
