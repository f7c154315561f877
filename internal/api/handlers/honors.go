package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/csabourin/wampums-station/internal/api/middleware"
	"github.com/csabourin/wampums-station/internal/auth"
	"github.com/csabourin/wampums-station/internal/honors"
	"github.com/csabourin/wampums-station/internal/storage"
	"github.com/csabourin/wampums-station/internal/wampums"
	"github.com/csabourin/wampums-station/internal/websocket"
)

// HonorListResponse wraps the honors list with the date it was built for.
type HonorListResponse struct {
	Date     string         `json:"date"`
	CanAward bool           `json:"can_award"`
	Entries  []honors.Entry `json:"entries"`
}

// ListHonors builds the honors list for a target date from the cached
// roster. view=all keeps every participant; the default view narrows
// past dates to participants actually honored that day. sort=name|honors.
func ListHonors(
	participantRepo *storage.ParticipantRepository,
	honorRepo *storage.HonorRepository,
	sessionRepo *storage.SessionRepository,
	settingsRepo *storage.SettingsRepository,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q := r.URL.Query()

		resolver := resolverFromSettings(ctx, settingsRepo)

		date := q.Get("date")
		if date == "" {
			date = resolver.Today(time.Now())
		} else if !isISODate(date) {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "date must be YYYY-MM-DD")
			return
		}

		includeAll := false
		switch q.Get("view") {
		case "", "date":
		case "all":
			includeAll = true
		default:
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "view must be 'all' or 'date'")
			return
		}

		sortBy := honors.SortByName
		switch q.Get("sort") {
		case "", "name":
		case "honors":
			sortBy = honors.SortByHonorCount
		default:
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "sort must be 'name' or 'honors'")
			return
		}

		canAward := false
		if session, valid := activeSession(ctx, sessionRepo); valid {
			canAward = auth.CanAwardHonors(session.Role)
		}

		participants, err := participantRepo.List(ctx)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query participants")
			return
		}

		records, err := honorRepo.ListUpTo(ctx, date)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query honors")
			return
		}

		entries := resolver.BuildList(participants, records, date, time.Now(), honors.ListOptions{
			IncludeAll: includeAll,
			SortBy:     sortBy,
			CanAward:   canAward,
		})

		response := HonorListResponse{
			Date:     date,
			CanAward: canAward,
			Entries:  entries,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

// AwardHonorRequest is the body of POST /api/honors/award.
type AwardHonorRequest struct {
	ParticipantID int64  `json:"participant_id"`
	Date          string `json:"date"`
	Reason        string `json:"reason"`
}

// AwardHonor validates an award against the cache, forwards it to the
// backend, caches the stored record, and broadcasts honor.awarded.
func AwardHonor(
	client *wampums.Client,
	sessionRepo *storage.SessionRepository,
	participantRepo *storage.ParticipantRepository,
	honorRepo *storage.HonorRepository,
	settingsRepo *storage.SettingsRepository,
	hub *websocket.Hub,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req AwardHonorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		session, valid := activeSession(ctx, sessionRepo)
		if !valid {
			middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "No active session")
			return
		}
		if !auth.CanAwardHonors(session.Role) {
			middleware.WriteError(w, http.StatusForbidden, middleware.ErrForbidden, "Role cannot award honors")
			return
		}

		if req.ParticipantID == 0 {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "participant_id is required")
			return
		}

		participant, err := participantRepo.GetByID(ctx, req.ParticipantID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query participant")
			return
		}
		if participant == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Participant not found")
			return
		}

		resolver := resolverFromSettings(ctx, settingsRepo)
		today := resolver.Today(time.Now())

		if req.Date == "" {
			req.Date = today
		} else if !isISODate(req.Date) {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "date must be YYYY-MM-DD")
			return
		}

		if req.Date < today {
			middleware.WriteError(w, http.StatusUnprocessableEntity, middleware.ErrValidation, "Honors cannot be awarded for past dates")
			return
		}

		awarded, err := honorRepo.CountForParticipantOnDate(ctx, req.ParticipantID, req.Date)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query honors")
			return
		}
		if awarded > 0 {
			middleware.WriteError(w, http.StatusUnprocessableEntity, middleware.ErrValidation, "Participant already honored on this date")
			return
		}

		client.SetCredentials(session.AccessToken, session.OrganizationID)

		req.Reason = strings.TrimSpace(req.Reason)
		honor, err := client.AwardHonor(ctx, req.ParticipantID, req.Date, req.Reason)
		if err != nil {
			writeBackendError(w, err, "award")
			return
		}

		if err := honorRepo.Insert(ctx, honor); err != nil {
			// The backend accepted the award; the next refresh heals the cache.
			log.Printf("Failed to cache awarded honor: %v", err)
		}

		if hub != nil {
			websocket.NewEventBroadcaster(hub).BroadcastHonorAwarded(*honor, participant.DisplayName())
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(honor)
	}
}

// writeBackendError maps a backend call failure onto the station's API.
func writeBackendError(w http.ResponseWriter, err error, action string) {
	var apiErr *wampums.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusConflict:
			middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "Backend refused the "+action+": "+apiErr.Message)
		case http.StatusUnprocessableEntity:
			middleware.WriteError(w, http.StatusUnprocessableEntity, middleware.ErrValidation, "Backend refused the "+action+": "+apiErr.Message)
		case http.StatusUnauthorized, http.StatusForbidden:
			middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Backend rejected the session; log in again")
		default:
			middleware.WriteError(w, http.StatusBadGateway, middleware.ErrBadGateway, "Backend rejected the "+action+": "+apiErr.Message)
		}
		return
	}
	middleware.WriteError(w, http.StatusBadGateway, middleware.ErrBadGateway, "Backend unreachable")
}

// resolverFromSettings builds an honors resolver from the runtime locale
// and timezone settings, falling back to the defaults on junk values.
func resolverFromSettings(ctx context.Context, settingsRepo *storage.SettingsRepository) *honors.Resolver {
	loc := time.Local
	if tz, err := settingsRepo.Get(ctx, storage.SettingTimezone, ""); err == nil && tz != "" {
		if parsed, err := time.LoadLocation(tz); err == nil {
			loc = parsed
		} else {
			log.Printf("Invalid timezone setting %q: %v", tz, err)
		}
	}

	locale := language.French
	if tag, err := settingsRepo.Get(ctx, storage.SettingLocale, ""); err == nil && tag != "" {
		if parsed, err := language.Parse(tag); err == nil {
			locale = parsed
		} else {
			log.Printf("Invalid locale setting %q: %v", tag, err)
		}
	}

	return honors.NewResolverWithLocale(loc, locale)
}

// isISODate reports whether s is a calendar date in YYYY-MM-DD form.
func isISODate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
