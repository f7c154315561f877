package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/csabourin/wampums-station/internal/api/middleware"
	"github.com/csabourin/wampums-station/internal/storage"
	"github.com/csabourin/wampums-station/internal/storage/models"
)

// ListParticipants returns the cached roster.
func ListParticipants(participantRepo *storage.ParticipantRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		participants, err := participantRepo.List(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query participants")
			return
		}

		if participants == nil {
			participants = []models.Participant{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(participants)
	}
}
