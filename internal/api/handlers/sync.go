package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/csabourin/wampums-station/internal/api/middleware"
	"github.com/csabourin/wampums-station/internal/storage"
	syncsvc "github.com/csabourin/wampums-station/internal/sync"
)

// TriggerSync starts a roster refresh in the background and returns
// immediately. Progress arrives over the WebSocket as
// roster.sync_completed or roster.sync_error.
func TriggerSync(scheduler *syncsvc.Scheduler, sessionRepo *storage.SessionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, valid := activeSession(r.Context(), sessionRepo); !valid {
			middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "No active session")
			return
		}

		if scheduler == nil {
			middleware.WriteError(w, http.StatusServiceUnavailable, middleware.ErrInternalError, "Sync service unavailable")
			return
		}

		scheduler.TriggerRefresh()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"status": "syncing"})
	}
}
