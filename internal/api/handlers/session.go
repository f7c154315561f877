package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/csabourin/wampums-station/internal/api/middleware"
	"github.com/csabourin/wampums-station/internal/auth"
	"github.com/csabourin/wampums-station/internal/storage"
	"github.com/csabourin/wampums-station/internal/storage/models"
	syncsvc "github.com/csabourin/wampums-station/internal/sync"
	"github.com/csabourin/wampums-station/internal/wampums"
)

// LoginRequest is the body of POST /api/session/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse tells the dashboard where to land after a login.
type LoginResponse struct {
	Role      string `json:"role"`
	Dashboard string `json:"dashboard"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// Login authenticates against the Wampums backend, caches the session,
// and kicks off an initial roster refresh.
func Login(client *wampums.Client, sessionRepo *storage.SessionRepository, scheduler *syncsvc.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		req.Email = strings.TrimSpace(req.Email)
		if req.Email == "" || req.Password == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "email and password are required")
			return
		}

		result, err := client.Login(ctx, req.Email, req.Password)
		if err != nil {
			var apiErr *wampums.APIError
			if errors.As(err, &apiErr) {
				if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
					middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Invalid email or password")
					return
				}
				middleware.WriteError(w, http.StatusBadGateway, middleware.ErrBadGateway, "Backend rejected login: "+apiErr.Message)
				return
			}
			middleware.WriteError(w, http.StatusBadGateway, middleware.ErrBadGateway, "Backend unreachable")
			return
		}

		session := &models.Session{
			UserID:         result.UserID,
			OrganizationID: result.OrganizationID,
			Email:          req.Email,
			Role:           result.Role,
			AccessToken:    result.Token,
		}

		// The token itself often carries what the login payload omits.
		if claims, err := auth.ParseToken(result.Token); err == nil {
			if session.UserID == 0 {
				session.UserID = claims.UserID
			}
			if session.OrganizationID == 0 {
				session.OrganizationID = claims.OrganizationID
			}
			if session.Role == "" {
				session.Role = claims.Role
			}
			session.TokenExpiresAt = claims.ExpiresAt
		} else {
			log.Printf("Could not introspect access token: %v", err)
		}

		if session.Role == "" {
			session.Role = auth.RoleParent
		}

		client.SetCredentials(session.AccessToken, session.OrganizationID)

		if err := sessionRepo.Save(ctx, session); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to store session")
			return
		}

		log.Printf("Session opened for %s (%s)", session.Email, session.Role)

		if scheduler != nil {
			scheduler.TriggerRefresh()
		}

		response := LoginResponse{
			Role:      session.Role,
			Dashboard: auth.DashboardRoute(session.Role),
		}
		if !session.TokenExpiresAt.IsZero() {
			response.ExpiresAt = session.TokenExpiresAt.UTC().Format(time.RFC3339)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

// Logout clears the cached session. The roster cache stays in place so
// the hall keeps its read-only view.
func Logout(client *wampums.Client, sessionRepo *storage.SessionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sessionRepo.Clear(r.Context()); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to clear session")
			return
		}

		client.ClearCredentials()
		log.Println("Session cleared")

		w.WriteHeader(http.StatusNoContent)
	}
}

// activeSession loads the cached session and reports whether it is still
// valid. Write paths require a valid session; read paths only use it to
// derive capabilities.
func activeSession(ctx context.Context, sessionRepo *storage.SessionRepository) (*models.Session, bool) {
	session, err := sessionRepo.Get(ctx)
	if err != nil || session == nil {
		return nil, false
	}
	return session, !session.IsExpired(time.Now().UTC())
}
