package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csabourin/wampums-station/internal/auth"
	"github.com/csabourin/wampums-station/internal/storage"
	"github.com/csabourin/wampums-station/internal/storage/models"
	syncsvc "github.com/csabourin/wampums-station/internal/sync"
	"github.com/csabourin/wampums-station/internal/wampums"
	"github.com/csabourin/wampums-station/internal/websocket"
)

type testDeps struct {
	router          *mux.Router
	db              *storage.DB
	client          *wampums.Client
	hub             *websocket.Hub
	scheduler       *syncsvc.Scheduler
	sessionRepo     *storage.SessionRepository
	participantRepo *storage.ParticipantRepository
	honorRepo       *storage.HonorRepository
	equipmentRepo   *storage.EquipmentRepository
	reservationRepo *storage.ReservationRepository
	settingsRepo    *storage.SettingsRepository
}

// fakeBackend stands in for the Wampums platform.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()

	stub := http.NewServeMux()
	stub.HandleFunc("POST /api/authenticate", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		if req.Password != "letmein" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{
				"error":   "invalid_credentials",
				"message": "Invalid email or password",
			})
			return
		}

		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id":         42,
			"organization_id": 3,
			"role":            "animation",
			"exp":             time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte("backend-secret"))
		require.NoError(t, err)

		json.NewEncoder(w).Encode(map[string]any{
			"token":        signed,
			"user_id":      42,
			"is_animation": true,
		})
	})
	stub.HandleFunc("POST /api/honors", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"id":             77,
			"participant_id": req["participant_id"],
			"date":           req["date"],
			"reason":         req["reason"],
		})
	})
	stub.HandleFunc("POST /api/reservations", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"id":                88,
			"equipment_id":      req["equipment_id"],
			"date_from":         req["date_from"],
			"date_to":           req["date_to"],
			"reserved_quantity": req["reserved_quantity"],
			"reserved_for":      req["reserved_for"],
			"status":            "reserved",
		})
	})
	for _, route := range []string{"/api/participants", "/api/honors", "/api/equipment", "/api/reservations"} {
		stub.HandleFunc("GET "+route, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode([]any{})
		})
	}

	server := httptest.NewServer(stub)
	t.Cleanup(server.Close)
	return server
}

func newTestDeps(t *testing.T, withScheduler bool) *testDeps {
	t.Helper()

	db, err := storage.NewDB(filepath.Join(t.TempDir(), "station.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.RunMigrations(db))

	backend := fakeBackend(t)
	client := wampums.NewClient(wampums.Config{
		BaseURL: backend.URL,
		Timeout: 5 * time.Second,
	})

	hub := websocket.NewHub()
	go hub.Run()

	deps := &testDeps{
		db:              db,
		client:          client,
		hub:             hub,
		sessionRepo:     storage.NewSessionRepository(db),
		participantRepo: storage.NewParticipantRepository(db),
		honorRepo:       storage.NewHonorRepository(db),
		equipmentRepo:   storage.NewEquipmentRepository(db),
		reservationRepo: storage.NewReservationRepository(db),
		settingsRepo:    storage.NewSettingsRepository(db),
	}

	if withScheduler {
		service := syncsvc.NewService(client, deps.sessionRepo, deps.participantRepo,
			deps.honorRepo, deps.equipmentRepo, deps.reservationRepo, deps.settingsRepo, hub)
		deps.scheduler = syncsvc.NewScheduler(service, deps.sessionRepo, deps.settingsRepo, hub, 15)
	}

	deps.router = NewRouterWithScheduler(db, client, hub, t.TempDir(), deps.scheduler)
	return deps
}

func (d *testDeps) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	d.router.ServeHTTP(rec, req)
	return rec
}

func (d *testDeps) seedSession(t *testing.T, role string) {
	t.Helper()
	err := d.sessionRepo.Save(context.Background(), &models.Session{
		UserID:         42,
		OrganizationID: 3,
		Email:          "animateur@example.org",
		Role:           role,
		AccessToken:    "cached-token",
		TokenExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
}

func (d *testDeps) seedRoster(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, d.participantRepo.ReplaceAll(ctx, []models.Participant{
		{ID: 1, FirstName: "Léa", LastName: "Fortin"},
		{ID: 2, FirstName: "Noah", LastName: "Dubois"},
	}))
	require.NoError(t, d.equipmentRepo.ReplaceAll(ctx, []models.Equipment{
		{ID: 7, Name: "Tente 4 places", Category: "camping", QuantityTotal: 3},
	}))
	require.NoError(t, d.reservationRepo.ReplaceAll(ctx, []models.Reservation{
		{ID: 20, EquipmentID: 7, DateFrom: "2024-06-01", DateTo: "2024-06-03", Status: "confirmed", ReservedQuantity: 1},
		{ID: 21, EquipmentID: 7, DateFrom: "2024-06-02", DateTo: "2024-06-04", Status: "cancelled", ReservedQuantity: 1},
	}))
}

func TestHealthEndpoint(t *testing.T) {
	deps := newTestDeps(t, false)

	rec := deps.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status       string `json:"status"`
		DBConnected  bool   `json:"db_connected"`
		SessionValid bool   `json:"session_valid"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.True(t, body.DBConnected)
	assert.False(t, body.SessionValid)
}

func TestLoginAndLogout(t *testing.T) {
	deps := newTestDeps(t, false)
	ctx := context.Background()

	rec := deps.do(t, http.MethodPost, "/api/session/login", map[string]string{
		"email": "animateur@example.org", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = deps.do(t, http.MethodPost, "/api/session/login", map[string]string{
		"email": "animateur@example.org", "password": "letmein",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Role      string `json:"role"`
		Dashboard string `json:"dashboard"`
		ExpiresAt string `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, auth.RoleAnimation, body.Role)
	assert.Equal(t, "/dashboard/animation", body.Dashboard)
	assert.NotEmpty(t, body.ExpiresAt)

	session, err := deps.sessionRepo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, int64(42), session.UserID)
	assert.Equal(t, int64(3), session.OrganizationID)
	assert.Equal(t, "animateur@example.org", session.Email)
	assert.NotEmpty(t, session.AccessToken)
	assert.False(t, session.TokenExpiresAt.IsZero())

	rec = deps.do(t, http.MethodDelete, "/api/session", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	session, err = deps.sessionRepo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestListParticipants(t *testing.T) {
	deps := newTestDeps(t, false)
	deps.seedRoster(t)

	rec := deps.do(t, http.MethodGet, "/api/participants", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var participants []models.Participant
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &participants))
	require.Len(t, participants, 2)
	assert.Equal(t, "Fortin", participants[0].LastName)
}

type honorListBody struct {
	Date     string `json:"date"`
	CanAward bool   `json:"can_award"`
	Entries  []struct {
		ID            int64  `json:"id"`
		FirstName     string `json:"first_name"`
		HonoredOnDate bool   `json:"honored_on_date"`
		TotalHonors   int    `json:"total_honors"`
		Visible       bool   `json:"visible"`
		Awardable     bool   `json:"awardable"`
	} `json:"entries"`
}

func TestListHonors(t *testing.T) {
	deps := newTestDeps(t, false)
	deps.seedRoster(t)
	today := time.Now().Format("2006-01-02")

	require.NoError(t, deps.honorRepo.ReplaceAll(context.Background(), []models.HonorRecord{
		{ID: 10, ParticipantID: 1, Date: today, Reason: "Entraide"},
	}))

	// Anonymous view: everybody visible today, nothing awardable.
	rec := deps.do(t, http.MethodGet, "/api/honors", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body honorListBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, today, body.Date)
	assert.False(t, body.CanAward)
	require.Len(t, body.Entries, 2)
	for _, entry := range body.Entries {
		assert.True(t, entry.Visible)
		assert.False(t, entry.Awardable)
	}

	// Animator view: the unhonored participant becomes awardable.
	deps.seedSession(t, auth.RoleAnimation)
	rec = deps.do(t, http.MethodGet, "/api/honors", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body = honorListBody{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.CanAward)
	for _, entry := range body.Entries {
		switch entry.ID {
		case 1:
			assert.True(t, entry.HonoredOnDate)
			assert.False(t, entry.Awardable)
			assert.Equal(t, 1, entry.TotalHonors)
		case 2:
			assert.False(t, entry.HonoredOnDate)
			assert.True(t, entry.Awardable)
		}
	}

	// sort=honors puts the honored participant first.
	rec = deps.do(t, http.MethodGet, "/api/honors?sort=honors", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = honorListBody{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Entries)
	assert.Equal(t, int64(1), body.Entries[0].ID)

	rec = deps.do(t, http.MethodGet, "/api/honors?view=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = deps.do(t, http.MethodGet, "/api/honors?date=junk", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAwardHonor(t *testing.T) {
	deps := newTestDeps(t, false)
	deps.seedRoster(t)
	ctx := context.Background()
	today := time.Now().Format("2006-01-02")

	// An honor from a previous meeting must not block today's award.
	lastMonth := time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	require.NoError(t, deps.honorRepo.Insert(ctx, &models.HonorRecord{
		ParticipantID: 2, Date: lastMonth, Reason: "Entraide",
	}))

	award := map[string]any{"participant_id": 2, "date": today, "reason": "Respect"}

	rec := deps.do(t, http.MethodPost, "/api/honors/award", award)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	deps.seedSession(t, auth.RoleParent)
	rec = deps.do(t, http.MethodPost, "/api/honors/award", award)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	deps.seedSession(t, auth.RoleAnimation)

	rec = deps.do(t, http.MethodPost, "/api/honors/award", map[string]any{
		"participant_id": 999, "date": today,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	rec = deps.do(t, http.MethodPost, "/api/honors/award", map[string]any{
		"participant_id": 2, "date": yesterday,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = deps.do(t, http.MethodPost, "/api/honors/award", award)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var honor models.HonorRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &honor))
	assert.Equal(t, int64(2), honor.ParticipantID)
	assert.Equal(t, today, honor.Date)
	assert.Equal(t, "Respect", honor.Reason)

	count, err := deps.honorRepo.CountForParticipantOnDate(ctx, 2, today)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The cache now knows about the award, so a second one is refused.
	rec = deps.do(t, http.MethodPost, "/api/honors/award", award)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestEquipmentEndpoints(t *testing.T) {
	deps := newTestDeps(t, false)
	deps.seedRoster(t)

	rec := deps.do(t, http.MethodGet, "/api/equipment", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var equipment []models.Equipment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &equipment))
	require.Len(t, equipment, 1)
	assert.Equal(t, "Tente 4 places", equipment[0].Name)

	rec = deps.do(t, http.MethodGet, "/api/equipment/7/reservations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var reservations []models.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reservations))
	assert.Len(t, reservations, 2)

	rec = deps.do(t, http.MethodGet, "/api/equipment/7/conflicts?date_from=2024-06-03&date_to=2024-06-05", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var check struct {
		Conflicts []models.Reservation `json:"conflicts"`
		Available int                  `json:"available"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &check))
	require.Len(t, check.Conflicts, 1)
	assert.Equal(t, int64(20), check.Conflicts[0].ID)
	assert.Equal(t, 2, check.Available)

	// Inverted windows conflict with nothing.
	rec = deps.do(t, http.MethodGet, "/api/equipment/7/conflicts?date_from=2024-06-05&date_to=2024-06-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	check.Conflicts = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &check))
	assert.Empty(t, check.Conflicts)
	assert.Equal(t, 3, check.Available)

	rec = deps.do(t, http.MethodGet, "/api/equipment/7/conflicts", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = deps.do(t, http.MethodGet, "/api/equipment/abc/conflicts?date_from=2024-06-01&date_to=2024-06-02", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = deps.do(t, http.MethodGet, "/api/equipment/999/conflicts?date_from=2024-06-01&date_to=2024-06-02", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateReservation(t *testing.T) {
	deps := newTestDeps(t, false)
	deps.seedRoster(t)
	ctx := context.Background()

	request := map[string]any{
		"equipment_id": 7,
		"date_from":    "2024-06-10",
		"date_to":      "2024-06-12",
		"quantity":     1,
		"reserved_for": "Patrouille Renard",
	}

	rec := deps.do(t, http.MethodPost, "/api/reservations", request)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	deps.seedSession(t, auth.RoleParent)
	rec = deps.do(t, http.MethodPost, "/api/reservations", request)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	deps.seedSession(t, auth.RoleAnimation)

	// Three tents, one already held for 2024-06-01..03: asking for all
	// three in an overlapping window must fail with the conflict attached.
	rec = deps.do(t, http.MethodPost, "/api/reservations", map[string]any{
		"equipment_id": 7,
		"date_from":    "2024-06-02",
		"date_to":      "2024-06-04",
		"quantity":     3,
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	var conflictBody struct {
		Details []models.Reservation `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conflictBody))
	require.Len(t, conflictBody.Details, 1)
	assert.Equal(t, int64(20), conflictBody.Details[0].ID)

	rec = deps.do(t, http.MethodPost, "/api/reservations", request)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, int64(88), created.ID)
	assert.Equal(t, "reserved", created.Status)

	cached, err := deps.reservationRepo.ListByEquipment(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, cached, 3)

	rec = deps.do(t, http.MethodPost, "/api/reservations", map[string]any{
		"equipment_id": 7,
		"date_from":    "2024-06-20",
		"date_to":      "2024-06-18",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	deps := newTestDeps(t, true)

	rec := deps.do(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var settings struct {
		SyncIntervalMin int    `json:"sync_interval_min"`
		Locale          string `json:"locale"`
		Timezone        string `json:"timezone"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	assert.Equal(t, 15, settings.SyncIntervalMin)

	rec = deps.do(t, http.MethodPut, "/api/settings", map[string]any{
		"sync_interval_min": 30,
		"locale":            "fr-CA",
		"timezone":          "America/Toronto",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	assert.Equal(t, 30, settings.SyncIntervalMin)
	assert.Equal(t, "fr-CA", settings.Locale)
	assert.Equal(t, "America/Toronto", settings.Timezone)

	rec = deps.do(t, http.MethodPut, "/api/settings", map[string]any{"timezone": "Nowhere/Special"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = deps.do(t, http.MethodPut, "/api/settings", map[string]any{"sync_interval_min": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerSync(t *testing.T) {
	deps := newTestDeps(t, true)

	rec := deps.do(t, http.MethodPost, "/api/sync", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	deps.seedSession(t, auth.RoleAnimation)
	rec = deps.do(t, http.MethodPost, "/api/sync", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "syncing", body["status"])
}

func TestWebSocketPingPong(t *testing.T) {
	deps := newTestDeps(t, false)

	server := httptest.NewServer(deps.router)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws"
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply struct {
		Type string `json:"type"`
	}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "pong", reply.Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe"}))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var errReply struct {
		Type    string `json:"type"`
		Payload struct {
			Code         string `json:"code"`
			OriginalType string `json:"original_type"`
		} `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&errReply))
	assert.Equal(t, "error", errReply.Type)
	assert.Equal(t, "subscribe", errReply.Payload.OriginalType)
}
