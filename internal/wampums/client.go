package wampums

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/csabourin/wampums-station/internal/auth"
	"github.com/csabourin/wampums-station/internal/storage/models"
)

// APIError is a non-2xx reply from the backend.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("wampums api (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("wampums api (status %d)", e.StatusCode)
}

// Client is a client for the Wampums platform API. The token it sends is
// whatever credential the station currently holds; login replaces it.
type Client struct {
	config     Config
	httpClient *http.Client

	mu             sync.RWMutex
	token          string
	organizationID int64
}

// NewClient creates a new Wampums API client.
func NewClient(config Config) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		token:          config.Token,
		organizationID: config.OrganizationID,
	}
}

// SetCredentials installs the token and organization obtained at login.
func (c *Client) SetCredentials(token string, organizationID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	if organizationID != 0 {
		c.organizationID = organizationID
	}
}

// ClearCredentials drops the session token, falling back to the
// pre-provisioned one when configured.
func (c *Client) ClearCredentials() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = c.config.Token
}

// HasCredentials reports whether the client can make authenticated calls.
func (c *Client) HasCredentials() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

// LoginResult is the canonical outcome of an authenticate call.
type LoginResult struct {
	Token          string
	UserID         int64
	OrganizationID int64
	Role           string
}

// Login authenticates against the backend. It does not install the
// returned credentials; the caller decides what to cache.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body, err := c.post(ctx, "/api/authenticate", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	obj, err := objectBytes(body)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Token          string         `json:"token"`
		AccessToken    string         `json:"access_token"`
		UserID         flexID         `json:"user_id"`
		OrganizationID flexID         `json:"organization_id"`
		Role           string         `json:"role"`
		User           map[string]any `json:"user"`
	}
	if err := json.Unmarshal(obj, &payload); err != nil {
		return nil, fmt.Errorf("decoding login response: %w", err)
	}

	token := payload.Token
	if token == "" {
		token = payload.AccessToken
	}
	if token == "" {
		return nil, fmt.Errorf("login response missing token")
	}

	result := &LoginResult{
		Token:          token,
		UserID:         int64(payload.UserID),
		OrganizationID: int64(payload.OrganizationID),
		Role:           auth.NormalizeRole(payload.Role),
	}
	if result.UserID == 0 {
		result.UserID = numFromAny(payload.User["id"])
	}
	if result.Role == "" && payload.User != nil {
		result.Role = auth.RoleFromFlags(payload.User)
	}
	return result, nil
}

// FetchParticipants retrieves the organization's roster.
func (c *Client) FetchParticipants(ctx context.Context) ([]models.Participant, error) {
	body, err := c.get(ctx, "/api/participants")
	if err != nil {
		return nil, err
	}

	raw, err := collectionBytes(body, "participants")
	if err != nil {
		return nil, err
	}

	var wire []wireParticipant
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decoding participants: %w", err)
	}

	participants := make([]models.Participant, 0, len(wire))
	for _, w := range wire {
		participants = append(participants, w.toModel())
	}
	return participants, nil
}

// FetchHonors retrieves honor records, optionally for a single date.
func (c *Client) FetchHonors(ctx context.Context, date string) ([]models.HonorRecord, error) {
	path := "/api/honors"
	if date != "" {
		path += "?date=" + url.QueryEscape(date)
	}

	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	raw, err := collectionBytes(body, "honors")
	if err != nil {
		return nil, err
	}

	var wire []wireHonor
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decoding honors: %w", err)
	}

	honors := make([]models.HonorRecord, 0, len(wire))
	for _, w := range wire {
		honors = append(honors, w.toModel())
	}
	return honors, nil
}

// FetchEquipment retrieves the equipment catalog.
func (c *Client) FetchEquipment(ctx context.Context) ([]models.Equipment, error) {
	body, err := c.get(ctx, "/api/equipment")
	if err != nil {
		return nil, err
	}

	raw, err := collectionBytes(body, "equipment")
	if err != nil {
		return nil, err
	}

	var wire []wireEquipment
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decoding equipment: %w", err)
	}

	equipment := make([]models.Equipment, 0, len(wire))
	for _, w := range wire {
		equipment = append(equipment, w.toModel())
	}
	return equipment, nil
}

// FetchReservations retrieves reservations, optionally for one equipment
// item (equipmentID 0 fetches all).
func (c *Client) FetchReservations(ctx context.Context, equipmentID int64) ([]models.Reservation, error) {
	path := "/api/reservations"
	if equipmentID != 0 {
		path += "?equipment_id=" + strconv.FormatInt(equipmentID, 10)
	}

	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	raw, err := collectionBytes(body, "reservations")
	if err != nil {
		return nil, err
	}

	var wire []wireReservation
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decoding reservations: %w", err)
	}

	reservations := make([]models.Reservation, 0, len(wire))
	for _, w := range wire {
		reservations = append(reservations, w.toModel())
	}
	return reservations, nil
}

// AwardHonor records a new honor on the backend and returns the stored
// record.
func (c *Client) AwardHonor(ctx context.Context, participantID int64, date, reason string) (*models.HonorRecord, error) {
	body, err := c.post(ctx, "/api/honors", map[string]any{
		"participant_id": participantID,
		"date":           date,
		"reason":         reason,
	})
	if err != nil {
		return nil, err
	}

	obj, err := objectBytes(body)
	if err != nil {
		return nil, err
	}

	var wire wireHonor
	if err := json.Unmarshal(obj, &wire); err != nil {
		return nil, fmt.Errorf("decoding honor: %w", err)
	}

	honor := wire.toModel()
	if honor.ParticipantID == 0 {
		honor.ParticipantID = participantID
	}
	if honor.Date == "" {
		honor.Date = date
	}
	if honor.Reason == "" {
		honor.Reason = reason
	}
	return &honor, nil
}

// CreateReservation submits a reservation to the backend and returns the
// stored row; the backend stays the source of truth for its status.
func (c *Client) CreateReservation(ctx context.Context, res models.Reservation) (*models.Reservation, error) {
	body, err := c.post(ctx, "/api/reservations", map[string]any{
		"equipment_id":      res.EquipmentID,
		"date_from":         res.DateFrom,
		"date_to":           res.DateTo,
		"meeting_date":      res.MeetingDate,
		"reserved_quantity": res.ReservedQuantity,
		"reserved_for":      res.ReservedFor,
	})
	if err != nil {
		return nil, err
	}

	obj, err := objectBytes(body)
	if err != nil {
		return nil, err
	}

	var wire wireReservation
	if err := json.Unmarshal(obj, &wire); err != nil {
		return nil, fmt.Errorf("decoding reservation: %w", err)
	}

	saved := wire.toModel()
	if saved.EquipmentID == 0 {
		saved.EquipmentID = res.EquipmentID
	}
	if saved.Status == "" {
		saved.Status = models.ReservationStatusReserved
	}
	return &saved, nil
}

// get performs an authenticated GET and returns the response body.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp.StatusCode, body)
	}
	return body, nil
}

// post performs an authenticated POST with a JSON payload.
func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, newAPIError(resp.StatusCode, body)
	}
	return body, nil
}

// newRequest creates a new HTTP request with authentication headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	c.mu.RLock()
	token, orgID := c.token, c.organizationID
	c.mu.RUnlock()

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if orgID != 0 {
		req.Header.Set("X-Organization-ID", strconv.FormatInt(orgID, 10))
	}
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

// newAPIError builds an APIError from a non-2xx response, picking up the
// backend's error body when it is JSON.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var payload struct {
		Code    string `json:"code"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Error
		if apiErr.Message == "" {
			apiErr.Message = payload.Message
		}
	}
	return apiErr
}

// numFromAny reads an int64 out of a decoded JSON value of unknown type.
func numFromAny(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case string:
		if parsed, err := strconv.ParseInt(n, 10, 64); err == nil {
			return parsed
		}
	case json.Number:
		if parsed, err := n.Int64(); err == nil {
			return parsed
		}
	}
	return 0
}
