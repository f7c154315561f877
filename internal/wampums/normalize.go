package wampums

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/csabourin/wampums-station/internal/storage/models"
)

// The backend has shipped several generations of its endpoints: some wrap
// payloads in a {"success":true,"data":{...}} envelope, some return the
// named collection at the top level, and the oldest return a bare array.
// Everything in this file coalesces those shapes into the canonical
// models before any other package sees them.

// flexID is an int64 that accepts both JSON number and string forms.
type flexID int64

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing id %q: %w", s, err)
		}
		*f = flexID(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n)
	return nil
}

// flexInt is an int that accepts both JSON number and string forms.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var id flexID
	if err := id.UnmarshalJSON(data); err != nil {
		return err
	}
	*f = flexInt(id)
	return nil
}

// normalizeDate reduces a wire date to its ISO YYYY-MM-DD calendar part,
// dropping any time component an endpoint tacked on.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "T "); i >= 0 {
		s = s[:i]
	}
	return s
}

// collectionBytes extracts the raw JSON array for a named collection from
// any of the tolerated response shapes. A response without the collection
// yields an empty array, not an error.
func collectionBytes(body []byte, field string) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.RawMessage(trimmed), nil
	}

	var outer map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &outer); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if raw, ok := outer[field]; ok {
		return raw, nil
	}

	if data, ok := outer["data"]; ok {
		data = bytes.TrimSpace(data)
		if len(data) > 0 && data[0] == '[' {
			return json.RawMessage(data), nil
		}
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(data, &inner); err != nil {
			return nil, fmt.Errorf("decoding response data: %w", err)
		}
		if raw, ok := inner[field]; ok {
			return raw, nil
		}
	}

	return json.RawMessage("[]"), nil
}

// objectBytes extracts the raw JSON object carrying a single record,
// unwrapping the data envelope when present.
func objectBytes(body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)

	var outer map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &outer); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if data, ok := outer["data"]; ok {
		return bytes.TrimSpace(data), nil
	}
	return json.RawMessage(trimmed), nil
}

type wireParticipant struct {
	ID            flexID `json:"id"`
	ParticipantID flexID `json:"participant_id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	GroupSection  string `json:"group_section"`
}

func (w wireParticipant) toModel() models.Participant {
	id := int64(w.ParticipantID)
	if id == 0 {
		id = int64(w.ID)
	}
	return models.Participant{
		ID:           id,
		FirstName:    w.FirstName,
		LastName:     w.LastName,
		GroupSection: w.GroupSection,
	}
}

type wireHonor struct {
	ID            flexID `json:"id"`
	ParticipantID flexID `json:"participant_id"`
	Date          string `json:"date"`
	Reason        string `json:"reason"`
}

func (w wireHonor) toModel() models.HonorRecord {
	return models.HonorRecord{
		ID:            int64(w.ID),
		ParticipantID: int64(w.ParticipantID),
		Date:          normalizeDate(w.Date),
		Reason:        w.Reason,
	}
}

type wireEquipment struct {
	ID            flexID  `json:"id"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	QuantityTotal flexInt `json:"quantity_total"`
	Quantity      flexInt `json:"quantity"`
}

func (w wireEquipment) toModel() models.Equipment {
	total := int(w.QuantityTotal)
	if total == 0 {
		total = int(w.Quantity)
	}
	return models.Equipment{
		ID:            int64(w.ID),
		Name:          w.Name,
		Category:      w.Category,
		QuantityTotal: total,
	}
}

type wireReservation struct {
	ID               flexID  `json:"id"`
	EquipmentID      flexID  `json:"equipment_id"`
	DateFrom         string  `json:"date_from"`
	DateTo           string  `json:"date_to"`
	MeetingDate      string  `json:"meeting_date"`
	Status           string  `json:"status"`
	ReservedQuantity flexInt `json:"reserved_quantity"`
	ReservedFor      string  `json:"reserved_for"`
	OrganizationName string  `json:"organization_name"`
}

func (w wireReservation) toModel() models.Reservation {
	return models.Reservation{
		ID:               int64(w.ID),
		EquipmentID:      int64(w.EquipmentID),
		DateFrom:         normalizeDate(w.DateFrom),
		DateTo:           normalizeDate(w.DateTo),
		MeetingDate:      normalizeDate(w.MeetingDate),
		Status:           strings.ToLower(strings.TrimSpace(w.Status)),
		ReservedQuantity: int(w.ReservedQuantity),
		ReservedFor:      w.ReservedFor,
		OrganizationName: w.OrganizationName,
	}
}
