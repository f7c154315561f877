package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeRosterSyncCompleted MessageType = "roster.sync_completed"
	TypeRosterSyncError     MessageType = "roster.sync_error"
	TypeHonorAwarded        MessageType = "honor.awarded"
	TypeReservationCreated  MessageType = "reservation.created"
	TypeSessionExpired      MessageType = "session.expired"
	TypeNotification        MessageType = "notification"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload,omitempty"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// RosterSyncPayload is the payload for roster.sync_completed events.
type RosterSyncPayload struct {
	Status       string    `json:"status"`
	Participants int       `json:"participants"`
	Honors       int       `json:"honors"`
	Equipment    int       `json:"equipment"`
	Reservations int       `json:"reservations"`
	SyncedAt     time.Time `json:"synced_at"`
}

// RosterSyncErrorPayload is the payload for roster.sync_error events.
type RosterSyncErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HonorAwardedPayload is the payload for honor.awarded events.
type HonorAwardedPayload struct {
	ParticipantID   int64  `json:"participant_id"`
	ParticipantName string `json:"participant_name,omitempty"`
	Date            string `json:"date"`
	Reason          string `json:"reason,omitempty"`
}

// ReservationCreatedPayload is the payload for reservation.created events.
type ReservationCreatedPayload struct {
	ReservationID int64  `json:"reservation_id"`
	EquipmentID   int64  `json:"equipment_id"`
	EquipmentName string `json:"equipment_name,omitempty"`
	DateFrom      string `json:"date_from"`
	DateTo        string `json:"date_to"`
	Quantity      int    `json:"quantity"`
	ReservedFor   string `json:"reserved_for,omitempty"`
}

// SessionExpiredPayload is the payload for session.expired events.
type SessionExpiredPayload struct {
	Email     string    `json:"email,omitempty"`
	ExpiredAt time.Time `json:"expired_at"`
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	Level   string `json:"level"` // info, warning, error, success
	Title   string `json:"title"`
	Message string `json:"message"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"original_type,omitempty"`
}
