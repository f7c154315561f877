package websocket

import (
	"log"
	"time"

	"github.com/csabourin/wampums-station/internal/storage/models"
)

// EventBroadcaster handles broadcasting WebSocket events.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// BroadcastSyncCompleted sends a roster sync completed event.
func (b *EventBroadcaster) BroadcastSyncCompleted(result models.RefreshResult) {
	payload := RosterSyncPayload{
		Status:       "success",
		Participants: result.Participants,
		Honors:       result.Honors,
		Equipment:    result.Equipment,
		Reservations: result.Reservations,
		SyncedAt:     result.SyncedAt,
	}

	if result.Error != nil {
		payload.Status = "error"
	}

	msg := NewMessage(TypeRosterSyncCompleted, payload)
	b.broadcast(msg)
}

// BroadcastSyncError sends a roster sync error event.
func (b *EventBroadcaster) BroadcastSyncError(err error) {
	payload := RosterSyncErrorPayload{
		Error:   "sync_error",
		Message: err.Error(),
	}

	msg := NewMessage(TypeRosterSyncError, payload)
	b.broadcast(msg)
}

// BroadcastHonorAwarded sends an honor awarded event.
func (b *EventBroadcaster) BroadcastHonorAwarded(honor models.HonorRecord, participantName string) {
	payload := HonorAwardedPayload{
		ParticipantID:   honor.ParticipantID,
		ParticipantName: participantName,
		Date:            honor.Date,
		Reason:          honor.Reason,
	}

	msg := NewMessage(TypeHonorAwarded, payload)
	b.broadcast(msg)
}

// BroadcastReservationCreated sends a reservation created event.
func (b *EventBroadcaster) BroadcastReservationCreated(reservation models.Reservation, equipmentName string) {
	payload := ReservationCreatedPayload{
		ReservationID: reservation.ID,
		EquipmentID:   reservation.EquipmentID,
		EquipmentName: equipmentName,
		DateFrom:      reservation.StartDate(),
		DateTo:        reservation.EndDate(),
		Quantity:      reservation.ReservedQuantity,
		ReservedFor:   reservation.ReservedFor,
	}

	msg := NewMessage(TypeReservationCreated, payload)
	b.broadcast(msg)
}

// BroadcastSessionExpired tells dashboards the cached backend session
// is no longer valid and a new login is required.
func (b *EventBroadcaster) BroadcastSessionExpired(email string) {
	payload := SessionExpiredPayload{
		Email:     email,
		ExpiredAt: time.Now().UTC(),
	}

	msg := NewMessage(TypeSessionExpired, payload)
	b.broadcast(msg)
}

// BroadcastNotification sends a notification to all connected clients.
func (b *EventBroadcaster) BroadcastNotification(level, title, message string) {
	payload := NotificationPayload{
		Level:   level,
		Title:   title,
		Message: message,
	}

	msg := NewMessage(TypeNotification, payload)
	b.broadcast(msg)
}

// broadcast sends a message to all connected clients.
func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		log.Printf("Error encoding WebSocket message: %v", err)
		return
	}

	b.hub.Broadcast(data)
}
