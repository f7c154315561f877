package models

// Reservation represents a booking of a piece of equipment over a range
// of calendar dates. Every date field is an ISO YYYY-MM-DD string and
// compares lexicographically; dates are never routed through time.Time,
// which would reintroduce timezone-shift bugs near midnight.
type Reservation struct {
	ID               int64  `json:"id"`
	EquipmentID      int64  `json:"equipment_id"`
	DateFrom         string `json:"date_from,omitempty"`    // inclusive start of the range
	DateTo           string `json:"date_to,omitempty"`      // inclusive end of the range
	MeetingDate      string `json:"meeting_date,omitempty"` // single-day fallback when the range is absent
	Status           string `json:"status"`
	ReservedQuantity int    `json:"reserved_quantity"`
	ReservedFor      string `json:"reserved_for,omitempty"`
	OrganizationName string `json:"organization_name,omitempty"`
}

// Reservation status constants
const (
	ReservationStatusReserved  = "reserved"  // placed, awaiting confirmation
	ReservationStatusConfirmed = "confirmed" // confirmed by a leader
	ReservationStatusCancelled = "cancelled" // withdrawn; never conflicts
	ReservationStatusReturned  = "returned"  // gear handed back
)

// IsActiveStatus reports whether the reservation counts when looking for
// conflicts. Only reserved and confirmed bookings hold equipment; a
// missing or unknown status is treated as inactive.
func (r *Reservation) IsActiveStatus() bool {
	return r.Status == ReservationStatusReserved || r.Status == ReservationStatusConfirmed
}

// StartDate returns the inclusive start of the booked range, falling back
// to the meeting date when no range was supplied.
func (r *Reservation) StartDate() string {
	if r.DateFrom != "" {
		return r.DateFrom
	}
	return r.MeetingDate
}

// EndDate returns the inclusive end of the booked range, falling back to
// the meeting date when no range was supplied.
func (r *Reservation) EndDate() string {
	if r.DateTo != "" {
		return r.DateTo
	}
	return r.MeetingDate
}
