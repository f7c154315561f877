package models

// HonorRecord represents a single honor awarded to a participant at a
// meeting. Records are append-only: the backend's award action creates
// them and nothing mutates them afterwards.
type HonorRecord struct {
	ID            int64  `json:"id"`
	ParticipantID int64  `json:"participant_id"`
	Date          string `json:"date"` // ISO calendar date YYYY-MM-DD, no time component
	Reason        string `json:"reason,omitempty"`
}

// MatchesDate reports whether the honor was awarded exactly on the given
// ISO calendar date. Records with an empty date never match.
func (h *HonorRecord) MatchesDate(date string) bool {
	return h.Date != "" && h.Date == date
}

// OnOrBefore reports whether the honor's date is on or before the given
// ISO calendar date. The comparison is lexicographic, which is exact for
// YYYY-MM-DD strings and avoids timezone conversion entirely.
func (h *HonorRecord) OnOrBefore(date string) bool {
	return h.Date != "" && h.Date <= date
}
