// Package honors computes the honors list for a target date: per
// participant, whether they were honored that day, their cumulative honor
// count, and whether they are visible and selectable under the viewing
// rules of the honors screen.
package honors

import (
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/csabourin/wampums-station/internal/storage/models"
)

// SortBy selects the honors list ordering.
type SortBy string

const (
	SortByName       SortBy = "name"
	SortByHonorCount SortBy = "honors"
)

// ListOptions controls visibility filtering and ordering of the list.
type ListOptions struct {
	// IncludeAll keeps every participant regardless of date. When false,
	// past dates only show participants honored on that exact date.
	IncludeAll bool
	SortBy     SortBy
	// CanAward is the caller's award capability, supplied externally.
	// Eligibility combines it with the date rules but never evaluates
	// permissions itself.
	CanAward bool
}

// Entry is one participant row of the honors list for a target date.
type Entry struct {
	models.Participant
	HonoredOnDate bool   `json:"honored_on_date"`
	TotalHonors   int    `json:"total_honors"`
	LatestReason  string `json:"latest_reason,omitempty"`
	Visible       bool   `json:"visible"`
	Awardable     bool   `json:"awardable"`
}

// Resolver builds honors list entries. It carries the station timezone,
// used only to derive "today" from an instant; every date comparison is
// done on ISO YYYY-MM-DD strings.
type Resolver struct {
	location *time.Location
	collator *collate.Collator
}

// NewResolver creates a resolver using the local time zone and French
// collation for name sorting.
func NewResolver() *Resolver {
	return NewResolverWithLocale(time.Local, language.French)
}

// NewResolverWithLocale creates a resolver with a specific timezone and
// sort locale.
func NewResolverWithLocale(loc *time.Location, locale language.Tag) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	if locale.IsRoot() {
		locale = language.French
	}
	return &Resolver{
		location: loc,
		collator: collate.New(locale, collate.IgnoreCase),
	}
}

// Today formats the calendar date of the given instant in the resolver's
// timezone.
func (r *Resolver) Today(at time.Time) string {
	return at.In(r.location).Format("2006-01-02")
}

// Awardable reports whether a new honor may be granted for targetDate:
// the caller holds the capability, the date is not before today, and the
// participant has not already been honored that day.
func Awardable(canAward bool, targetDate, today string, honoredOnDate bool) bool {
	return canAward && targetDate >= today && !honoredOnDate
}

// BuildList computes one entry per participant for the target date. The
// instant `at` supplies "today"; injecting it keeps the result
// deterministic for a given input.
//
// Per participant: honors dated exactly targetDate set HonoredOnDate and
// LatestReason (first match in input order), honors dated on or before
// targetDate accumulate into TotalHonors. Without IncludeAll, entries are
// visible only when the target date is today or the participant was
// honored on it; invisible entries are dropped. Records with a missing
// participant ID or date count as non-matching.
func (r *Resolver) BuildList(participants []models.Participant, honors []models.HonorRecord, targetDate string, at time.Time, opts ListOptions) []Entry {
	today := r.Today(at)

	entries := []Entry{}
	for _, p := range participants {
		entry := Entry{Participant: p, Visible: true}

		for _, h := range honors {
			if h.ParticipantID == 0 || h.ParticipantID != p.ID {
				continue
			}
			if h.OnOrBefore(targetDate) {
				entry.TotalHonors++
			}
			if h.MatchesDate(targetDate) && !entry.HonoredOnDate {
				entry.HonoredOnDate = true
				entry.LatestReason = h.Reason
			}
		}

		if !opts.IncludeAll {
			entry.Visible = targetDate == today || entry.HonoredOnDate
			if !entry.Visible {
				continue
			}
		}

		entry.Awardable = Awardable(opts.CanAward, targetDate, today, entry.HonoredOnDate)

		entries = append(entries, entry)
	}

	r.sortEntries(entries, opts.SortBy)
	return entries
}

// sortEntries orders entries in place. Unknown keys leave the filtered
// order untouched. Both sorts are stable so ties keep their pre-sort
// order.
func (r *Resolver) sortEntries(entries []Entry, by SortBy) {
	switch by {
	case SortByName:
		sort.SliceStable(entries, func(i, j int) bool {
			return r.collator.CompareString(entries[i].DisplayName(), entries[j].DisplayName()) < 0
		})
	case SortByHonorCount:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].TotalHonors > entries[j].TotalHonors
		})
	}
}
