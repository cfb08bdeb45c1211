// Package event models calendar events. An Event is either a Single
// occurrence or a Series of occurrences that share one template. Events are
// immutable: every edit returns new values and leaves the receiver untouched.
package event

import (
	"github.com/google/uuid"

	"calsuite/internal/date"
	"calsuite/internal/model"
)

// Default window of an all-day occurrence.
var (
	AllDayStart = date.MustClock(8, 0)
	AllDayEnd   = date.MustClock(17, 0)
)

// Match selects an occurrence by subject and start, and by end unless AnyEnd
// is set.
type Match struct {
	Subject string
	Start   date.DateTime
	End     date.DateTime
	AnyEnd  bool
}

// MatchOccurrence reports whether o satisfies m.
func (m Match) MatchOccurrence(o model.Occurrence) bool {
	if o.Subject != m.Subject || !o.Start.Equal(m.Start) {
		return false
	}
	return m.AnyEnd || o.End.Equal(m.End)
}

// Event is the capability set shared by Single and Series.
type Event interface {
	// ID is stable across edits that keep the event whole; a split hands the
	// detached part a fresh ID.
	ID() string
	IsSeries() bool

	// Matches reports whether any occurrence satisfies m.
	Matches(m Match) bool
	// OccursOn returns the occurrence covering d.
	OccursOn(d date.Date) (model.Occurrence, bool)
	IsBusyAt(dt date.DateTime) bool

	// Occurrences lists every occurrence in chronological order.
	Occurrences() []model.Occurrence
	// First is the earliest occurrence; it also serves as the event's
	// identity when checking for duplicates.
	First() model.Occurrence

	// EditEvent edits the single occurrence starting on at's date.
	// remaining replaces the receiver and is nil when nothing is left of it;
	// detached, when non-nil, is a new event to add alongside.
	EditEvent(at date.DateTime, e Edit) (remaining, detached Event, err error)
	// EditFollowing edits the occurrence on at's date and every later one.
	EditFollowing(at date.DateTime, e Edit) (remaining, detached Event, err error)
	// EditSeries edits every occurrence.
	EditSeries(e Edit) (Event, error)
}

func newID() string {
	return uuid.NewString()
}
