package ics

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"calsuite/internal/model"
)

const productID = "-//calsuite//calendar export//EN"

const (
	propClass    = "CLASS"
	classPublic  = "PUBLIC"
	classPrivate = "PRIVATE"
)

// Feed describes the calendar an export is produced for.
type Feed struct {
	// Name is written as X-WR-CALNAME.
	Name string
	// Location is the calendar's zone; occurrence wall clocks are read in it
	// and written as UTC instants. If nil, time.UTC is used.
	Location *time.Location
	// Stamp is the DTSTAMP of every VEVENT. If zero, the current time.
	Stamp time.Time
}

// Build converts occurrences into a VCALENDAR. All-day occurrences become
// DATE values with an exclusive end.
func (f Feed) Build(occs []model.Occurrence) *ical.Calendar {
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	stamp := f.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)
	if f.Name != "" {
		cal.SetXWRCalName(f.Name)
	}
	cal.SetXWRTimezone(loc.String())

	for _, o := range occs {
		ev := cal.AddEvent(uidFor(o))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetSummary(o.Subject)
		if o.Description != "" {
			ev.SetDescription(o.Description)
		}
		if o.Location != "" {
			ev.SetLocation(o.Location)
		}
		class := classPublic
		if o.Status == model.Private {
			class = classPrivate
		}
		ev.SetProperty(propClass, class)

		if o.AllDay {
			ev.SetAllDayStartAt(o.Start.Date.Time())
			ev.SetAllDayEndAt(o.End.Date.Next().Time())
			continue
		}
		ev.SetStartAt(o.Start.In(loc).UTC())
		ev.SetEndAt(o.End.In(loc).UTC())
	}
	return cal
}

// Marshal renders occurrences as an ICS document.
func (f Feed) Marshal(occs []model.Occurrence) string {
	return f.Build(occs).Serialize()
}

// Encode writes the ICS document for occs to w.
func (f Feed) Encode(w io.Writer, occs []model.Occurrence) error {
	_, err := io.WriteString(w, f.Marshal(occs))
	return err
}

// uidFor is stable across exports: one event's occurrences share the event
// ID and differ by start.
func uidFor(o model.Occurrence) string {
	id := o.EventID
	if id == "" {
		id = uuid.NewString()
	}
	return fmt.Sprintf("%s-%s@calsuite", id, o.Start.In(time.UTC).Format("20060102T1504"))
}
