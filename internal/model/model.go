package model

import (
	"fmt"
	"strings"

	"calsuite/internal/calerr"
	"calsuite/internal/date"
)

// Visibility is the public/private status of an occurrence.
type Visibility int

const (
	Public Visibility = iota
	Private
)

func (v Visibility) String() string {
	if v == Private {
		return "private"
	}
	return "public"
}

// ParseVisibility accepts "public" or "private" in any case.
func ParseVisibility(s string) (Visibility, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public":
		return Public, nil
	case "private":
		return Private, nil
	default:
		return Public, fmt.Errorf("%w: status %q, want public or private", calerr.ErrInvalidFormat, s)
	}
}

// Occurrence represents a single concrete instance of an event: one Single
// event, or one date of a Series combined with the series template.
type Occurrence struct {
	// EventID identifies the event that produced this occurrence.
	EventID string

	Subject     string
	Description string
	Location    string
	Status      Visibility

	// AllDay marks occurrences created without explicit times; they still
	// carry the default 08:00-17:00 window.
	AllDay bool

	Start date.DateTime
	End   date.DateTime
}

// SameAs reports whether o and other are the same event: subject, start and
// end all equal.
func (o Occurrence) SameAs(other Occurrence) bool {
	return o.Subject == other.Subject && o.Start.Equal(other.Start) && o.End.Equal(other.End)
}

// Covers reports whether d lies within [Start.Date, End.Date].
func (o Occurrence) Covers(d date.Date) bool {
	return d.Compare(o.Start.Date) >= 0 && d.Compare(o.End.Date) <= 0
}

// Contains reports whether dt lies within [Start, End].
func (o Occurrence) Contains(dt date.DateTime) bool {
	return dt.Compare(o.Start) >= 0 && dt.Compare(o.End) <= 0
}

// Duration returns the length of the occurrence in minutes.
func (o Occurrence) Duration() int {
	return o.Start.MinutesUntil(o.End)
}

// Shift moves the occurrence by a signed number of minutes.
func (o Occurrence) Shift(minutes int) (Occurrence, error) {
	start, err := o.Start.AddMinutes(minutes)
	if err != nil {
		return Occurrence{}, err
	}
	end, err := o.End.AddMinutes(minutes)
	if err != nil {
		return Occurrence{}, err
	}
	o.Start, o.End = start, end
	return o, nil
}

// String renders "subject: YYYY-MM-DD hh:mm - hh:mm[ @ location]".
func (o Occurrence) String() string {
	s := fmt.Sprintf("%s: %s %s - %s", o.Subject, o.Start.Date, o.Start.Clock, o.End.Clock)
	if o.Location != "" {
		s += " @ " + o.Location
	}
	return s
}
