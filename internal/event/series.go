package event

import (
	"fmt"
	"slices"
	"strings"

	"calsuite/internal/calerr"
	"calsuite/internal/date"
	"calsuite/internal/model"
	"calsuite/internal/recur"
)

// Template holds everything a series' occurrences share.
type Template struct {
	Subject     string
	Description string
	Location    string
	Status      model.Visibility
	AllDay      bool

	Start date.Clock
	End   date.Clock
}

// AllDayTemplate is the default 08:00-17:00 template for subject.
func AllDayTemplate(subject string) Template {
	return Template{Subject: subject, AllDay: true, Start: AllDayStart, End: AllDayEnd}
}

func (t Template) validate() error {
	if t.End.Compare(t.Start) < 0 {
		return fmt.Errorf("%w: series ends at %s before it starts at %s", calerr.ErrInvalidRange, t.End, t.Start)
	}
	return nil
}

func (t Template) on(id string, d date.Date) model.Occurrence {
	return model.Occurrence{
		EventID:     id,
		Subject:     t.Subject,
		Description: t.Description,
		Location:    t.Location,
		Status:      t.Status,
		AllDay:      t.AllDay,
		Start:       date.At(d, t.Start),
		End:         date.At(d, t.End),
	}
}

// Series is a recurring event: a template applied to an ordered list of
// dates. Occurrences of a series never span midnight.
type Series struct {
	id       string
	tmpl     Template
	weekdays date.WeekdaySet
	dates    []date.Date
}

// NewSeries expands rule and binds the resulting dates to t.
func NewSeries(t Template, rule recur.Rule) (*Series, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	dates, err := recur.Expand(rule)
	if err != nil {
		return nil, err
	}
	return &Series{id: newID(), tmpl: t, weekdays: rule.Weekdays, dates: dates}, nil
}

func (s *Series) ID() string                { return s.id }
func (s *Series) IsSeries() bool            { return true }
func (s *Series) Template() Template        { return s.tmpl }
func (s *Series) Weekdays() date.WeekdaySet { return s.weekdays }
func (s *Series) Dates() []date.Date        { return slices.Clone(s.dates) }
func (s *Series) First() model.Occurrence   { return s.tmpl.on(s.id, s.dates[0]) }
func (s *Series) Len() int                  { return len(s.dates) }

func (s *Series) Occurrences() []model.Occurrence {
	out := make([]model.Occurrence, 0, len(s.dates))
	for _, d := range s.dates {
		out = append(out, s.tmpl.on(s.id, d))
	}
	return out
}

func (s *Series) Matches(m Match) bool {
	if s.tmpl.Subject != m.Subject {
		return false
	}
	if _, ok := s.index(m.Start.Date); !ok {
		return false
	}
	return m.MatchOccurrence(s.tmpl.on(s.id, m.Start.Date))
}

func (s *Series) OccursOn(d date.Date) (model.Occurrence, bool) {
	if _, ok := s.index(d); !ok {
		return model.Occurrence{}, false
	}
	return s.tmpl.on(s.id, d), true
}

func (s *Series) IsBusyAt(dt date.DateTime) bool {
	o, ok := s.OccursOn(dt.Date)
	return ok && o.Contains(dt)
}

// EditEvent detaches the occurrence on at's date into a new Single carrying
// the edit. The series keeps its other dates.
func (s *Series) EditEvent(at date.DateTime, e Edit) (Event, Event, error) {
	i, ok := s.index(at.Date)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q has no occurrence on %s", calerr.ErrEventNotFound, s.tmpl.Subject, at.Date)
	}

	o, err := e.applyOccurrence(s.tmpl.on("", s.dates[i]))
	if err != nil {
		return nil, nil, err
	}
	detached, err := NewSingle(o)
	if err != nil {
		return nil, nil, err
	}

	rest := slices.Delete(slices.Clone(s.dates), i, i+1)
	return s.withDates(rest), detached, nil
}

// EditFollowing splits the series at at's date. The receiver's ID stays with
// the earlier dates; the matched and later dates move to a new Series with
// the edit applied to its template.
func (s *Series) EditFollowing(at date.DateTime, e Edit) (Event, Event, error) {
	i, ok := s.index(at.Date)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q has no occurrence on %s", calerr.ErrEventNotFound, s.tmpl.Subject, at.Date)
	}

	tmpl, err := e.applyTemplate(s.tmpl)
	if err != nil {
		return nil, nil, err
	}
	tail := &Series{
		id:       newID(),
		tmpl:     tmpl,
		weekdays: s.weekdays,
		dates:    slices.Clone(s.dates[i:]),
	}
	return s.withDates(slices.Clone(s.dates[:i])), tail, nil
}

// EditSeries applies e to the template; ID and dates are unchanged.
func (s *Series) EditSeries(e Edit) (Event, error) {
	tmpl, err := e.applyTemplate(s.tmpl)
	if err != nil {
		return nil, err
	}
	return &Series{id: s.id, tmpl: tmpl, weekdays: s.weekdays, dates: s.dates}, nil
}

// withDates returns a copy of s restricted to dates. An empty dates yields an
// untyped nil Event, never a nil *Series.
func (s *Series) withDates(dates []date.Date) Event {
	if len(dates) == 0 {
		return nil
	}
	return &Series{id: s.id, tmpl: s.tmpl, weekdays: s.weekdays, dates: dates}
}

func (s *Series) index(d date.Date) (int, bool) {
	return slices.BinarySearchFunc(s.dates, d, func(a, b date.Date) int { return a.Compare(b) })
}

func (s *Series) String() string {
	parts := make([]string, 0, len(s.dates))
	for _, d := range s.dates {
		parts = append(parts, d.String())
	}
	return fmt.Sprintf("%s: %s - %s on %s [%s]", s.tmpl.Subject, s.tmpl.Start, s.tmpl.End,
		s.weekdays, strings.Join(parts, ", "))
}
