// Package calendar stores the events of one calendar and answers day, range
// and busy queries over them.
//
// All public operations validate their input before touching the event list,
// so a failed call leaves the calendar unchanged. A Calendar is safe for
// concurrent use: writers take the lock exclusively, queries share it.
package calendar

import (
	"fmt"
	"slices"
	"sync"

	"calsuite/internal/calerr"
	"calsuite/internal/date"
	"calsuite/internal/event"
	"calsuite/internal/model"
	"calsuite/internal/recur"
)

// Scope selects how far an edit reaches into a series.
type Scope int

const (
	// ScopeEvent edits one occurrence.
	ScopeEvent Scope = iota
	// ScopeFollowing edits one occurrence and every later one in its series.
	ScopeFollowing
	// ScopeSeries edits every occurrence.
	ScopeSeries
)

func (s Scope) String() string {
	switch s {
	case ScopeEvent:
		return "event"
	case ScopeFollowing:
		return "events"
	case ScopeSeries:
		return "series"
	default:
		return fmt.Sprintf("Scope(%d)", int(s))
	}
}

// ParseScope maps "event", "events" or "series" to a Scope.
func ParseScope(s string) (Scope, error) {
	for _, scope := range []Scope{ScopeEvent, ScopeFollowing, ScopeSeries} {
		if s == scope.String() {
			return scope, nil
		}
	}
	return ScopeEvent, fmt.Errorf("%w: scope %q, want event, events or series", calerr.ErrInvalidFormat, s)
}

// Calendar is an ordered collection of events with no two "the same".
type Calendar struct {
	mu     sync.RWMutex
	events []event.Event
}

// New returns an empty calendar.
func New() *Calendar {
	return &Calendar{}
}

// AddEvent inserts e unless an event with the same subject, start and end as
// e's first occurrence is already present. It reports whether e was added.
func (c *Calendar) AddEvent(e event.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addLocked(e)
}

func (c *Calendar) addLocked(e event.Event) bool {
	if c.containsLocked(e.First()) {
		return false
	}
	c.events = append(c.events, e)
	return true
}

func (c *Calendar) containsLocked(o model.Occurrence) bool {
	return c.indexLocked(matchOf(o)) >= 0
}

func matchOf(o model.Occurrence) event.Match {
	return event.Match{Subject: o.Subject, Start: o.Start, End: o.End}
}

func (c *Calendar) indexLocked(m event.Match) int {
	for i, e := range c.events {
		if e.Matches(m) {
			return i
		}
	}
	return -1
}

// CreateSingleEvent adds a timed event from start to end.
func (c *Calendar) CreateSingleEvent(subject, start, end string) error {
	s, e, err := parseSpan(start, end)
	if err != nil {
		return err
	}
	ev, err := event.NewSingle(model.Occurrence{Subject: subject, Start: s, End: e})
	if err != nil {
		return err
	}
	c.AddEvent(ev)
	return nil
}

// CreateAllDayEvent adds an 08:00-17:00 event on day.
func (c *Calendar) CreateAllDayEvent(subject, day string) error {
	d, err := date.ParseDate(day)
	if err != nil {
		return err
	}
	ev, err := event.NewSingle(event.AllDayOccurrence(subject, d))
	if err != nil {
		return err
	}
	c.AddEvent(ev)
	return nil
}

// CreateSeriesRepeat adds a series on weekdays for times weeks, starting on
// start's date. Only the times of day of start and end are used for the
// occurrences.
func (c *Calendar) CreateSeriesRepeat(subject, start, end, weekdays string, times int) error {
	s, e, err := parseSpan(start, end)
	if err != nil {
		return err
	}
	set, err := date.ParseWeekdays(weekdays)
	if err != nil {
		return err
	}
	return c.addSeries(timedTemplate(subject, s, e), recur.Repeat(s.Date, set, times))
}

// CreateSeriesUntil adds a series on weekdays from start's date through stop.
func (c *Calendar) CreateSeriesUntil(subject, start, end, weekdays, stop string) error {
	s, e, err := parseSpan(start, end)
	if err != nil {
		return err
	}
	set, err := date.ParseWeekdays(weekdays)
	if err != nil {
		return err
	}
	until, err := date.ParseDate(stop)
	if err != nil {
		return err
	}
	return c.addSeries(timedTemplate(subject, s, e), recur.Until(s.Date, set, until))
}

// CreateAllDaySeriesRepeat adds an all-day series for times weeks.
func (c *Calendar) CreateAllDaySeriesRepeat(subject, day, weekdays string, times int) error {
	d, err := date.ParseDate(day)
	if err != nil {
		return err
	}
	set, err := date.ParseWeekdays(weekdays)
	if err != nil {
		return err
	}
	return c.addSeries(event.AllDayTemplate(subject), recur.Repeat(d, set, times))
}

// CreateAllDaySeriesUntil adds an all-day series through stop.
func (c *Calendar) CreateAllDaySeriesUntil(subject, day, weekdays, stop string) error {
	d, err := date.ParseDate(day)
	if err != nil {
		return err
	}
	set, err := date.ParseWeekdays(weekdays)
	if err != nil {
		return err
	}
	until, err := date.ParseDate(stop)
	if err != nil {
		return err
	}
	return c.addSeries(event.AllDayTemplate(subject), recur.Until(d, set, until))
}

func (c *Calendar) addSeries(t event.Template, rule recur.Rule) error {
	s, err := event.NewSeries(t, rule)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.addLocked(s) {
		c.sortLocked()
	}
	return nil
}

func timedTemplate(subject string, start, end date.DateTime) event.Template {
	return event.Template{Subject: subject, Start: start.Clock, End: end.Clock}
}

func parseSpan(start, end string) (date.DateTime, date.DateTime, error) {
	s, err := date.ParseDateTime(start)
	if err != nil {
		return date.DateTime{}, date.DateTime{}, err
	}
	e, err := date.ParseDateTime(end)
	if err != nil {
		return date.DateTime{}, date.DateTime{}, err
	}
	if e.Before(s) {
		return date.DateTime{}, date.DateTime{}, fmt.Errorf("%w: end %s before start %s", calerr.ErrInvalidRange, e, s)
	}
	return s, e, nil
}

// EditEventProperty edits the one occurrence of subject starting at start.
// An empty end matches any end.
func (c *Calendar) EditEventProperty(prop, subject, start, end, value string) error {
	m, err := parseMatch(subject, start, end)
	if err != nil {
		return err
	}
	e, err := event.ParseEdit(prop, value)
	if err != nil {
		return err
	}
	return c.ApplyEdit(ScopeEvent, m, e)
}

// EditEventsProperty edits the occurrence of subject starting at start and
// every later occurrence of the same series.
func (c *Calendar) EditEventsProperty(prop, subject, start, value string) error {
	m, err := parseMatch(subject, start, "")
	if err != nil {
		return err
	}
	e, err := event.ParseEdit(prop, value)
	if err != nil {
		return err
	}
	return c.ApplyEdit(ScopeFollowing, m, e)
}

// EditSeriesProperty edits every occurrence of the series containing the
// occurrence of subject starting at start.
func (c *Calendar) EditSeriesProperty(prop, subject, start, value string) error {
	m, err := parseMatch(subject, start, "")
	if err != nil {
		return err
	}
	e, err := event.ParseEdit(prop, value)
	if err != nil {
		return err
	}
	return c.ApplyEdit(ScopeSeries, m, e)
}

func parseMatch(subject, start, end string) (event.Match, error) {
	s, err := date.ParseDateTime(start)
	if err != nil {
		return event.Match{}, err
	}
	m := event.Match{Subject: subject, Start: s, AnyEnd: end == ""}
	if end != "" {
		if m.End, err = date.ParseDateTime(end); err != nil {
			return event.Match{}, err
		}
	}
	return m, nil
}

// ApplyEdit locates the first event matching m and applies e with the given
// scope. It fails with ErrEventNotFound when nothing matches, and with
// ErrDuplicateEvent when a resulting event would be the same as another one
// in the calendar; the calendar is unchanged in both cases.
func (c *Calendar) ApplyEdit(scope Scope, m event.Match, e event.Edit) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(m)
	if i < 0 {
		return fmt.Errorf("%w: %q at %s", calerr.ErrEventNotFound, m.Subject, m.Start)
	}
	target := c.events[i]

	var (
		remaining, detached event.Event
		err                 error
	)
	switch scope {
	case ScopeEvent:
		remaining, detached, err = target.EditEvent(m.Start, e)
	case ScopeFollowing:
		remaining, detached, err = target.EditFollowing(m.Start, e)
	case ScopeSeries:
		remaining, err = target.EditSeries(e)
	default:
		err = fmt.Errorf("%w: unknown edit scope %s", calerr.ErrInvalidProperty, scope)
	}
	if err != nil {
		return err
	}

	if remaining != nil && c.clashLocked(remaining, i) {
		return fmt.Errorf("%w: %s", calerr.ErrDuplicateEvent, remaining.First())
	}
	if detached != nil && (c.clashLocked(detached, i) || (remaining != nil && remaining.Matches(matchOf(detached.First())))) {
		return fmt.Errorf("%w: %s", calerr.ErrDuplicateEvent, detached.First())
	}

	if remaining == nil {
		c.events = slices.Delete(c.events, i, i+1)
	} else {
		c.events[i] = remaining
	}
	if detached != nil {
		c.events = append(c.events, detached)
		if detached.IsSeries() {
			c.sortLocked()
		}
	}
	return nil
}

// clashLocked applies the AddEvent rule to e against every event but the one
// at skip.
func (c *Calendar) clashLocked(e event.Event, skip int) bool {
	m := matchOf(e.First())
	for j, other := range c.events {
		if j != skip && other.Matches(m) {
			return true
		}
	}
	return false
}

// RemoveEvent deletes the first event matching m.
func (c *Calendar) RemoveEvent(m event.Match) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(m)
	if i < 0 {
		return fmt.Errorf("%w: %q at %s", calerr.ErrEventNotFound, m.Subject, m.Start)
	}
	c.events = slices.Delete(c.events, i, i+1)
	return nil
}

// RemoveEventAt is RemoveEvent for the textual match of the edit
// operations. An empty end matches any end.
func (c *Calendar) RemoveEventAt(subject, start, end string) error {
	m, err := parseMatch(subject, start, end)
	if err != nil {
		return err
	}
	return c.RemoveEvent(m)
}

// Find returns the first event matching m.
func (c *Calendar) Find(m event.Match) (event.Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := c.indexLocked(m)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q at %s", calerr.ErrEventNotFound, m.Subject, m.Start)
	}
	return c.events[i], nil
}

// Events returns a snapshot of the events in calendar order.
func (c *Calendar) Events() []event.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.events)
}

// Len returns the number of events.
func (c *Calendar) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.events)
}

// SortByStartDate orders events by the date of their first occurrence,
// keeping insertion order among events on the same date.
func (c *Calendar) SortByStartDate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sortLocked()
}

func (c *Calendar) sortLocked() {
	slices.SortStableFunc(c.events, func(a, b event.Event) int {
		return a.First().Start.Date.Compare(b.First().Start.Date)
	})
}
