package calendar

import (
	"fmt"
	"slices"

	"calsuite/internal/calerr"
	"calsuite/internal/date"
	"calsuite/internal/model"
)

// upcomingLimit is the number of occurrences FirstTenFrom returns.
const upcomingLimit = 10

// EventsOn returns every occurrence touching day, in calendar order.
func (c *Calendar) EventsOn(day string) ([]model.Occurrence, error) {
	d, err := date.ParseDate(day)
	if err != nil {
		return nil, err
	}
	return c.On(d), nil
}

// On is EventsOn for an already parsed date.
func (c *Calendar) On(d date.Date) []model.Occurrence {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []model.Occurrence
	for _, e := range c.events {
		if o, ok := e.OccursOn(d); ok {
			out = append(out, o)
		}
	}
	return out
}

// EventsInRange returns the occurrences between start and end, walking one
// day at a time. On the first day an occurrence must end at or after start,
// on the last day it must begin at or before end. A multi-day event is
// reported once.
func (c *Calendar) EventsInRange(start, end string) ([]model.Occurrence, error) {
	s, err := date.ParseDateTime(start)
	if err != nil {
		return nil, err
	}
	e, err := date.ParseDateTime(end)
	if err != nil {
		return nil, err
	}
	return c.Between(s, e)
}

// Between is EventsInRange for already parsed bounds.
func (c *Calendar) Between(start, end date.DateTime) ([]model.Occurrence, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: range ends at %s before it starts at %s", calerr.ErrInvalidRange, end, start)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	type key struct {
		id    string
		start date.DateTime
	}
	seen := make(map[key]struct{})

	var out []model.Occurrence
	for d := start.Date; !d.After(end.Date); d = d.Next() {
		first, last := d.Compare(start.Date) == 0, d.Compare(end.Date) == 0
		for _, ev := range c.events {
			o, ok := ev.OccursOn(d)
			if !ok {
				continue
			}
			if first && o.End.Before(start) {
				continue
			}
			if last && o.Start.After(end) {
				continue
			}
			k := key{o.EventID, o.Start}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, o)
		}
	}
	return out, nil
}

// ShowStatus reports whether any event is busy at the given date-time.
func (c *Calendar) ShowStatus(at string) (bool, error) {
	dt, err := date.ParseDateTime(at)
	if err != nil {
		return false, err
	}
	return c.BusyAt(dt), nil
}

// BusyAt is ShowStatus for an already parsed date-time.
func (c *Calendar) BusyAt(dt date.DateTime) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, e := range c.events {
		if e.IsBusyAt(dt) {
			return true
		}
	}
	return false
}

// FirstTenFrom returns the first ten occurrences starting on or after day.
func (c *Calendar) FirstTenFrom(day string) ([]model.Occurrence, error) {
	d, err := date.ParseDate(day)
	if err != nil {
		return nil, err
	}
	return c.Upcoming(d, upcomingLimit), nil
}

// Upcoming returns at most limit occurrences whose start date is on or after
// from, earliest first. A non-positive limit returns them all.
func (c *Calendar) Upcoming(from date.Date, limit int) []model.Occurrence {
	c.mu.RLock()
	var out []model.Occurrence
	for _, e := range c.events {
		for _, o := range e.Occurrences() {
			if !o.Start.Date.Before(from) {
				out = append(out, o)
			}
		}
	}
	c.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b model.Occurrence) int {
		return a.Start.Compare(b.Start)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Occurrences flattens every event into its occurrences, in calendar order.
func (c *Calendar) Occurrences() []model.Occurrence {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []model.Occurrence
	for _, e := range c.events {
		out = append(out, e.Occurrences()...)
	}
	return out
}
