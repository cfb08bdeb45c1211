// Package bootstrap turns a loaded configuration into a populated suite.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"calsuite/internal/calendar"
	"calsuite/internal/calerr"
	"calsuite/internal/config"
	"calsuite/internal/date"
	"calsuite/internal/event"
	"calsuite/internal/ics"
	appLog "calsuite/internal/log"
	"calsuite/internal/model"
	"calsuite/internal/recur"
	"calsuite/internal/suite"
)

// Build creates every configured calendar, seeds its events and selects the
// active one. Subscriptions are not fetched here; see Sources.
func Build(cfg *config.Config) (*suite.Suite, error) {
	s := suite.NewEmpty()
	for _, cc := range cfg.Calendars {
		if err := s.CreateCalendar(cc.Name, cc.Timezone); err != nil {
			return nil, fmt.Errorf("calendar %q: %w", cc.Name, err)
		}
		cal, err := s.Calendar(cc.Name)
		if err != nil {
			return nil, err
		}
		for i, ec := range cc.Events {
			if err := Seed(cal, ec); err != nil {
				return nil, fmt.Errorf("calendar %q: events[%d] %q: %w", cc.Name, i, ec.Subject, err)
			}
		}
		cal.SortByStartDate()
	}
	if err := s.UseCalendar(cfg.Active); err != nil {
		return nil, err
	}
	return s, nil
}

// Seed adds one configured event to cal. Entries repeating an existing
// event are skipped.
func Seed(cal *calendar.Calendar, ec config.EventConfig) error {
	ev, err := build(ec)
	if err != nil {
		return err
	}
	cal.AddEvent(ev)
	return nil
}

func build(ec config.EventConfig) (event.Event, error) {
	allDay := ec.Start == "" && ec.End == ""
	switch {
	case allDay && ec.Date == "":
		return nil, fmt.Errorf("%w: need start and end, or date", calerr.ErrInvalidFormat)
	case !allDay && ec.Date != "":
		return nil, fmt.Errorf("%w: date cannot be combined with start/end", calerr.ErrInvalidFormat)
	}

	status := model.Public
	if ec.Status != "" {
		var err error
		if status, err = model.ParseVisibility(ec.Status); err != nil {
			return nil, err
		}
	}

	var (
		day        date.Date
		start, end date.DateTime
		err        error
	)
	if allDay {
		if day, err = date.ParseDate(ec.Date); err != nil {
			return nil, err
		}
	} else {
		if start, err = date.ParseDateTime(ec.Start); err != nil {
			return nil, err
		}
		if end, err = date.ParseDateTime(ec.End); err != nil {
			return nil, err
		}
		if end.Before(start) {
			return nil, fmt.Errorf("%w: end %s before start %s", calerr.ErrInvalidRange, end, start)
		}
		day = start.Date
	}

	if !ec.IsSeries() {
		o := event.AllDayOccurrence(ec.Subject, day)
		if !allDay {
			o = model.Occurrence{Subject: ec.Subject, Start: start, End: end}
		}
		o.Location, o.Description, o.Status = ec.Location, ec.Description, status
		return event.NewSingle(o)
	}

	weekdays, err := date.ParseWeekdays(ec.Weekdays)
	if err != nil {
		return nil, err
	}
	rule := recur.Repeat(day, weekdays, ec.Repeat)
	if ec.Until != "" {
		stop, err := date.ParseDate(ec.Until)
		if err != nil {
			return nil, err
		}
		rule = recur.Until(day, weekdays, stop)
		rule.Count = ec.Repeat
	}

	t := event.AllDayTemplate(ec.Subject)
	if !allDay {
		t = event.Template{Subject: ec.Subject, Start: start.Clock, End: end.Clock}
	}
	t.Location, t.Description, t.Status = ec.Location, ec.Description, status
	return event.NewSeries(t, rule)
}

// Subscription is the set of ICS feeds of one calendar.
type Subscription struct {
	Calendar string
	Sources  []ics.Source
}

// Sources lists the configured ICS feeds per calendar, skipping calendars
// without any.
func Sources(cfg *config.Config) []Subscription {
	var out []Subscription
	for _, cc := range cfg.Calendars {
		if len(cc.ICS) == 0 {
			continue
		}
		sub := Subscription{Calendar: cc.Name}
		for _, ic := range cc.ICS {
			sub.Sources = append(sub.Sources, ics.Source{ID: ic.ID, URL: ic.URL})
		}
		out = append(out, sub)
	}
	return out
}

// Refresh imports every subscription into its calendar. Each feed is
// expanded from midnight of now's date, in the calendar's zone, over the
// next horizonDays days. It returns the number of events added; failing
// feeds are joined into the error without stopping the rest.
func Refresh(ctx context.Context, s *suite.Suite, f *ics.Fetcher, subs []Subscription, horizonDays int, now time.Time) (int, error) {
	zones := make(map[string]string)
	for _, info := range s.List() {
		zones[info.Name] = info.Zone
	}

	var (
		total int
		errs  []error
	)
	for _, sub := range subs {
		cal, err := s.Calendar(sub.Calendar)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		loc, err := time.LoadLocation(zones[sub.Calendar])
		if err != nil {
			errs = append(errs, fmt.Errorf("calendar %q: %w", sub.Calendar, err))
			continue
		}

		local := now.In(loc)
		start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		cfg := ics.ExpandConfig{
			Location:   loc,
			RangeStart: start,
			RangeEnd:   start.AddDate(0, 0, horizonDays),
		}

		n, feedErrs := ics.Refresh(ctx, f, cal, sub.Sources, cfg)
		if n > 0 {
			cal.SortByStartDate()
		}
		appLog.Info("subscriptions refreshed", "calendar", sub.Calendar, "feeds", len(sub.Sources), "added", n, "failed", len(feedErrs))
		total += n
		errs = append(errs, feedErrs...)
	}
	return total, errors.Join(errs...)
}
