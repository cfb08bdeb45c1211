// Package recur expands a weekly recurrence pattern into the concrete dates of
// a series.
package recur

import (
	"fmt"

	"github.com/teambition/rrule-go"

	"calsuite/internal/calerr"
	"calsuite/internal/date"
)

// maxScanDays caps how far a single rule may reach, roughly a century.
const maxScanDays = 36525

var rruleWeekdays = [...]rrule.Weekday{
	date.Monday:    rrule.MO,
	date.Tuesday:   rrule.TU,
	date.Wednesday: rrule.WE,
	date.Thursday:  rrule.TH,
	date.Friday:    rrule.FR,
	date.Saturday:  rrule.SA,
	date.Sunday:    rrule.SU,
}

// Rule describes a series: the weekdays it recurs on, counted from Start, and
// exactly one bound. Count is the number of 7-day windows to scan; Until is
// the last date (inclusive) that may hold an occurrence.
type Rule struct {
	Start    date.Date
	Weekdays date.WeekdaySet
	Count    int
	Until    date.Date
}

// Repeat builds a count-bounded rule.
func Repeat(start date.Date, weekdays date.WeekdaySet, count int) Rule {
	return Rule{Start: start, Weekdays: weekdays, Count: count}
}

// Until builds a stop-date-bounded rule.
func Until(start date.Date, weekdays date.WeekdaySet, stop date.Date) Rule {
	return Rule{Start: start, Weekdays: weekdays, Until: stop}
}

// Validate checks the rule without expanding it.
func (r Rule) Validate() error {
	if r.Start.IsZero() {
		return fmt.Errorf("%w: missing start date", calerr.ErrInvalidRecurrence)
	}
	if r.Weekdays.IsEmpty() {
		return fmt.Errorf("%w: empty weekday set", calerr.ErrInvalidRecurrence)
	}
	byCount := r.Until.IsZero()
	switch {
	case byCount && r.Count <= 0:
		return fmt.Errorf("%w: repeat count must be positive, got %d", calerr.ErrInvalidRecurrence, r.Count)
	case !byCount && r.Count != 0:
		return fmt.Errorf("%w: both repeat count and stop date given", calerr.ErrInvalidRecurrence)
	case !byCount && r.Until.Before(r.Start):
		return fmt.Errorf("%w: stop date %s before start date %s", calerr.ErrInvalidRange, r.Until, r.Start)
	}
	if r.span() > maxScanDays {
		return fmt.Errorf("%w: series spans %d days, limit is %d", calerr.ErrInvalidRecurrence, r.span(), maxScanDays)
	}
	return nil
}

// span is the number of days scanned, start date included.
func (r Rule) span() int {
	if r.Until.IsZero() {
		return 7 * r.Count
	}
	return r.Start.DaysUntil(r.Until) + 1
}

// Expand returns the strictly increasing occurrence dates of r. A rule that
// yields no dates at all is an ErrInvalidRecurrence.
func Expand(r Rule) ([]date.Date, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	last := r.Until
	if last.IsZero() {
		var err error
		last, err = r.Start.AddDays(r.span() - 1)
		if err != nil {
			return nil, err
		}
	}

	byday := make([]rrule.Weekday, 0, 7)
	for _, w := range r.Weekdays.Days() {
		byday = append(byday, rruleWeekdays[w])
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.DAILY,
		Dtstart:   r.Start.Time(),
		Until:     last.Time(),
		Byweekday: byday,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", calerr.ErrInvalidRecurrence, err)
	}

	times := rule.All()
	if len(times) == 0 {
		return nil, fmt.Errorf("%w: no %s days between %s and %s",
			calerr.ErrInvalidRecurrence, r.Weekdays, r.Start, last)
	}

	dates := make([]date.Date, 0, len(times))
	for _, t := range times {
		dates = append(dates, date.FromTime(t))
	}
	return dates, nil
}
