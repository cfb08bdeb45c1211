package date

import (
	"fmt"
	"time"

	"calsuite/internal/calerr"
)

const minutesPerDay = 24 * 60

// Clock is a time of day with minute precision.
type Clock struct {
	hour   int
	minute int
}

// NewClock validates hour 0..23 and minute 0..59.
func NewClock(hour, minute int) (Clock, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("%w: time %d:%d out of range", calerr.ErrInvalidFormat, hour, minute)
	}
	return Clock{hour: hour, minute: minute}, nil
}

// MustClock panics on an invalid clock.
func MustClock(hour, minute int) Clock {
	c, err := NewClock(hour, minute)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) Hour() int   { return c.hour }
func (c Clock) Minute() int { return c.minute }

// Minutes returns the number of minutes since midnight.
func (c Clock) Minutes() int { return c.hour*60 + c.minute }

func (c Clock) Compare(other Clock) int {
	return sign(c.Minutes() - other.Minutes())
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.hour, c.minute)
}

// DateTime is a calendar date combined with a time of day.
type DateTime struct {
	Date  Date
	Clock Clock
}

// At joins a date and a clock.
func At(d Date, c Clock) DateTime {
	return DateTime{Date: d, Clock: c}
}

func (dt DateTime) Compare(other DateTime) int {
	if c := dt.Date.Compare(other.Date); c != 0 {
		return c
	}
	return dt.Clock.Compare(other.Clock)
}

func (dt DateTime) Before(other DateTime) bool { return dt.Compare(other) < 0 }
func (dt DateTime) After(other DateTime) bool  { return dt.Compare(other) > 0 }
func (dt DateTime) Equal(other DateTime) bool  { return dt.Compare(other) == 0 }

// MinutesUntil returns the signed number of minutes from dt to other.
func (dt DateTime) MinutesUntil(other DateTime) int {
	return dt.Date.DaysUntil(other.Date)*minutesPerDay + other.Clock.Minutes() - dt.Clock.Minutes()
}

// AddMinutes shifts dt by a signed number of minutes, rolling the date in
// either direction.
func (dt DateTime) AddMinutes(m int) (DateTime, error) {
	total := dt.Date.ordinal()*minutesPerDay + dt.Clock.Minutes() + m
	days := total / minutesPerDay
	rem := total % minutesPerDay
	if rem < 0 {
		rem += minutesPerDay
		days--
	}
	d, err := fromOrdinal(days)
	if err != nil {
		return DateTime{}, err
	}
	return DateTime{Date: d, Clock: Clock{hour: rem / 60, minute: rem % 60}}, nil
}

// AddDays moves dt by a signed number of whole days, keeping the clock.
func (dt DateTime) AddDays(n int) (DateTime, error) {
	return dt.AddMinutes(n * minutesPerDay)
}

// String renders dt as YYYY-MM-DDThh:mm.
func (dt DateTime) String() string {
	return dt.Date.String() + "T" + dt.Clock.String()
}

// DateTimeOf returns the wall-clock date and time of t in its own location,
// dropping seconds.
func DateTimeOf(t time.Time) DateTime {
	return DateTime{Date: FromTime(t), Clock: Clock{hour: t.Hour(), minute: t.Minute()}}
}

// In returns dt as an instant in loc.
func (dt DateTime) In(loc *time.Location) time.Time {
	return time.Date(dt.Date.year, time.Month(dt.Date.month), dt.Date.day,
		dt.Clock.hour, dt.Clock.minute, 0, 0, loc)
}

// Time returns dt as a UTC time.Time.
func (dt DateTime) Time() time.Time {
	return time.Date(dt.Date.year, time.Month(dt.Date.month), dt.Date.day,
		dt.Clock.hour, dt.Clock.minute, 0, 0, time.UTC)
}
