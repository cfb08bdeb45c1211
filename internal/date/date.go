// Package date implements the calendar-date arithmetic used by the event
// model: validated Gregorian dates, weekday computation and forward day
// increments with month and leap-year rollover.
package date

import (
	"fmt"
	"time"

	"calsuite/internal/calerr"
)

// Date is a validated Gregorian calendar date. The zero value is not a valid
// date; construct values with New or ParseDate.
type Date struct {
	year  int
	month int
	day   int
}

// New returns the date year-month-day, or ErrInvalidDate when the triple does
// not name a real day.
func New(year, month, day int) (Date, error) {
	if year < 0 || month < 1 || month > 12 || day < 1 {
		return Date{}, fmt.Errorf("%w: %04d-%02d-%02d", calerr.ErrInvalidDate, year, month, day)
	}
	if day > DaysIn(year, month) {
		return Date{}, fmt.Errorf("%w: %04d-%02d-%02d has only %d days in month",
			calerr.ErrInvalidDate, year, month, day, DaysIn(year, month))
	}
	return Date{year: year, month: month, day: day}, nil
}

// Must panics if err is non-nil. Intended for fixtures and constants.
func Must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// FromTime returns the calendar date of t in t's own location.
func FromTime(t time.Time) Date {
	return Date{year: t.Year(), month: int(t.Month()), day: t.Day()}
}

// IsLeap reports whether year is a Gregorian leap year.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysIn returns the number of days in month of year.
func DaysIn(year, month int) int {
	switch month {
	case 2:
		if IsLeap(year) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

func (d Date) Year() int  { return d.year }
func (d Date) Month() int { return d.month }
func (d Date) Day() int   { return d.day }

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Weekday computes the day of the week with Zeller's congruence.
func (d Date) Weekday() Weekday {
	q, m, y := d.day, d.month, d.year
	if m < 3 {
		m += 12
		y--
	}
	// Shifting by a full 400-year cycle keeps y non-negative for January and
	// February of year 0 without changing the weekday.
	y += 400
	k := y % 100
	j := y / 100
	h := (q + (13*(m+1))/5 + k + k/4 + j/4 + 5*j) % 7

	// h: 0 = Saturday, 1 = Sunday, 2 = Monday, ...
	return Weekday((h + 5) % 7)
}

// AddDays returns the date n days after d. It fails with ErrInvalidDate for a
// negative n.
func (d Date) AddDays(n int) (Date, error) {
	if n < 0 {
		return Date{}, fmt.Errorf("%w: cannot add %d days", calerr.ErrInvalidDate, n)
	}
	year, month, day := d.year, d.month, d.day+n
	for day > DaysIn(year, month) {
		day -= DaysIn(year, month)
		month++
		if month == 13 {
			month = 1
			year++
		}
	}
	return Date{year: year, month: month, day: day}, nil
}

// Next returns the following day.
func (d Date) Next() Date {
	next, _ := d.AddDays(1)
	return next
}

// Compare orders dates by (year, month, day), returning -1, 0 or 1.
func (d Date) Compare(other Date) int {
	switch {
	case d.year != other.year:
		return sign(d.year - other.year)
	case d.month != other.month:
		return sign(d.month - other.month)
	default:
		return sign(d.day - other.day)
	}
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.Compare(other) > 0 }

// DaysUntil returns the signed number of days from d to other.
func (d Date) DaysUntil(other Date) int {
	return other.ordinal() - d.ordinal()
}

// String renders d as zero-padded YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.year, d.month, d.day)
}

// Time returns midnight of d in UTC.
func (d Date) Time() time.Time {
	return time.Date(d.year, time.Month(d.month), d.day, 0, 0, 0, 0, time.UTC)
}

// ordinal maps d onto a continuous day count (1970-01-01 is 0).
func (d Date) ordinal() int {
	y, m := d.year, d.month
	if m <= 2 {
		y--
	}
	era := y
	if era < 0 {
		era -= 399
	}
	era /= 400
	yoe := y - era*400
	mp := (m + 9) % 12
	doy := (153*mp+2)/5 + d.day - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}

// fromOrdinal is the inverse of ordinal.
func fromOrdinal(n int) (Date, error) {
	z := n + 719468
	era := z
	if era < 0 {
		era -= 146096
	}
	era /= 146097
	doe := z - era*146097
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	y := yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	day := doy - (153*mp+2)/5 + 1
	month := mp + 3
	if mp >= 10 {
		month = mp - 9
	}
	if month <= 2 {
		y++
	}
	return New(y, month, day)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
