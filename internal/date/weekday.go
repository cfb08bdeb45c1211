package date

import (
	"fmt"
	"strings"

	"calsuite/internal/calerr"
)

// Weekday is a day of the week, Monday first.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// weekdayLetters holds the single-letter codes indexed by Weekday.
const weekdayLetters = "MTWRFSU"

// Letter returns the single-letter code M, T, W, R, F, S or U.
func (w Weekday) Letter() byte {
	return weekdayLetters[w]
}

func (w Weekday) String() string {
	return string(w.Letter())
}

// WeekdaySet is a non-empty set of weekdays parsed from a letter pattern. The
// letters keep the order they were given in, for display only.
type WeekdaySet struct {
	mask    uint8
	pattern string
}

// ParseWeekdays parses a pattern such as "MWF". Each letter may appear once
// and unknown letters are ErrInvalidFormat. An empty pattern is
// ErrInvalidRecurrence.
func ParseWeekdays(s string) (WeekdaySet, error) {
	if s == "" {
		return WeekdaySet{}, fmt.Errorf("%w: empty weekday pattern", calerr.ErrInvalidRecurrence)
	}
	var set WeekdaySet
	for i := 0; i < len(s); i++ {
		idx := strings.IndexByte(weekdayLetters, s[i])
		if idx < 0 {
			return WeekdaySet{}, fmt.Errorf("%w: weekday pattern %q has unknown letter %q",
				calerr.ErrInvalidFormat, s, s[i])
		}
		bit := uint8(1) << idx
		if set.mask&bit != 0 {
			return WeekdaySet{}, fmt.Errorf("%w: weekday pattern %q repeats %q",
				calerr.ErrInvalidFormat, s, s[i])
		}
		set.mask |= bit
	}
	set.pattern = s
	return set, nil
}

// Contains reports whether w is in the set.
func (s WeekdaySet) Contains(w Weekday) bool {
	return s.mask&(1<<uint(w)) != 0
}

// IsEmpty reports whether the set has no days.
func (s WeekdaySet) IsEmpty() bool {
	return s.mask == 0
}

// Days returns the members in Monday..Sunday order.
func (s WeekdaySet) Days() []Weekday {
	days := make([]Weekday, 0, 7)
	for w := Monday; w <= Sunday; w++ {
		if s.Contains(w) {
			days = append(days, w)
		}
	}
	return days
}

// String returns the pattern as it was parsed.
func (s WeekdaySet) String() string {
	return s.pattern
}
