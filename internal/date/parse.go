package date

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"calsuite/internal/calerr"
)

var (
	dateRe     = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`)
	clockRe    = regexp.MustCompile(`^\d{1,2}:\d{1,2}$`)
	dateTimeRe = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}T\d{1,2}:\d{1,2}$`)
)

// ParseDate parses YYYY-M(M)-D(D).
func ParseDate(s string) (Date, error) {
	if !dateRe.MatchString(s) {
		return Date{}, fmt.Errorf("%w: date %q, want YYYY-MM-DD", calerr.ErrInvalidFormat, s)
	}
	parts := strings.Split(s, "-")
	return New(atoi(parts[0]), atoi(parts[1]), atoi(parts[2]))
}

// ParseClock parses h(h):m(m).
func ParseClock(s string) (Clock, error) {
	if !clockRe.MatchString(s) {
		return Clock{}, fmt.Errorf("%w: time %q, want hh:mm", calerr.ErrInvalidFormat, s)
	}
	parts := strings.Split(s, ":")
	return NewClock(atoi(parts[0]), atoi(parts[1]))
}

// ParseDateTime parses a date and a time joined by a literal T.
func ParseDateTime(s string) (DateTime, error) {
	if !dateTimeRe.MatchString(s) {
		return DateTime{}, fmt.Errorf("%w: date-time %q, want YYYY-MM-DDThh:mm", calerr.ErrInvalidFormat, s)
	}
	datePart, clockPart, _ := strings.Cut(s, "T")
	d, err := ParseDate(datePart)
	if err != nil {
		return DateTime{}, err
	}
	c, err := ParseClock(clockPart)
	if err != nil {
		return DateTime{}, err
	}
	return At(d, c), nil
}

// atoi is only called on strings already matched by a digit pattern.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
