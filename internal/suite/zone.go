package suite

import (
	"fmt"
	"regexp"
	"time"
	_ "time/tzdata"

	"calsuite/internal/calerr"
)

var zoneRe = regexp.MustCompile(`^\S+/\S+$`)

// offsetYear pins the rules a zone is resolved with, so a name always maps to
// the same offset.
const offsetYear = 2025

// ResolveZone maps a region/city zone name to its standard UTC offset in
// minutes. Daylight saving is ignored: the offset is the smaller of the
// zone's January and July offsets in offsetYear.
func ResolveZone(name string) (int, error) {
	if !zoneRe.MatchString(name) {
		return 0, fmt.Errorf("%w: %q, want region/city", calerr.ErrInvalidTimezone, name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", calerr.ErrInvalidTimezone, name, err)
	}
	_, jan := time.Date(offsetYear, time.January, 1, 0, 0, 0, 0, loc).Zone()
	_, jul := time.Date(offsetYear, time.July, 1, 0, 0, 0, 0, loc).Zone()
	return min(jan, jul) / 60, nil
}

// hourShift is the whole-hour difference from one offset to another, in
// minutes. Fractional hours are truncated toward zero.
func hourShift(from, to int) int {
	return (to - from) / 60 * 60
}
