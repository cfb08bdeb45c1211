// Package calerr defines the error kinds returned by the calendar core.
//
// Every failure is wrapped around one of these sentinels, so callers can
// branch with errors.Is while still getting a descriptive message.
package calerr

import "errors"

var (
	ErrInvalidFormat     = errors.New("invalid format")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidRange      = errors.New("invalid range")
	ErrInvalidRecurrence = errors.New("invalid recurrence")
	ErrInvalidProperty   = errors.New("invalid property")
	ErrInvalidTimezone   = errors.New("invalid timezone")
	ErrEventNotFound     = errors.New("event not found")
	ErrDuplicateEvent    = errors.New("duplicate event")
	ErrNoSuchCalendar    = errors.New("no such calendar")
	ErrDuplicateCalendar = errors.New("duplicate calendar")
	ErrNoActiveCalendar  = errors.New("no active calendar")
)
