// Package suite keeps a set of named calendars, each bound to a time zone,
// tracks which one is active and copies events between them.
package suite

import (
	"fmt"
	"slices"
	"sync"

	"calsuite/internal/calendar"
	"calsuite/internal/calerr"
)

const (
	DefaultCalendar = "Default"
	DefaultZone     = "America/New_York"
)

type entry struct {
	cal    *calendar.Calendar
	zone   string
	offset int // minutes east of UTC
}

// Info describes one calendar of the suite.
type Info struct {
	Name   string `json:"name"`
	Zone   string `json:"timezone"`
	Offset int    `json:"utc_offset_minutes"`
	Active bool   `json:"active"`
	Events int    `json:"events"`
}

// Suite is safe for concurrent use. Its lock guards the name table only;
// each calendar carries its own.
type Suite struct {
	mu     sync.RWMutex
	cals   map[string]*entry
	active string
}

// New returns a suite holding an empty Default calendar in America/New_York,
// already in use.
func New() *Suite {
	s := NewEmpty()
	if err := s.CreateCalendar(DefaultCalendar, DefaultZone); err != nil {
		panic(fmt.Sprintf("suite: default calendar: %v", err))
	}
	s.active = DefaultCalendar
	return s
}

// NewEmpty returns a suite with no calendars and none active.
func NewEmpty() *Suite {
	return &Suite{cals: make(map[string]*entry)}
}

// CreateCalendar adds an empty calendar called name in zone.
func (s *Suite) CreateCalendar(name, zone string) error {
	if name == "" {
		return fmt.Errorf("%w: empty calendar name", calerr.ErrInvalidFormat)
	}
	offset, err := ResolveZone(zone)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cals[name]; ok {
		return fmt.Errorf("%w: %q", calerr.ErrDuplicateCalendar, name)
	}
	s.cals[name] = &entry{cal: calendar.New(), zone: zone, offset: offset}
	return nil
}

// UseCalendar makes name the active calendar.
func (s *Suite) UseCalendar(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookupLocked(name); err != nil {
		return err
	}
	s.active = name
	return nil
}

// Active returns the calendar in use.
func (s *Suite) Active() (*calendar.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.activeLocked()
	if err != nil {
		return nil, err
	}
	return e.cal, nil
}

// ActiveName returns the name of the calendar in use.
func (s *Suite) ActiveName() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.activeLocked(); err != nil {
		return "", err
	}
	return s.active, nil
}

// Calendar returns the calendar called name.
func (s *Suite) Calendar(name string) (*calendar.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.lookupLocked(name)
	if err != nil {
		return nil, err
	}
	return e.cal, nil
}

// Offset returns the standard UTC offset in minutes of the calendar called
// name.
func (s *Suite) Offset(name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.lookupLocked(name)
	if err != nil {
		return 0, err
	}
	return e.offset, nil
}

// Names returns the calendar names in sorted order.
func (s *Suite) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.cals))
	for name := range s.cals {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// List describes every calendar, sorted by name.
func (s *Suite) List() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Info, 0, len(s.cals))
	for name, e := range s.cals {
		out = append(out, Info{
			Name:   name,
			Zone:   e.zone,
			Offset: e.offset,
			Active: name == s.active,
			Events: e.cal.Len(),
		})
	}
	slices.SortFunc(out, func(a, b Info) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

// EditCalendar renames a calendar (prop "name") or moves it to another zone
// (prop "timezone"). A renamed active calendar stays active.
func (s *Suite) EditCalendar(name, prop, value string) error {
	switch prop {
	case "name":
		if value == "" {
			return fmt.Errorf("%w: empty calendar name", calerr.ErrInvalidFormat)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		e, err := s.lookupLocked(name)
		if err != nil {
			return err
		}
		if value == name {
			return nil
		}
		if _, taken := s.cals[value]; taken {
			return fmt.Errorf("%w: %q", calerr.ErrDuplicateCalendar, value)
		}
		delete(s.cals, name)
		s.cals[value] = e
		if s.active == name {
			s.active = value
		}
		return nil

	case "timezone":
		offset, err := ResolveZone(value)
		if err != nil {
			return err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		e, err := s.lookupLocked(name)
		if err != nil {
			return err
		}
		e.zone, e.offset = value, offset
		return nil

	default:
		return fmt.Errorf("%w: calendar property %q, want name or timezone", calerr.ErrInvalidProperty, prop)
	}
}

// RemoveCalendar drops a calendar and its events. Removing the active
// calendar leaves the suite with none in use.
func (s *Suite) RemoveCalendar(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookupLocked(name); err != nil {
		return err
	}
	delete(s.cals, name)
	if s.active == name {
		s.active = ""
	}
	return nil
}

func (s *Suite) lookupLocked(name string) (*entry, error) {
	e, ok := s.cals[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", calerr.ErrNoSuchCalendar, name)
	}
	return e, nil
}

func (s *Suite) activeLocked() (*entry, error) {
	if s.active == "" {
		return nil, calerr.ErrNoActiveCalendar
	}
	return s.lookupLocked(s.active)
}
