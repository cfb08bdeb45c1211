package event

import (
	"fmt"

	"calsuite/internal/calerr"
	"calsuite/internal/date"
	"calsuite/internal/model"
)

// Single is an event with exactly one occurrence, which may span several
// days.
type Single struct {
	id  string
	occ model.Occurrence
}

// NewSingle creates a Single from o under a fresh ID. It fails with
// ErrInvalidRange when o ends before it starts.
func NewSingle(o model.Occurrence) (*Single, error) {
	return newSingle(newID(), o)
}

func newSingle(id string, o model.Occurrence) (*Single, error) {
	if o.End.Before(o.Start) {
		return nil, fmt.Errorf("%w: end %s before start %s", calerr.ErrInvalidRange, o.End, o.Start)
	}
	o.EventID = id
	return &Single{id: id, occ: o}, nil
}

// AllDayOccurrence is the default occurrence for subject on d: 08:00 to
// 17:00, public.
func AllDayOccurrence(subject string, d date.Date) model.Occurrence {
	return model.Occurrence{
		Subject: subject,
		AllDay:  true,
		Start:   date.At(d, AllDayStart),
		End:     date.At(d, AllDayEnd),
	}
}

func (s *Single) ID() string                      { return s.id }
func (s *Single) IsSeries() bool                  { return false }
func (s *Single) First() model.Occurrence         { return s.occ }
func (s *Single) Occurrences() []model.Occurrence { return []model.Occurrence{s.occ} }

func (s *Single) Matches(m Match) bool {
	return m.MatchOccurrence(s.occ)
}

func (s *Single) OccursOn(d date.Date) (model.Occurrence, bool) {
	if s.occ.Covers(d) {
		return s.occ, true
	}
	return model.Occurrence{}, false
}

// IsBusyAt is true from the start through the end inclusive, so every day
// strictly inside a multi-day span is busy at any time.
func (s *Single) IsBusyAt(dt date.DateTime) bool {
	return s.occ.Contains(dt)
}

func (s *Single) EditEvent(_ date.DateTime, e Edit) (Event, Event, error) {
	edited, err := s.EditSeries(e)
	if err != nil {
		return nil, nil, err
	}
	return edited, nil, nil
}

func (s *Single) EditFollowing(at date.DateTime, e Edit) (Event, Event, error) {
	return s.EditEvent(at, e)
}

func (s *Single) EditSeries(e Edit) (Event, error) {
	o, err := e.applyOccurrence(s.occ)
	if err != nil {
		return nil, err
	}
	return newSingle(s.id, o)
}

func (s *Single) String() string {
	return s.occ.String()
}
