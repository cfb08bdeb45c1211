package suite

import (
	"fmt"

	"calsuite/internal/calendar"
	"calsuite/internal/calerr"
	"calsuite/internal/date"
	"calsuite/internal/event"
	"calsuite/internal/model"
)

// copyPlan is everything a copy needs, captured under the suite lock.
type copyPlan struct {
	source *calendar.Calendar
	target *calendar.Calendar
	shift  int
}

func (s *Suite) plan(target string) (copyPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, err := s.activeLocked()
	if err != nil {
		return copyPlan{}, err
	}
	dst, err := s.lookupLocked(target)
	if err != nil {
		return copyPlan{}, err
	}
	return copyPlan{source: src.cal, target: dst.cal, shift: hourShift(src.offset, dst.offset)}, nil
}

// CopySingleEvent copies the occurrence of subject at sourceStart from the
// active calendar into target. The copy lands on newStart's date, keeps its
// time of day and duration, and is then shifted by the zone difference.
func (s *Suite) CopySingleEvent(subject, sourceStart, target, newStart string) error {
	at, err := date.ParseDateTime(sourceStart)
	if err != nil {
		return err
	}
	to, err := date.ParseDateTime(newStart)
	if err != nil {
		return err
	}
	p, err := s.plan(target)
	if err != nil {
		return err
	}

	occs, err := p.source.Between(at, at)
	if err != nil {
		return err
	}
	for _, o := range occs {
		if o.Subject != subject {
			continue
		}
		return p.insert([]model.Occurrence{o}, o.Start.Date.DaysUntil(to.Date))
	}
	return fmt.Errorf("%w: %q at %s", calerr.ErrEventNotFound, subject, at)
}

// CopyDayEvents copies every occurrence on day in the active calendar to
// targetDay in target.
func (s *Suite) CopyDayEvents(day, target, targetDay string) error {
	from, err := date.ParseDate(day)
	if err != nil {
		return err
	}
	to, err := date.ParseDate(targetDay)
	if err != nil {
		return err
	}
	p, err := s.plan(target)
	if err != nil {
		return err
	}
	return p.insert(p.source.On(from), from.DaysUntil(to))
}

// CopyEventsRange copies every occurrence between the start of start and
// the end of end into target, moving the block so it begins on targetStart.
// Each occurrence keeps its day offset within the range.
func (s *Suite) CopyEventsRange(start, end, target, targetStart string) error {
	first, err := date.ParseDate(start)
	if err != nil {
		return err
	}
	last, err := date.ParseDate(end)
	if err != nil {
		return err
	}
	to, err := date.ParseDate(targetStart)
	if err != nil {
		return err
	}
	p, err := s.plan(target)
	if err != nil {
		return err
	}

	occs, err := p.source.Between(date.At(first, date.MustClock(0, 0)), date.At(last, date.MustClock(23, 59)))
	if err != nil {
		return err
	}
	return p.insert(occs, first.DaysUntil(to))
}

// insert builds every copy before adding any, so a copy that cannot be
// represented leaves the target untouched. Copies are always Single events.
func (p copyPlan) insert(occs []model.Occurrence, days int) error {
	copies := make([]event.Event, 0, len(occs))
	for _, o := range occs {
		moved, err := relocate(o, days, p.shift)
		if err != nil {
			return err
		}
		ev, err := event.NewSingle(moved)
		if err != nil {
			return err
		}
		copies = append(copies, ev)
	}
	for _, ev := range copies {
		p.target.AddEvent(ev)
	}
	return nil
}

func relocate(o model.Occurrence, days, minutes int) (model.Occurrence, error) {
	start, err := o.Start.AddDays(days)
	if err != nil {
		return model.Occurrence{}, err
	}
	end, err := o.End.AddDays(days)
	if err != nil {
		return model.Occurrence{}, err
	}
	o.Start, o.End = start, end
	o.EventID = ""
	return o.Shift(minutes)
}
