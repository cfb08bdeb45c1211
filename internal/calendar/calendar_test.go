package calendar

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calsuite/internal/calerr"
	"calsuite/internal/date"
	"calsuite/internal/event"
	"calsuite/internal/model"
)

// course returns a calendar holding a lecture on 2025-06-12 and a weekday
// exercise series for four weeks from Monday 2025-06-23.
func course(t *testing.T) *Calendar {
	t.Helper()
	c := New()
	require.NoError(t, c.CreateSingleEvent("OOD Lecture", "2025-06-12T09:50", "2025-06-12T11:30"))
	require.NoError(t, c.CreateSeriesRepeat("Exercise", "2025-06-23T07:00", "2025-07-14T09:00", "MTWRF", 4))
	return c
}

func summary(occs []model.Occurrence) []string {
	out := make([]string, 0, len(occs))
	for _, o := range occs {
		out = append(out, fmt.Sprintf("%s@%s", o.Subject, o.Start))
	}
	return out
}

func subjects(c *Calendar) []string {
	var out []string
	for _, e := range c.Events() {
		out = append(out, e.First().Subject)
	}
	return out
}

func TestCreate_SingleAndSeries(t *testing.T) {
	c := course(t)

	require.Equal(t, 2, c.Len())
	events := c.Events()
	assert.False(t, events[0].IsSeries())
	assert.True(t, events[1].IsSeries())
	assert.Len(t, events[1].Occurrences(), 20)
	assert.Equal(t, "2025-06-23T09:00", events[1].First().End.String(), "series end takes only the clock")
}

func TestCreate_DuplicateIsNoop(t *testing.T) {
	c := course(t)

	require.NoError(t, c.CreateSingleEvent("OOD Lecture", "2025-06-12T09:50", "2025-06-12T11:30"))
	require.NoError(t, c.CreateSeriesRepeat("Exercise", "2025-06-23T07:00", "2025-06-23T09:00", "MTWRF", 4))
	assert.Equal(t, 2, c.Len())

	s, err := event.NewSingle(model.Occurrence{
		Subject: "OOD Lecture",
		Start:   date.Must(date.ParseDateTime("2025-06-12T09:50")),
		End:     date.Must(date.ParseDateTime("2025-06-12T11:30")),
	})
	require.NoError(t, err)
	assert.False(t, c.AddEvent(s))
}

func TestCreate_SeriesUntilInclusive(t *testing.T) {
	c := New()
	require.NoError(t, c.CreateSeriesUntil("homework", "2025-07-08T17:00", "2025-07-31T19:00", "MTWR", "2025-07-31"))

	occs := c.Occurrences()
	require.Len(t, occs, 15)
	assert.Equal(t, "2025-07-08T17:00", occs[0].Start.String())
	assert.Equal(t, "2025-07-31T19:00", occs[len(occs)-1].End.String())
}

func TestCreate_AllDaySeries(t *testing.T) {
	c := New()
	require.NoError(t, c.CreateAllDaySeriesRepeat("Meeting", "2025-08-01", "FSU", 2))
	require.NoError(t, c.CreateAllDaySeriesUntil("running", "2025-01-01", "MWR", "2025-02-20"))

	assert.Equal(t, []string{"running", "Meeting"}, subjects(c), "series are sorted by start date")

	meeting := c.Events()[1].Occurrences()
	require.Len(t, meeting, 6)
	for _, o := range meeting {
		assert.True(t, o.AllDay)
		assert.Equal(t, "08:00", o.Start.Clock.String())
		assert.Equal(t, "17:00", o.End.Clock.String())
	}
}

func TestCreate_Errors(t *testing.T) {
	c := New()

	tests := []struct {
		name string
		err  error
		call func() error
	}{
		{"bad datetime", calerr.ErrInvalidFormat, func() error {
			return c.CreateSingleEvent("x", "2025/06/12T09:50", "2025-06-12T11:30")
		}},
		{"invalid calendar date", calerr.ErrInvalidDate, func() error {
			return c.CreateAllDayEvent("x", "2025-02-29")
		}},
		{"end before start", calerr.ErrInvalidRange, func() error {
			return c.CreateSingleEvent("x", "2025-06-12T11:30", "2025-06-12T09:50")
		}},
		{"series clock inverted", calerr.ErrInvalidRange, func() error {
			return c.CreateSeriesRepeat("x", "2025-06-23T10:00", "2025-07-14T09:00", "M", 2)
		}},
		{"zero repeats", calerr.ErrInvalidRecurrence, func() error {
			return c.CreateSeriesRepeat("x", "2025-06-23T07:00", "2025-06-23T09:00", "M", 0)
		}},
		{"empty weekdays", calerr.ErrInvalidRecurrence, func() error {
			return c.CreateAllDaySeriesRepeat("x", "2025-06-23", "", 2)
		}},
		{"unknown weekday", calerr.ErrInvalidFormat, func() error {
			return c.CreateAllDaySeriesRepeat("x", "2025-06-23", "MX", 2)
		}},
		{"stop before start", calerr.ErrInvalidRange, func() error {
			return c.CreateAllDaySeriesUntil("x", "2025-06-23", "M", "2025-06-01")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.call(), tt.err)
		})
	}
	assert.Zero(t, c.Len(), "failed creates leave the calendar empty")
}

func TestEventsOn(t *testing.T) {
	c := course(t)

	occs, err := c.EventsOn("2025-06-24")
	require.NoError(t, err)
	assert.Equal(t, []string{"Exercise@2025-06-24T07:00"}, summary(occs))

	occs, err = c.EventsOn("2025-06-28")
	require.NoError(t, err)
	assert.Empty(t, occs)

	_, err = c.EventsOn("June 24")
	require.ErrorIs(t, err, calerr.ErrInvalidFormat)
}

func TestEventsInRange(t *testing.T) {
	c := course(t)

	occs, err := c.EventsInRange("2025-06-12T09:50", "2025-06-25T09:00")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"OOD Lecture@2025-06-12T09:50",
		"Exercise@2025-06-23T07:00",
		"Exercise@2025-06-24T07:00",
		"Exercise@2025-06-25T07:00",
	}, summary(occs))
}

func TestEventsInRange_AllDaySeries(t *testing.T) {
	c := New()
	require.NoError(t, c.CreateAllDaySeriesUntil("running", "2025-01-01", "MWR", "2025-02-20"))

	occs, err := c.EventsInRange("2025-01-01T01:00", "2025-01-07T18:00")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"running@2025-01-01T08:00",
		"running@2025-01-02T08:00",
		"running@2025-01-06T08:00",
	}, summary(occs))
}

func TestEventsInRange_Trimming(t *testing.T) {
	c := New()
	require.NoError(t, c.CreateSingleEvent("early", "2025-05-08T07:00", "2025-05-08T08:00"))
	require.NoError(t, c.CreateSingleEvent("late", "2025-05-09T20:00", "2025-05-09T21:00"))
	require.NoError(t, c.CreateSingleEvent("middle", "2025-05-08T12:00", "2025-05-09T09:00"))

	occs, err := c.EventsInRange("2025-05-08T09:00", "2025-05-09T18:00")
	require.NoError(t, err)
	assert.Equal(t, []string{"middle@2025-05-08T12:00"}, summary(occs), "multi-day events are reported once")

	occs, err = c.EventsInRange("2025-05-08T08:00", "2025-05-09T20:00")
	require.NoError(t, err)
	assert.Len(t, occs, 3, "boundaries are inclusive")

	_, err = c.EventsInRange("2025-05-09T00:00", "2025-05-08T00:00")
	require.ErrorIs(t, err, calerr.ErrInvalidRange)
}

func TestShowStatus(t *testing.T) {
	c := course(t)
	require.NoError(t, c.CreateAllDaySeriesUntil("running", "2025-01-01", "MWR", "2025-02-20"))
	require.NoError(t, c.CreateAllDayEvent("Meeting", "2025-12-04"))

	tests := []struct {
		at   string
		busy bool
	}{
		{"2025-06-12T09:50", true},
		{"2025-06-12T11:31", false},
		{"2025-11-20T07:50", false},
		{"2025-01-01T08:00", true},
		{"2025-01-02T08:00", true},
		{"2025-01-03T08:00", false},
		{"2025-12-04T08:00", true},
		{"2025-06-24T08:59", true},
	}
	for _, tt := range tests {
		t.Run(tt.at, func(t *testing.T) {
			busy, err := c.ShowStatus(tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.busy, busy)
		})
	}

	_, err := c.ShowStatus("2025-06-12 09:50")
	require.ErrorIs(t, err, calerr.ErrInvalidFormat)
}

func TestEditEventProperty_DetachesOccurrence(t *testing.T) {
	c := course(t)

	require.NoError(t, c.EditEventProperty("subject", "Exercise", "2025-06-24T07:00", "", "Review"))
	require.Equal(t, 3, c.Len())

	occs, err := c.EventsOn("2025-06-24")
	require.NoError(t, err)
	assert.Equal(t, []string{"Review@2025-06-24T07:00"}, summary(occs))

	series, err := c.Find(event.Match{Subject: "Exercise", Start: date.Must(date.ParseDateTime("2025-06-23T07:00")), AnyEnd: true})
	require.NoError(t, err)
	assert.Len(t, series.Occurrences(), 19)
}

func TestEditEventProperty_WithEnd(t *testing.T) {
	c := course(t)

	err := c.EditEventProperty("location", "OOD Lecture", "2025-06-12T09:50", "2025-06-12T11:00", "room 1")
	require.ErrorIs(t, err, calerr.ErrEventNotFound)

	require.NoError(t, c.EditEventProperty("location", "OOD Lecture", "2025-06-12T09:50", "2025-06-12T11:30", "room 1"))
	assert.Equal(t, "room 1", c.Events()[0].First().Location)
}

func TestEditEventsProperty_SplitsSeries(t *testing.T) {
	c := course(t)

	require.NoError(t, c.EditEventsProperty("location", "Exercise", "2025-06-30T07:00", "online"))
	require.Equal(t, 3, c.Len())

	events := c.Events()
	assert.Equal(t, []string{"OOD Lecture", "Exercise", "Exercise"}, subjects(c))
	assert.Len(t, events[1].Occurrences(), 5)
	assert.Empty(t, events[1].First().Location)
	assert.Len(t, events[2].Occurrences(), 15)
	assert.Equal(t, "online", events[2].First().Location)
	assert.Equal(t, "2025-06-30", events[2].First().Start.Date.String())
}

func TestEditSeriesProperty(t *testing.T) {
	c := course(t)

	require.NoError(t, c.EditSeriesProperty("status", "Exercise", "2025-07-01T07:00", "private"))
	for _, o := range c.Events()[1].Occurrences() {
		assert.Equal(t, model.Private, o.Status)
	}

	require.NoError(t, c.EditSeriesProperty("start", "Exercise", "2025-07-01T07:00", "2025-07-01T07:30"))
	occs, err := c.EventsOn("2025-07-18")
	require.NoError(t, err)
	assert.Equal(t, []string{"Exercise@2025-07-18T07:30"}, summary(occs))
}

func TestEdit_FailureLeavesCalendarUnchanged(t *testing.T) {
	c := course(t)
	before := c.Occurrences()

	err := c.EditEventProperty("end", "OOD Lecture", "2025-06-12T09:50", "", "2025-06-12T09:00")
	require.ErrorIs(t, err, calerr.ErrInvalidRange)

	err = c.EditSeriesProperty("end", "Exercise", "2025-06-23T07:00", "2025-06-23T06:00")
	require.ErrorIs(t, err, calerr.ErrInvalidRange)

	err = c.EditEventsProperty("participants", "Exercise", "2025-06-23T07:00", "bob")
	require.ErrorIs(t, err, calerr.ErrInvalidProperty)

	err = c.EditEventProperty("subject", "Exercise", "2025-06-28T07:00", "", "x")
	require.ErrorIs(t, err, calerr.ErrEventNotFound)

	assert.Equal(t, before, c.Occurrences())
}

func TestEdit_CollisionLeavesCalendarUnchanged(t *testing.T) {
	tests := []struct {
		name string
		edit func(c *Calendar) error
		err  error
	}{
		{"detached occurrence", func(c *Calendar) error {
			return c.EditEventProperty("subject", "Exercise", "2025-06-24T07:00", "", "Review")
		}, calerr.ErrDuplicateEvent},
		{"following occurrences", func(c *Calendar) error {
			return c.EditEventsProperty("subject", "Exercise", "2025-06-24T07:00", "Review")
		}, calerr.ErrDuplicateEvent},
		{"renamed single", func(c *Calendar) error {
			return c.EditEventProperty("subject", "Reading", "2025-06-12T09:50", "", "OOD Lecture")
		}, calerr.ErrDuplicateEvent},
		{"renamed series", func(c *Calendar) error {
			return c.EditSeriesProperty("subject", "Drill", "2025-06-12T09:50", "OOD Lecture")
		}, calerr.ErrDuplicateEvent},
		{"single kept in place", func(c *Calendar) error {
			return c.EditEventProperty("start", "Review", "2025-06-24T07:00", "", "2025-06-24T07:00")
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := course(t)
			require.NoError(t, c.CreateSingleEvent("Review", "2025-06-24T07:00", "2025-06-24T09:00"))
			require.NoError(t, c.CreateSingleEvent("Reading", "2025-06-12T09:50", "2025-06-12T11:30"))
			require.NoError(t, c.CreateSeriesRepeat("Drill", "2025-06-12T09:50", "2025-06-12T11:30", "R", 1))
			before := c.Occurrences()

			err := tt.edit(c)
			if tt.err == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.err)
			}
			assert.Equal(t, before, c.Occurrences())
			assert.Equal(t, 5, c.Len())
		})
	}
}

func TestParseScope(t *testing.T) {
	for _, scope := range []Scope{ScopeEvent, ScopeFollowing, ScopeSeries} {
		got, err := ParseScope(scope.String())
		require.NoError(t, err)
		assert.Equal(t, scope, got)
	}
	_, err := ParseScope("all")
	require.ErrorIs(t, err, calerr.ErrInvalidFormat)
}

func TestRemoveEvent(t *testing.T) {
	c := course(t)
	m := event.Match{Subject: "OOD Lecture", Start: date.Must(date.ParseDateTime("2025-06-12T09:50")), AnyEnd: true}

	require.NoError(t, c.RemoveEvent(m))
	assert.Equal(t, []string{"Exercise"}, subjects(c))
	require.ErrorIs(t, c.RemoveEvent(m), calerr.ErrEventNotFound)

	require.ErrorIs(t, c.RemoveEventAt("Exercise", "2025-06-23 07:00", ""), calerr.ErrInvalidFormat)
	require.NoError(t, c.RemoveEventAt("Exercise", "2025-07-01T07:00", ""))
	assert.Zero(t, c.Len())
}

func TestFirstTenFrom(t *testing.T) {
	c := course(t)
	require.NoError(t, c.CreateAllDayEvent("Kickoff", "2025-06-01"))

	occs, err := c.FirstTenFrom("2025-06-12")
	require.NoError(t, err)
	require.Len(t, occs, 10)
	assert.Equal(t, "OOD Lecture@2025-06-12T09:50", summary(occs)[0])
	assert.Equal(t, "Exercise@2025-07-03T07:00", summary(occs)[9])

	assert.Len(t, c.Upcoming(date.Must(date.ParseDate("2025-07-18")), 0), 1)
}

func TestSortByStartDate(t *testing.T) {
	c := New()
	require.NoError(t, c.CreateAllDayEvent("b", "2025-03-02"))
	require.NoError(t, c.CreateAllDayEvent("a", "2025-03-01"))
	require.NoError(t, c.CreateAllDayEvent("c", "2025-03-02"))

	c.SortByStartDate()
	assert.Equal(t, []string{"a", "b", "c"}, subjects(c))
}

func TestConcurrentAccess(t *testing.T) {
	c := course(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = c.CreateAllDayEvent(fmt.Sprintf("e%d", i), "2025-06-15")
		}(i)
		go func() {
			defer wg.Done()
			_, _ = c.EventsInRange("2025-06-01T00:00", "2025-07-31T23:59")
			_, _ = c.ShowStatus("2025-06-15T09:00")
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, c.Len())
}
