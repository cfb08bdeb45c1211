package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calsuite/internal/config"
	"calsuite/internal/export"
	"calsuite/internal/suite"
)

func newTestServer(t *testing.T) (*Server, *suite.Suite) {
	t.Helper()

	s := suite.New()
	cal, err := s.Active()
	require.NoError(t, err)
	require.NoError(t, cal.CreateSingleEvent("Lecture", "2025-06-12T09:50", "2025-06-12T11:30"))
	require.NoError(t, cal.CreateSeriesRepeat("Exercise", "2025-06-23T07:00", "2025-06-23T09:00", "MTWRF", 4))
	require.NoError(t, s.CreateCalendar("Paris", "Europe/Paris"))

	srv := NewServer(config.DefaultConfig(), s, export.New(s, t.TempDir()))
	return srv, s
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func subjects(resp eventsResponse) []string {
	var out []string
	for _, o := range resp.Occurrences {
		out = append(out, o.Subject+" "+o.Start)
	}
	return out
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestBasicAuth(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.cfg.BasicAuth = &config.BasicAuthConfig{Username: "me", Password: "secret"}
	h := srv.Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)

	rec := do(t, h, http.MethodGet, "/api/calendars", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodGet, "/api/calendars", nil)
	req.SetBasicAuth("me", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/calendars", nil)
	req.SetBasicAuth("me", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCalendars(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv.Handler(), http.MethodGet, "/api/calendars", "")
	require.Equal(t, http.StatusOK, rec.Code)

	infos := decode[[]suite.Info](t, rec)
	require.Len(t, infos, 2)
	assert.Equal(t, suite.Info{Name: "Default", Zone: "America/New_York", Offset: -300, Active: true, Events: 2}, infos[0])
	assert.Equal(t, "Paris", infos[1].Name)
	assert.False(t, infos[1].Active)
}

func TestEvents(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/events?date=2025-06-12", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[eventsResponse](t, rec)
	assert.Equal(t, "Default", resp.Calendar)
	require.Len(t, resp.Occurrences, 1)
	assert.Equal(t, occurrenceDTO{
		EventID: resp.Occurrences[0].EventID,
		Subject: "Lecture",
		Status:  "public",
		Start:   "2025-06-12T09:50",
		End:     "2025-06-12T11:30",
	}, resp.Occurrences[0])

	rec = do(t, h, http.MethodGet, "/api/events?from=2025-06-12T11:00&to=2025-06-24T07:00", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{
		"Lecture 2025-06-12T09:50",
		"Exercise 2025-06-23T07:00",
		"Exercise 2025-06-24T07:00",
	}, subjects(decode[eventsResponse](t, rec)))

	rec = do(t, h, http.MethodGet, "/api/events?calendar=Paris&date=2025-06-12", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[eventsResponse](t, rec).Occurrences)
}

func TestEvents_Errors(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	tests := []struct {
		target string
		code   int
	}{
		{"/api/events", http.StatusBadRequest},
		{"/api/events?date=06/12/2025", http.StatusBadRequest},
		{"/api/events?date=2025-02-30", http.StatusBadRequest},
		{"/api/events?from=2025-06-13T00:00&to=2025-06-12T00:00", http.StatusBadRequest},
		{"/api/events?calendar=Nowhere&date=2025-06-12", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.target, "")
			assert.Equal(t, tt.code, rec.Code)
			assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/status?at=2025-06-12T10:00", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, statusResponse{Calendar: "Default", At: "2025-06-12T10:00", Busy: true}, decode[statusResponse](t, rec))

	rec = do(t, h, http.MethodGet, "/api/status?at=2025-06-12T12:00", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[statusResponse](t, rec).Busy)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/status", "").Code)
}

func TestUpcoming(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.now = func() time.Time { return time.Date(2025, 6, 24, 12, 0, 0, 0, time.UTC) }
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/upcoming?from=2025-06-01&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Lecture 2025-06-12T09:50", "Exercise 2025-06-23T07:00"}, subjects(decode[eventsResponse](t, rec)))

	rec = do(t, h, http.MethodGet, "/api/upcoming", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[eventsResponse](t, rec)
	require.Len(t, resp.Occurrences, 10)
	assert.Equal(t, "2025-06-24T07:00", resp.Occurrences[0].Start)

	rec = do(t, h, http.MethodGet, "/api/upcoming?from=2025-06-01&limit=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[eventsResponse](t, rec).Occurrences, 21)
}

func TestCreateEvent(t *testing.T) {
	srv, s := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/events?calendar=Paris",
		`{"subject":"Museum","start":"2025-06-14T10:00","end":"2025-06-14T12:00","location":"Louvre"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	cal, err := s.Calendar("Paris")
	require.NoError(t, err)
	occs, err := cal.EventsOn("2025-06-14")
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, "Louvre", occs[0].Location)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/events", `{"subject":`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/events",
		`{"subject":"x","start":"2025-06-14T10:00","end":"2025-06-14T09:00"}`).Code)
}

func TestCopy(t *testing.T) {
	srv, s := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/copy",
		`{"subject":"Lecture","start":"2025-06-12T09:50","target":"Paris","to":"2025-06-20T00:00"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	cal, err := s.Calendar("Paris")
	require.NoError(t, err)
	occs, err := cal.EventsOn("2025-06-20")
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, "2025-06-20T15:50", occs[0].Start.String())

	rec = do(t, h, http.MethodPost, "/api/copy", `{"day":"2025-06-23","target":"Paris","to":"2025-07-01"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	occs, err = cal.EventsOn("2025-07-01")
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, "2025-07-01T13:00", occs[0].Start.String())

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/copy",
		`{"day":"2025-06-23","target":"Nowhere","to":"2025-07-01"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/copy", `{"target":"Paris"}`).Code)
}

func TestICS(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/calendars/Default.ics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "SUMMARY:Lecture")
	assert.Equal(t, 21, strings.Count(rec.Body.String(), "BEGIN:VEVENT"))

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/calendars/Default", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/calendars/Nowhere.ics", "").Code)
}

func TestStatusFor(t *testing.T) {
	srv, s := newTestServer(t)
	require.NoError(t, s.RemoveCalendar("Default"))

	rec := do(t, srv.Handler(), http.MethodGet, "/api/events?date=2025-06-12", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "no active calendar")
}

func TestCalendarManagement(t *testing.T) {
	srv, s := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/calendars", `{"name":"Work","timezone":"Asia/Tokyo"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, suite.Info{Name: "Work", Zone: "Asia/Tokyo", Offset: 540}, decode[suite.Info](t, rec))

	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/calendars", `{"name":"Work","timezone":"Asia/Tokyo"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/calendars", `{"name":"Moon","timezone":"Tokyo"}`).Code)

	rec = do(t, h, http.MethodPatch, "/api/calendars/Work", `{"property":"timezone","value":"America/Chicago"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, -360, decode[suite.Info](t, rec).Offset)

	rec = do(t, h, http.MethodPatch, "/api/calendars/Work", `{"property":"name","value":"Office"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Office", decode[suite.Info](t, rec).Name)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPatch, "/api/calendars/Office", `{"property":"color","value":"red"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPatch, "/api/calendars/Work", `{"property":"name","value":"x"}`).Code)

	rec = do(t, h, http.MethodPut, "/api/active", `{"name":"Office"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[suite.Info](t, rec).Active)
	name, err := s.ActiveName()
	require.NoError(t, err)
	assert.Equal(t, "Office", name)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPut, "/api/active", `{"name":"Nowhere"}`).Code)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/calendars/Office", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/calendars/Office", "").Code)
	assert.Equal(t, []string{"Default", "Paris"}, s.Names())
}

func TestCopyFollowsActiveCalendar(t *testing.T) {
	srv, s := newTestServer(t)
	h := srv.Handler()

	paris, err := s.Calendar("Paris")
	require.NoError(t, err)
	require.NoError(t, paris.CreateSingleEvent("Museum", "2025-06-14T10:00", "2025-06-14T12:00"))

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/active", `{"name":"Paris"}`).Code)
	rec := do(t, h, http.MethodPost, "/api/copy", `{"day":"2025-06-14","target":"Default","to":"2025-06-15"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/events?calendar=Default&date=2025-06-15", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Museum 2025-06-15T04:00"}, subjects(decode[eventsResponse](t, rec)))
}

func TestEditEvent(t *testing.T) {
	srv, s := newTestServer(t)
	h := srv.Handler()
	cal, err := s.Active()
	require.NoError(t, err)

	rec := do(t, h, http.MethodPost, "/api/events/edit",
		`{"scope":"event","property":"subject","subject":"Exercise","start":"2025-06-24T07:00","value":"Review"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 3, cal.Len())

	rec = do(t, h, http.MethodPost, "/api/events/edit",
		`{"scope":"events","property":"location","subject":"Exercise","start":"2025-07-07T07:00","value":"online"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 4, cal.Len())

	rec = do(t, h, http.MethodPost, "/api/events/edit",
		`{"scope":"series","property":"status","subject":"Exercise","start":"2025-06-23T07:00","value":"private"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	occs, err := cal.EventsOn("2025-06-23")
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, "private", occs[0].Status.String())

	tests := []struct {
		body string
		code int
	}{
		{`{"scope":"all","property":"subject","subject":"Lecture","start":"2025-06-12T09:50","value":"x"}`, http.StatusBadRequest},
		{`{"scope":"event","property":"color","subject":"Lecture","start":"2025-06-12T09:50","value":"x"}`, http.StatusBadRequest},
		{`{"scope":"event","property":"subject","subject":"Lecture","start":"2025-06-13T09:50","value":"x"}`, http.StatusNotFound},
		{`{"scope":"event","property":"subject","subject":"Exercise","start":"2025-06-25T07:00","value":"Review"}`, http.StatusNoContent},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, do(t, h, http.MethodPost, "/api/events/edit", tt.body).Code, tt.body)
	}
}

func TestEditEvent_Collision(t *testing.T) {
	srv, s := newTestServer(t)
	h := srv.Handler()
	cal, err := s.Active()
	require.NoError(t, err)
	require.NoError(t, cal.CreateSingleEvent("Review", "2025-06-24T07:00", "2025-06-24T09:00"))
	before := cal.Occurrences()

	rec := do(t, h, http.MethodPost, "/api/events/edit",
		`{"scope":"event","property":"subject","subject":"Exercise","start":"2025-06-24T07:00","value":"Review"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, before, cal.Occurrences())
}

func TestRemoveEvent(t *testing.T) {
	srv, s := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodDelete, "/api/events?subject=Lecture&start=2025-06-12T09:50", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	cal, err := s.Active()
	require.NoError(t, err)
	assert.Equal(t, 1, cal.Len())

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/events?subject=Lecture&start=2025-06-12T09:50", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodDelete, "/api/events?subject=Lecture", "").Code)
}
