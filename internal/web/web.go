package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"calsuite/internal/bootstrap"
	"calsuite/internal/calendar"
	"calsuite/internal/calerr"
	"calsuite/internal/config"
	"calsuite/internal/date"
	"calsuite/internal/export"
	appLog "calsuite/internal/log"
	"calsuite/internal/model"
	"calsuite/internal/suite"
)

// Server provides the HTTP API over a calendar suite.
type Server struct {
	cfg      *config.Config
	suite    *suite.Suite
	exporter *export.Exporter
	mux      *http.ServeMux
	now      func() time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, s *suite.Suite, exp *export.Exporter) *Server {
	srv := &Server{
		cfg:      cfg,
		suite:    s,
		exporter: exp,
		mux:      http.NewServeMux(),
		now:      time.Now,
	}
	srv.registerRoutes()
	return srv
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials count as disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calsuite", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves the API on cfg.Listen until ctx is canceled, then shuts
// down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, s *suite.Suite, exp *export.Exporter) error {
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           NewServer(cfg, s, exp).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/calendars", s.handleCalendars)
	s.mux.HandleFunc("POST /api/calendars", s.handleCreateCalendar)
	s.mux.HandleFunc("PATCH /api/calendars/{name}", s.handleEditCalendar)
	s.mux.HandleFunc("DELETE /api/calendars/{name}", s.handleRemoveCalendar)
	s.mux.HandleFunc("PUT /api/active", s.handleUseCalendar)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	s.mux.HandleFunc("DELETE /api/events", s.handleRemoveEvent)
	s.mux.HandleFunc("POST /api/events/edit", s.handleEditEvent)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/upcoming", s.handleUpcoming)
	s.mux.HandleFunc("POST /api/copy", s.handleCopy)
	s.mux.HandleFunc("GET /calendars/{file}", s.handleICS)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// occurrenceDTO is a JSON-friendly view of occurrences.
type occurrenceDTO struct {
	EventID     string `json:"event_id,omitempty"`
	Subject     string `json:"subject"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Status      string `json:"status"`
	AllDay      bool   `json:"all_day"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

// eventsResponse is the JSON response shape for /api/events and
// /api/upcoming.
type eventsResponse struct {
	Calendar    string          `json:"calendar"`
	Occurrences []occurrenceDTO `json:"occurrences"`
}

type statusResponse struct {
	Calendar string `json:"calendar"`
	At       string `json:"at"`
	Busy     bool   `json:"busy"`
}

func toDTOs(occs []model.Occurrence) []occurrenceDTO {
	dtos := make([]occurrenceDTO, 0, len(occs))
	for _, o := range occs {
		dtos = append(dtos, occurrenceDTO{
			EventID:     o.EventID,
			Subject:     o.Subject,
			Description: o.Description,
			Location:    o.Location,
			Status:      o.Status.String(),
			AllDay:      o.AllDay,
			Start:       o.Start.String(),
			End:         o.End.String(),
		})
	}
	return dtos
}

func (s *Server) handleCalendars(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.suite.List())
}

type calendarRequest struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

type propertyRequest struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

// handleCreateCalendar adds an empty calendar.
//
// POST /api/calendars {"name": "Work", "timezone": "Europe/Paris"}
func (s *Server) handleCreateCalendar(w http.ResponseWriter, r *http.Request) {
	var req calendarRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.suite.CreateCalendar(req.Name, req.Timezone); err != nil {
		writeCalError(w, err)
		return
	}
	appLog.Info("api calendar created", "calendar", req.Name, "timezone", req.Timezone)
	info, _, err := s.info(req.Name)
	if err != nil {
		writeCalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// handleEditCalendar renames a calendar or changes its zone.
//
// PATCH /api/calendars/Work {"property": "timezone", "value": "Asia/Tokyo"}
func (s *Server) handleEditCalendar(w http.ResponseWriter, r *http.Request) {
	var req propertyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	name := r.PathValue("name")
	if err := s.suite.EditCalendar(name, req.Property, req.Value); err != nil {
		writeCalError(w, err)
		return
	}
	appLog.Info("api calendar edited", "calendar", name, "property", req.Property)

	if req.Property == "name" {
		name = req.Value
	}
	info, _, err := s.info(name)
	if err != nil {
		writeCalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleRemoveCalendar(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.suite.RemoveCalendar(name); err != nil {
		writeCalError(w, err)
		return
	}
	appLog.Info("api calendar removed", "calendar", name)
	w.WriteHeader(http.StatusNoContent)
}

// handleUseCalendar switches the active calendar, the source of copies and
// the default of every ?calendar= parameter.
//
// PUT /api/active {"name": "Work"}
func (s *Server) handleUseCalendar(w http.ResponseWriter, r *http.Request) {
	var req calendarRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.suite.UseCalendar(req.Name); err != nil {
		writeCalError(w, err)
		return
	}
	appLog.Info("api active calendar changed", "calendar", req.Name)
	info, _, err := s.info(req.Name)
	if err != nil {
		writeCalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// lookup resolves the ?calendar= parameter; empty means the active calendar.
func (s *Server) lookup(r *http.Request) (suite.Info, *calendar.Calendar, error) {
	name := r.URL.Query().Get("calendar")
	if name == "" {
		active, err := s.suite.ActiveName()
		if err != nil {
			return suite.Info{}, nil, err
		}
		name = active
	}
	return s.info(name)
}

func (s *Server) info(name string) (suite.Info, *calendar.Calendar, error) {
	cal, err := s.suite.Calendar(name)
	if err != nil {
		return suite.Info{}, nil, err
	}
	for _, info := range s.suite.List() {
		if info.Name == name {
			return info, cal, nil
		}
	}
	// Removed between the two lookups.
	return suite.Info{}, nil, calerr.ErrNoSuchCalendar
}

// handleEvents lists occurrences on one day or inside a range.
//
// GET /api/events?calendar=Work&date=2025-06-12
// GET /api/events?calendar=Work&from=2025-06-12T00:00&to=2025-06-14T23:59
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	info, cal, err := s.lookup(r)
	if err != nil {
		writeCalError(w, err)
		return
	}

	q := r.URL.Query()
	var occs []model.Occurrence
	switch {
	case q.Get("date") != "":
		occs, err = cal.EventsOn(q.Get("date"))
	case q.Get("from") != "" && q.Get("to") != "":
		occs, err = cal.EventsInRange(q.Get("from"), q.Get("to"))
	default:
		writeError(w, http.StatusBadRequest, "date or from/to is required")
		return
	}
	if err != nil {
		writeCalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, eventsResponse{Calendar: info.Name, Occurrences: toDTOs(occs)})
}

// handleCreateEvent adds one event described the same way as in the config
// file.
//
// POST /api/events?calendar=Work
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	info, cal, err := s.lookup(r)
	if err != nil {
		writeCalError(w, err)
		return
	}

	var ec config.EventConfig
	if !decodeBody(w, r, &ec) {
		return
	}
	if err := bootstrap.Seed(cal, ec); err != nil {
		writeCalError(w, err)
		return
	}
	appLog.Info("api event created", "calendar", info.Name, "subject", ec.Subject)
	writeJSON(w, http.StatusCreated, map[string]string{"calendar": info.Name, "subject": ec.Subject})
}

// editRequest is the body of POST /api/events/edit. Scope is "event" (one
// occurrence), "events" (it and every later one) or "series"; End narrows
// the match for "event" only.
type editRequest struct {
	Scope    string `json:"scope"`
	Property string `json:"property"`
	Subject  string `json:"subject"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Value    string `json:"value"`
}

// handleEditEvent applies one property edit.
//
// POST /api/events/edit?calendar=Work
func (s *Server) handleEditEvent(w http.ResponseWriter, r *http.Request) {
	info, cal, err := s.lookup(r)
	if err != nil {
		writeCalError(w, err)
		return
	}

	var req editRequest
	if !decodeBody(w, r, &req) {
		return
	}
	scope, err := calendar.ParseScope(req.Scope)
	if err != nil {
		writeCalError(w, err)
		return
	}

	switch scope {
	case calendar.ScopeEvent:
		err = cal.EditEventProperty(req.Property, req.Subject, req.Start, req.End, req.Value)
	case calendar.ScopeFollowing:
		err = cal.EditEventsProperty(req.Property, req.Subject, req.Start, req.Value)
	case calendar.ScopeSeries:
		err = cal.EditSeriesProperty(req.Property, req.Subject, req.Start, req.Value)
	}
	if err != nil {
		writeCalError(w, err)
		return
	}
	appLog.Info("api event edited", "calendar", info.Name, "scope", scope, "subject", req.Subject, "property", req.Property)
	w.WriteHeader(http.StatusNoContent)
}

// handleRemoveEvent deletes the event holding an occurrence.
//
// DELETE /api/events?calendar=Work&subject=Lecture&start=2025-06-12T09:50
func (s *Server) handleRemoveEvent(w http.ResponseWriter, r *http.Request) {
	info, cal, err := s.lookup(r)
	if err != nil {
		writeCalError(w, err)
		return
	}

	q := r.URL.Query()
	if err := cal.RemoveEventAt(q.Get("subject"), q.Get("start"), q.Get("end")); err != nil {
		writeCalError(w, err)
		return
	}
	appLog.Info("api event removed", "calendar", info.Name, "subject", q.Get("subject"))
	w.WriteHeader(http.StatusNoContent)
}

// handleStatus reports whether the calendar is busy at a moment.
//
// GET /api/status?calendar=Work&at=2025-06-12T10:00
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	info, cal, err := s.lookup(r)
	if err != nil {
		writeCalError(w, err)
		return
	}

	at := r.URL.Query().Get("at")
	busy, err := cal.ShowStatus(at)
	if err != nil {
		writeCalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Calendar: info.Name, At: at, Busy: busy})
}

// handleUpcoming returns the next occurrences starting on or after a date.
//
// GET /api/upcoming?calendar=Work&from=2025-06-12&limit=5
//   - from:  defaults to today in the calendar's zone
//   - limit: defaults to 10; 0 returns everything
func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	info, cal, err := s.lookup(r)
	if err != nil {
		writeCalError(w, err)
		return
	}

	q := r.URL.Query()
	var from date.Date
	if v := q.Get("from"); v != "" {
		from, err = date.ParseDate(v)
		if err != nil {
			writeCalError(w, err)
			return
		}
	} else {
		from = date.FromTime(s.now().In(resolveLocationOrLocal(info.Zone)))
	}

	limit := parseIntDefault(q.Get("limit"), 10)
	if limit < 0 {
		limit = 10
	}

	writeJSON(w, http.StatusOK, eventsResponse{Calendar: info.Name, Occurrences: toDTOs(cal.Upcoming(from, limit))})
}

// copyRequest is the body of POST /api/copy. Exactly one of the three forms
// is used, chosen by which source fields are set:
//   - subject + start:   one event
//   - day:               every event of a day
//   - start + end:       every event of a date range
type copyRequest struct {
	Subject string `json:"subject"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Day     string `json:"day"`
	Target  string `json:"target"`
	To      string `json:"to"`
}

// handleCopy copies events from the active calendar into another.
func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	var req copyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var err error
	switch {
	case req.Subject != "" && req.Start != "":
		err = s.suite.CopySingleEvent(req.Subject, req.Start, req.Target, req.To)
	case req.Day != "":
		err = s.suite.CopyDayEvents(req.Day, req.Target, req.To)
	case req.Start != "" && req.End != "":
		err = s.suite.CopyEventsRange(req.Start, req.End, req.Target, req.To)
	default:
		writeError(w, http.StatusBadRequest, "subject+start, day or start+end is required")
		return
	}
	if err != nil {
		writeCalError(w, err)
		return
	}
	appLog.Info("api copy completed", "target", req.Target, "to", req.To)
	w.WriteHeader(http.StatusNoContent)
}

// handleICS serves a live ICS rendering of one calendar.
//
// GET /calendars/Work.ics
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(r.PathValue("file"), ".ics")
	if !ok || s.exporter == nil {
		http.NotFound(w, r)
		return
	}

	info, _, err := s.info(name)
	if err != nil {
		writeCalError(w, err)
		return
	}
	body, err := s.exporter.Render(info)
	if err != nil {
		appLog.Error("ics render failed", err, "calendar", name)
		writeError(w, http.StatusInternalServerError, "failed to render calendar")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

// statusFor maps the calendar error kinds onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, calerr.ErrNoSuchCalendar),
		errors.Is(err, calerr.ErrEventNotFound),
		errors.Is(err, calerr.ErrNoActiveCalendar):
		return http.StatusNotFound
	case errors.Is(err, calerr.ErrDuplicateCalendar),
		errors.Is(err, calerr.ErrDuplicateEvent):
		return http.StatusConflict
	case errors.Is(err, calerr.ErrInvalidFormat),
		errors.Is(err, calerr.ErrInvalidDate),
		errors.Is(err, calerr.ErrInvalidRange),
		errors.Is(err, calerr.ErrInvalidRecurrence),
		errors.Is(err, calerr.ErrInvalidProperty),
		errors.Is(err, calerr.ErrInvalidTimezone):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeCalError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		appLog.Error("api request failed", err)
	}
	writeError(w, status, err.Error())
}

// decodeBody reads a JSON request body of at most 1 MiB into v, answering
// 400 itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
