// Package export writes every calendar of a suite to <dir>/<name>.ics.
package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"calsuite/internal/config"
	"calsuite/internal/ics"
	appLog "calsuite/internal/log"
	"calsuite/internal/suite"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName is the export file name of a calendar.
func FileName(calendar string) string {
	return unsafeName.ReplaceAllString(calendar, "_") + ".ics"
}

// Exporter snapshots calendars into ICS files.
type Exporter struct {
	suite *suite.Suite
	dir   string
	now   func() time.Time
}

func New(s *suite.Suite, dir string) *Exporter {
	return &Exporter{suite: s, dir: dir, now: time.Now}
}

// Render returns the ICS document of one calendar.
func (e *Exporter) Render(info suite.Info) (string, error) {
	cal, err := e.suite.Calendar(info.Name)
	if err != nil {
		return "", err
	}
	loc, err := time.LoadLocation(info.Zone)
	if err != nil {
		return "", err
	}
	feed := ics.Feed{Name: info.Name, Location: loc, Stamp: e.now()}
	return feed.Marshal(cal.Occurrences()), nil
}

// Run writes every calendar and returns the written paths. A calendar that
// fails does not stop the others.
func (e *Exporter) Run() ([]string, error) {
	if e.dir == "" {
		return nil, errors.New("export: no directory configured")
	}

	var (
		paths []string
		errs  []error
	)
	for _, info := range e.suite.List() {
		path := filepath.Join(e.dir, FileName(info.Name))
		body, err := e.Render(info)
		if err == nil {
			err = config.WriteFileAtomic(path, []byte(body))
		}
		if err != nil {
			appLog.Error("export failed", err, "calendar", info.Name, "path", path)
			errs = append(errs, fmt.Errorf("export %s: %w", info.Name, err))
			continue
		}
		appLog.Debug("export written", "calendar", info.Name, "path", path, "events", info.Events)
		paths = append(paths, path)
	}
	appLog.Info("export completed", "dir", e.dir, "calendars", len(paths))
	return paths, errors.Join(errs...)
}
