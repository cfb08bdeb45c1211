package ics

import (
	"context"
	"fmt"

	"calsuite/internal/calendar"
	"calsuite/internal/event"
	appLog "calsuite/internal/log"
)

// Import adds every expanded occurrence of body to cal as a Single event.
// Occurrences already present are skipped, so importing the same feed twice
// adds nothing. It returns the number of events added.
func Import(cal *calendar.Calendar, src Source, body []byte, cfg ExpandConfig) (int, error) {
	parsed, err := Parse(src, body)
	if err != nil {
		return 0, fmt.Errorf("ics: parse %s: %w", src.ID, err)
	}
	res, err := ExpandOccurrences(parsed, cfg)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, o := range res.Occurrences {
		ev, err := event.NewSingle(o)
		if err != nil {
			appLog.Warn("ics occurrence skipped", "id", src.ID, "subject", o.Subject, "reason", err)
			continue
		}
		if cal.AddEvent(ev) {
			added++
		}
	}
	return added, nil
}

// Refresh fetches sources and imports each into cal. A failing source does
// not stop the others; its error is returned alongside the total added.
func Refresh(ctx context.Context, f *Fetcher, cal *calendar.Calendar, sources []Source, cfg ExpandConfig) (int, []error) {
	results, errs := f.FetchAll(ctx, sources)

	total := 0
	for _, res := range results {
		n, err := Import(cal, res.Source, res.Body, cfg)
		if err != nil {
			appLog.Error("ics import failed", err, "id", res.Source.ID)
			errs = append(errs, err)
			continue
		}
		appLog.Info("ics import completed", "id", res.Source.ID, "added", n, "from_cache", res.FromCache)
		total += n
	}
	return total, errs
}
