package ics

import (
	"context"
	"time"

	appLog "studycal/internal/log"
	"studycal/internal/model"
)

// Feeds loads records from a set of subscribed ICS sources.
type Feeds struct {
	Fetcher  *Fetcher
	Sources  []Source
	Location *time.Location
}

// Load fetches, parses and expands every feed inside window and converts
// the occurrences into records. A failing feed is logged and skipped so
// one broken subscription does not hide the others.
func (f *Feeds) Load(ctx context.Context, window model.Window) (model.Sources, error) {
	var out model.Sources
	if f == nil || len(f.Sources) == 0 {
		return out, nil
	}

	results, _ := f.Fetcher.FetchAll(ctx, f.Sources)

	parsed := make([]ParsedEvent, 0)
	for _, res := range results {
		evs, err := ParseICS(res.Source, res.Body, f.Location)
		if err != nil {
			appLog.Error("ics parse failed", err, "source", res.Source.ID)
			continue
		}
		parsed = append(parsed, evs...)
	}

	exp, err := ExpandOccurrences(parsed, ExpandConfig{
		DisplayLocation: f.Location,
		Window:          window,
	})
	if err != nil {
		return out, err
	}

	out = ToRecords(exp.Occurrences, f.Location)
	appLog.Info("ics feeds loaded",
		"feeds", len(results),
		"occurrences", len(exp.Occurrences),
		"schedule_blocks", len(out.ScheduleBlocks),
		"exams", len(out.Exams),
	)
	return out, ctx.Err()
}
