package normalize

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"studycal/internal/model"
)

var rruleWeekdays = [...]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// expandWeekly returns the dates (midnight, display timezone) on which a
// weekly block on weekday has an occurrence intersecting window.
func expandWeekly(weekday time.Weekday, start, end clock, window model.Window, opts Options) ([]time.Time, bool, error) {
	if weekday < time.Sunday || weekday > time.Saturday {
		return nil, false, fmt.Errorf("invalid weekday %d", weekday)
	}

	// Start one day early so an occurrence that began before the window
	// opened but is still running inside it is kept.
	ws := window.Start.In(opts.Location).AddDate(0, 0, -1)
	dtstart := start.on(ws, opts.Location)

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rruleWeekdays[weekday]},
		Dtstart:   dtstart,
	})
	if err != nil {
		return nil, false, fmt.Errorf("build weekly rule: %w", err)
	}

	occTimes := r.Between(dtstart, window.End.In(opts.Location), true)

	days := make([]time.Time, 0, len(occTimes))
	for _, occ := range occTimes {
		day := time.Date(occ.Year(), occ.Month(), occ.Day(), 0, 0, 0, 0, opts.Location)
		if !window.Intersects(start.on(day, opts.Location), end.on(day, opts.Location)) {
			continue
		}
		days = append(days, day)
	}

	if len(days) > opts.MaxOccurrencesPerBlock {
		return days[:opts.MaxOccurrencesPerBlock], true, nil
	}
	return days, false, nil
}
