package layout

import (
	"sort"
	"time"

	"studycal/internal/model"
)

// Pack assigns each event a display column so that no two events in the
// same column overlap in [Start, End).
//
// Events are visited by start ascending, end descending (longer events
// first), then id. Each event takes the first column whose last occupant
// has ended by its start, or opens a new column. TotalColumns is the final
// column count for every event, not the count at placement time.
//
// The result is a new slice in visiting order; geometry fields are left
// zero. Use Day for clipped, positioned output.
func Pack(events []model.CalendarEvent) []model.PositionedEvent {
	items := make([]model.PositionedEvent, 0, len(events))
	for _, ev := range events {
		items = append(items, model.PositionedEvent{Event: ev, Start: ev.Start, End: ev.End})
	}
	packItems(items)
	return items
}

// packItems sorts items in place and fills Column/TotalColumns using each
// item's Start/End slice.
func packItems(items []model.PositionedEvent) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if !a.End.Equal(b.End) {
			return a.End.After(b.End)
		}
		return a.Event.ID < b.Event.ID
	})

	// columnEnds[i] is the end of the last event placed in column i.
	columnEnds := make([]time.Time, 0, 4)

	for i := range items {
		col := -1
		for c, end := range columnEnds {
			if !end.After(items[i].Start) {
				col = c
				break
			}
		}
		if col == -1 {
			col = len(columnEnds)
			columnEnds = append(columnEnds, items[i].End)
		} else {
			columnEnds[col] = items[i].End
		}
		items[i].Column = col
	}

	total := len(columnEnds)
	if total == 0 {
		total = 1
	}
	for i := range items {
		items[i].TotalColumns = total
	}
}
