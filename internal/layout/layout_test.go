package layout_test

import (
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studycal/internal/layout"
	"studycal/internal/model"
)

var day = time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func ev(id string, start, end time.Time) model.CalendarEvent {
	return model.CalendarEvent{ID: id, Type: model.TypeSchedule, Start: start, End: end}
}

func columns(items []model.PositionedEvent) map[string]int {
	m := make(map[string]int, len(items))
	for _, it := range items {
		m[it.Event.ID] = it.Column
	}
	return m
}

func TestPackSimpleOverlap(t *testing.T) {
	out := layout.Pack([]model.CalendarEvent{
		ev("B", at(10, 0), at(11, 0)),
		ev("A", at(9, 0), at(10, 30)),
	})

	require.Len(t, out, 2)
	assert.Equal(t, map[string]int{"A": 0, "B": 1}, columns(out))
	for _, p := range out {
		assert.Equal(t, 2, p.TotalColumns)
	}
}

func TestPackTripleChainUsesTwoColumns(t *testing.T) {
	out := layout.Pack([]model.CalendarEvent{
		ev("A", at(9, 0), at(10, 0)),
		ev("B", at(9, 30), at(10, 30)),
		ev("C", at(10, 15), at(11, 0)),
	})

	assert.Equal(t, map[string]int{"A": 0, "B": 1, "C": 0}, columns(out))
	for _, p := range out {
		assert.Equal(t, 2, p.TotalColumns)
	}
}

func TestPackNoOverlap(t *testing.T) {
	out := layout.Pack([]model.CalendarEvent{
		ev("A", at(9, 0), at(10, 0)),
		ev("B", at(10, 0), at(11, 0)),
		ev("C", at(13, 0), at(14, 0)),
	})

	for _, p := range out {
		assert.Equal(t, 0, p.Column)
		assert.Equal(t, 1, p.TotalColumns)
	}
}

func TestPackTotalColumnsIsFinalCount(t *testing.T) {
	out := layout.Pack([]model.CalendarEvent{
		ev("long", at(9, 0), at(12, 0)),
		ev("b", at(9, 0), at(10, 0)),
		ev("c", at(9, 30), at(10, 0)),
		ev("late", at(11, 0), at(11, 30)),
	})

	cols := columns(out)
	assert.Equal(t, 0, cols["long"])
	assert.Equal(t, 1, cols["b"])
	assert.Equal(t, 2, cols["c"])
	assert.Equal(t, 1, cols["late"])
	for _, p := range out {
		assert.Equal(t, 3, p.TotalColumns, p.Event.ID)
	}
}

func TestPackLongerEventClaimsEarlierColumn(t *testing.T) {
	out := layout.Pack([]model.CalendarEvent{
		ev("short", at(9, 0), at(9, 30)),
		ev("long", at(9, 0), at(11, 0)),
	})
	assert.Equal(t, map[string]int{"long": 0, "short": 1}, columns(out))
}

func TestPackEmpty(t *testing.T) {
	assert.Empty(t, layout.Pack(nil))
}

func TestPackDoesNotMutateInput(t *testing.T) {
	in := []model.CalendarEvent{ev("B", at(10, 0), at(11, 0)), ev("A", at(9, 0), at(10, 30))}
	layout.Pack(in)
	assert.Equal(t, "B", in[0].ID)
}

func maxConcurrency(events []model.CalendarEvent) int {
	best := 0
	for _, probe := range events {
		n := 0
		for _, e := range events {
			if !e.Start.After(probe.Start) && e.End.After(probe.Start) {
				n++
			}
		}
		if n > best {
			best = n
		}
	}
	return best
}

func TestPackProperties(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))

	for round := 0; round < 50; round++ {
		events := make([]model.CalendarEvent, 0, 25)
		for i := 0; i < 25; i++ {
			start := at(0, 15*rnd.Intn(80))
			dur := time.Duration(1+rnd.Intn(12)) * 15 * time.Minute
			events = append(events, ev(string(rune('a'+i)), start, start.Add(dur)))
		}

		out := layout.Pack(events)
		require.Len(t, out, len(events))

		byColumn := map[int][]model.PositionedEvent{}
		for _, p := range out {
			byColumn[p.Column] = append(byColumn[p.Column], p)
		}
		for col, items := range byColumn {
			sort.Slice(items, func(i, j int) bool { return items[i].Start.Before(items[j].Start) })
			for i := 1; i < len(items); i++ {
				assert.False(t, items[i-1].Event.Overlaps(items[i].Event),
					"round %d column %d: %s overlaps %s", round, col, items[i-1].Event.ID, items[i].Event.ID)
			}
		}

		assert.LessOrEqual(t, out[0].TotalColumns, maxConcurrency(events), "round %d", round)
	}
}

func TestDayGeometry(t *testing.T) {
	dl := layout.Day(day, []model.CalendarEvent{
		ev("A", at(9, 0), at(10, 30)),
		ev("B", at(10, 0), at(11, 0)),
	}, layout.Options{Location: time.UTC})

	require.Len(t, dl.Timed, 2)
	a, b := dl.Timed[0], dl.Timed[1]
	assert.Equal(t, "A", a.Event.ID)
	assert.InDelta(t, 540, a.Top, 1e-9)
	assert.InDelta(t, 90, a.Height, 1e-9)
	assert.InDelta(t, 0, a.Left, 1e-9)
	assert.InDelta(t, 50, a.Width, 1e-9)
	assert.InDelta(t, 600, b.Top, 1e-9)
	assert.InDelta(t, 50, b.Left, 1e-9)
	assert.InDelta(t, 50, b.Width, 1e-9)
}

func TestDayVisibleWindowClipsAndOffsets(t *testing.T) {
	opts := layout.Options{Location: time.UTC, PixelsPerHour: 40, VisibleFromHour: 8, VisibleToHour: 20}
	dl := layout.Day(day, []model.CalendarEvent{
		ev("early", at(6, 0), at(9, 0)),
		ev("night", at(21, 0), at(22, 0)),
	}, opts)

	require.Len(t, dl.Timed, 1)
	p := dl.Timed[0]
	assert.Equal(t, at(8, 0), p.Start)
	assert.InDelta(t, 0, p.Top, 1e-9)
	assert.InDelta(t, 40, p.Height, 1e-9)
}

func TestDayClipsAcrossMidnight(t *testing.T) {
	late := ev("late", at(23, 0), at(25, 0))
	opts := layout.Options{Location: time.UTC}

	first := layout.Day(day, []model.CalendarEvent{late}, opts)
	require.Len(t, first.Timed, 1)
	assert.InDelta(t, 60, first.Timed[0].Height, 1e-9)

	second := layout.Day(day.AddDate(0, 0, 1), []model.CalendarEvent{late}, opts)
	require.Len(t, second.Timed, 1)
	assert.InDelta(t, 0, second.Timed[0].Top, 1e-9)
	assert.Equal(t, at(25, 0), second.Timed[0].End)
}

func TestDayZeroDurationGetsMinHeight(t *testing.T) {
	due := model.CalendarEvent{ID: "assignment-a1", Type: model.TypeAssignment, Start: at(23, 59), End: at(23, 59)}
	dl := layout.Day(day, []model.CalendarEvent{due}, layout.Options{Location: time.UTC})

	require.Len(t, dl.Timed, 1)
	assert.InDelta(t, layout.DefaultMinHeight, dl.Timed[0].Height, 1e-9)
	assert.Equal(t, 1, dl.Timed[0].TotalColumns)
}

func TestDaySeparatesAllDay(t *testing.T) {
	trip := ev("trip", at(0, 0), at(48, 0))
	dl := layout.Day(day, []model.CalendarEvent{trip, ev("A", at(9, 0), at(10, 0))}, layout.Options{Location: time.UTC})

	require.Len(t, dl.AllDay, 1)
	assert.Equal(t, "trip", dl.AllDay[0].ID)
	require.Len(t, dl.Timed, 1)
	assert.Equal(t, 1, dl.Timed[0].TotalColumns)
}

func TestWeek(t *testing.T) {
	events := []model.CalendarEvent{
		ev("mon", at(9, 0), at(10, 0)),
		ev("wed", at(48+9, 0), at(48+10, 0)),
	}
	days := layout.Week(day, 7, events, layout.Options{Location: time.UTC})

	require.Len(t, days, 7)
	assert.Len(t, days[0].Timed, 1)
	assert.Empty(t, days[1].Timed)
	assert.Len(t, days[2].Timed, 1)
	assert.Equal(t, day.AddDate(0, 0, 6), days[6].Date)
}

func TestWeekStart(t *testing.T) {
	thu := time.Date(2025, 12, 4, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), layout.WeekStart(thu, time.Monday, time.UTC))
	assert.Equal(t, time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC), layout.WeekStart(thu, time.Sunday, time.UTC))
	assert.Equal(t, day, layout.WeekStart(day, time.Monday, time.UTC))
}
