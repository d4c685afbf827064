package ics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studycal/internal/ics"
	"studycal/internal/model"
)

const feed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:lecture-1
DTSTAMP:20251101T000000Z
DTSTART:20251201T090000Z
DTEND:20251201T103000Z
RRULE:FREQ=WEEKLY;COUNT=4
EXDATE:20251208T090000Z
SUMMARY:Algorithms
LOCATION:Room 101
END:VEVENT
BEGIN:VEVENT
UID:lecture-1
DTSTAMP:20251101T000000Z
RECURRENCE-ID:20251215T090000Z
DTSTART:20251215T130000Z
DTEND:20251215T143000Z
SUMMARY:Algorithms (moved)
END:VEVENT
BEGIN:VEVENT
UID:holiday
DTSTAMP:20251101T000000Z
DTSTART;VALUE=DATE:20251203
DTEND;VALUE=DATE:20251204
SUMMARY:Holiday
END:VEVENT
BEGIN:VEVENT
DTSTAMP:20251101T000000Z
DTSTART:20251202T090000Z
SUMMARY:No UID
END:VEVENT
END:VCALENDAR
`

var (
	uni    = ics.Source{ID: "uni", URL: "https://example.com/uni.ics", Kind: model.KindSchedule}
	window = model.DaysWindow(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), 21, time.UTC)
)

func utc(d, h, m int) time.Time {
	return time.Date(2025, 12, d, h, m, 0, 0, time.UTC)
}

func expand(t *testing.T) []ics.Occurrence {
	t.Helper()
	parsed, err := ics.ParseICS(uni, []byte(feed), time.UTC)
	require.NoError(t, err)
	require.Len(t, parsed, 3)

	res, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{DisplayLocation: time.UTC, Window: window})
	require.NoError(t, err)
	assert.Empty(t, res.TruncatedEvents)
	return res.Occurrences
}

func TestExpandHandlesExdateAndOverride(t *testing.T) {
	occs := expand(t)
	require.Len(t, occs, 3)

	assert.Equal(t, "lecture-1", occs[0].UID)
	assert.True(t, occs[0].Start.Equal(utc(1, 9, 0)))
	assert.True(t, occs[0].End.Equal(utc(1, 10, 30)))
	assert.Equal(t, "Room 101", occs[0].Location)

	assert.Equal(t, "holiday", occs[1].UID)
	assert.True(t, occs[1].AllDay)
	assert.True(t, occs[1].Start.Equal(utc(3, 0, 0)))
	assert.True(t, occs[1].End.Equal(utc(4, 0, 0)))

	moved := occs[2]
	assert.Equal(t, "Algorithms (moved)", moved.Summary)
	assert.True(t, moved.Start.Equal(utc(15, 13, 0)))
	assert.Equal(t, "20251215T090000", moved.InstanceKey)
}

func TestExpandCap(t *testing.T) {
	parsed := []ics.ParsedEvent{{
		Source:   uni,
		UID:      "daily",
		Start:    utc(1, 8, 0),
		End:      utc(1, 9, 0),
		RawRRule: "FREQ=DAILY",
	}}
	res, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		DisplayLocation:        time.UTC,
		Window:                 window,
		MaxOccurrencesPerEvent: 5,
	})
	require.NoError(t, err)
	assert.Len(t, res.Occurrences, 5)
	assert.Equal(t, []string{"daily"}, res.TruncatedEvents)
}

func TestExpandKeepsOccurrenceStartedBeforeWindow(t *testing.T) {
	parsed := []ics.ParsedEvent{{
		Source:   uni,
		UID:      "night",
		Start:    time.Date(2025, 11, 24, 23, 0, 0, 0, time.UTC),
		End:      time.Date(2025, 11, 25, 1, 0, 0, 0, time.UTC),
		RawRRule: "FREQ=WEEKLY",
	}}
	w := model.Window{Start: time.Date(2025, 12, 2, 0, 0, 0, 0, time.UTC), End: utc(3, 0, 0)}
	res, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{DisplayLocation: time.UTC, Window: w})
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 1)
	assert.True(t, res.Occurrences[0].Start.Equal(utc(1, 23, 0)))
}

func TestToRecordsSchedule(t *testing.T) {
	src := ics.ToRecords(expand(t), time.UTC)
	require.Len(t, src.ScheduleBlocks, 3)
	assert.Empty(t, src.Exams)

	b := src.ScheduleBlocks[0]
	assert.Equal(t, "ics.uni.lecture-1.20251201T090000", b.ID)
	assert.False(t, b.IsRecurring)
	require.NotNil(t, b.SpecificDate)
	assert.Equal(t, "2025-12-01", b.SpecificDate.Format("2006-01-02"))
	assert.Equal(t, "09:00:00", b.StartTime)
	assert.Equal(t, "10:30:00", b.EndTime)

	holiday := src.ScheduleBlocks[1]
	assert.Equal(t, "00:00:00", holiday.StartTime)
	assert.Equal(t, "24:00:00", holiday.EndTime)
}

func TestToRecordsExam(t *testing.T) {
	occs := []ics.Occurrence{{
		Source:      ics.Source{ID: "exams", Kind: model.KindExam, CourseID: "cs101"},
		UID:         "final",
		InstanceKey: "20251210T090000",
		Summary:     "Final",
		Start:       utc(10, 9, 0),
		End:         utc(10, 10, 30),
	}}
	src := ics.ToRecords(occs, time.UTC)
	require.Len(t, src.Exams, 1)
	e := src.Exams[0]
	assert.Equal(t, "ics.exams.final.20251210T090000", e.ID)
	assert.Equal(t, 90, e.DurationMinutes)
	assert.Equal(t, "cs101", e.CourseID)
	assert.True(t, e.ExamDate.Equal(utc(10, 9, 0)))
}

func TestToRecordsSplitsAcrossMidnight(t *testing.T) {
	occs := []ics.Occurrence{{
		Source:      uni,
		UID:         "a:b",
		InstanceKey: "20251205T220000",
		Start:       utc(5, 22, 0),
		End:         utc(6, 2, 0),
	}}
	blocks := ics.ToRecords(occs, time.UTC).ScheduleBlocks
	require.Len(t, blocks, 2)
	assert.Equal(t, "ics.uni.a_b.20251205T220000.20251205", blocks[0].ID)
	assert.Equal(t, "22:00:00", blocks[0].StartTime)
	assert.Equal(t, "24:00:00", blocks[0].EndTime)
	assert.Equal(t, "ics.uni.a_b.20251205T220000.20251206", blocks[1].ID)
	assert.Equal(t, "00:00:00", blocks[1].StartTime)
	assert.Equal(t, "02:00:00", blocks[1].EndTime)
}

func TestExportRoundTripsIDs(t *testing.T) {
	events := []model.CalendarEvent{
		{
			ID: "schedule-b1:20251201", Type: model.TypeSchedule, Title: "Algorithms", Label: "Algorithms",
			Start: utc(1, 9, 0), End: utc(1, 10, 30), Location: "Room 101",
			Course: &model.CourseRef{ID: "cs", Name: "Computer Science"},
		},
		{
			ID: "assignment-a1", Type: model.TypeAssignment, Title: "Essay", Label: "Due: Essay",
			Start: utc(4, 23, 59), End: utc(4, 23, 59),
		},
		{
			ID: "schedule-h1", Type: model.TypeSchedule, Title: "Holiday", Label: "Holiday",
			Start: utc(3, 0, 0), End: utc(4, 0, 0),
		},
	}

	body := ics.Export(events, "Planner", utc(1, 0, 0))
	assert.Contains(t, body, "X-WR-CALNAME:Planner")
	assert.Contains(t, body, "SUMMARY:Due: Essay")
	assert.Contains(t, body, "CATEGORIES:assignment")

	parsed, err := ics.ParseICS(ics.Source{ID: "self"}, []byte(body), time.UTC)
	require.NoError(t, err)
	require.Len(t, parsed, 3)

	for i, p := range parsed {
		id, ok := ics.EventIDFromUID(p.UID)
		require.True(t, ok)
		assert.Equal(t, events[i].ID, id)
		assert.True(t, p.Start.Equal(events[i].Start), "start of %s", id)
		assert.True(t, p.End.Equal(events[i].End), "end of %s", id)
	}
	assert.True(t, parsed[2].AllDay)

	_, ok := ics.EventIDFromUID("foreign@example.com")
	assert.False(t, ok)
}

func TestFetcherUsesCache(t *testing.T) {
	var calls, fail atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if fail.Load() == 1 {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	f := ics.NewFetcher(t.TempDir())
	src := ics.Source{ID: "uni", URL: srv.URL + "/private/token.ics"}
	ctx := context.Background()

	first, err := f.FetchOne(ctx, src)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, feed, string(first.Body))

	second, err := f.FetchOne(ctx, src)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, feed, string(second.Body))

	fail.Store(1)
	third, err := f.FetchOne(ctx, src)
	require.NoError(t, err)
	assert.True(t, third.FromCache)

	_, err = f.FetchOne(ctx, ics.Source{ID: "other", URL: srv.URL + "/other.ics"})
	assert.Error(t, err)
	assert.Equal(t, int32(4), calls.Load())
}

func TestFeedsLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	feeds := &ics.Feeds{
		Fetcher: ics.NewFetcher(t.TempDir()),
		Sources: []ics.Source{
			{ID: "uni", URL: srv.URL, Kind: model.KindSchedule},
			{ID: "broken", URL: "http://127.0.0.1:1/none.ics", Kind: model.KindSchedule},
		},
		Location: time.UTC,
	}
	src, err := feeds.Load(context.Background(), window)
	require.NoError(t, err)
	assert.Len(t, src.ScheduleBlocks, 3)
}
