package normalize_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studycal/internal/model"
	"studycal/internal/normalize"
)

var (
	opts = normalize.Options{Location: time.UTC}
	// 2025-12-01 is a Monday.
	week = model.DaysWindow(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), 7, time.UTC)
)

func intPtr(v int) *int { return &v }

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestAssignmentDueDateDisplay(t *testing.T) {
	due := time.Date(2025, 12, 4, 23, 59, 0, 0, time.UTC)
	src := model.Sources{
		Assignments: []model.Assignment{{ID: "a1", Title: "Essay", DueDate: due}},
	}

	res := normalize.Normalize(src, week, opts)
	require.Len(t, res.Events, 1)

	ev := res.Events[0]
	assert.Equal(t, "assignment-a1", ev.ID)
	assert.Equal(t, model.TypeAssignment, ev.Type)
	assert.True(t, ev.Start.Equal(due))
	assert.True(t, ev.End.Equal(due))
	assert.Equal(t, "Due: Essay", ev.Label)
	assert.Equal(t, "Essay", ev.Title)
	assert.Equal(t, model.ColorWarning, ev.Color)
}

func TestTitleWithLiteralPrefixSurvives(t *testing.T) {
	src := model.Sources{
		Assignments: []model.Assignment{{ID: "a1", Title: "Due: the sequel", DueDate: time.Date(2025, 12, 2, 12, 0, 0, 0, time.UTC)}},
	}

	ev := normalize.Normalize(src, week, opts).Events[0]
	assert.Equal(t, "Due: the sequel", ev.Title)
	assert.Equal(t, "Due: Due: the sequel", ev.Label)
	assert.Equal(t, "Due: the sequel", model.StripDuePrefix(ev.Label))
}

func TestRecurringBlockExpandsInsideWindow(t *testing.T) {
	src := model.Sources{
		ScheduleBlocks: []model.ScheduleBlock{{
			ID: "abc", Title: "Calculus", DayOfWeek: intPtr(1),
			StartTime: "09:00", EndTime: "10:30", IsRecurring: true,
		}},
	}

	res := normalize.Normalize(src, week, opts)
	require.Len(t, res.Events, 1)
	assert.Equal(t, "schedule-abc:20251201", res.Events[0].ID)
	assert.Equal(t, time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC), res.Events[0].Start)
	assert.Equal(t, time.Date(2025, 12, 1, 10, 30, 0, 0, time.UTC), res.Events[0].End)

	twoWeeks := model.DaysWindow(week.Start, 14, time.UTC)
	res = normalize.Normalize(src, twoWeeks, opts)
	require.Len(t, res.Events, 2)
	assert.Equal(t, "schedule-abc:20251208", res.Events[1].ID)
}

func TestRecurringBlockNeedsWindow(t *testing.T) {
	src := model.Sources{
		ScheduleBlocks: []model.ScheduleBlock{{
			ID: "abc", DayOfWeek: intPtr(1), StartTime: "09:00", EndTime: "10:00", IsRecurring: true,
		}},
	}

	res := normalize.Normalize(src, model.Window{}, opts)
	assert.Empty(t, res.Events)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "abc", res.Skipped[0].ID)
}

func TestRecurringCap(t *testing.T) {
	src := model.Sources{
		ScheduleBlocks: []model.ScheduleBlock{{
			ID: "abc", DayOfWeek: intPtr(2), StartTime: "09:00", EndTime: "10:00", IsRecurring: true,
		}},
	}
	year := model.DaysWindow(week.Start, 365, time.UTC)

	res := normalize.Normalize(src, year, normalize.Options{Location: time.UTC, MaxOccurrencesPerBlock: 3})
	assert.Len(t, res.Events, 3)
	assert.Equal(t, []string{"abc"}, res.TruncatedBlocks)
}

func TestOneOffBlock(t *testing.T) {
	src := model.Sources{
		ScheduleBlocks: []model.ScheduleBlock{{
			ID: "lab", Title: "Lab", SpecificDate: datePtr(2025, 12, 3),
			StartTime: "14:00:00", EndTime: "16:00:00", Location: "B12",
		}},
	}

	res := normalize.Normalize(src, week, opts)
	require.Len(t, res.Events, 1)
	ev := res.Events[0]
	assert.Equal(t, "schedule-lab", ev.ID)
	assert.Equal(t, "B12", ev.Location)
	assert.Equal(t, 2*time.Hour, ev.Duration())
	assert.False(t, ev.AllDay())
}

func TestExamDuration(t *testing.T) {
	at := time.Date(2025, 12, 5, 9, 0, 0, 0, time.UTC)
	src := model.Sources{
		Exams: []model.Exam{
			{ID: "e1", Title: "Physics", ExamDate: at},
			{ID: "e2", Title: "Chemistry", ExamDate: at.Add(4 * time.Hour), DurationMinutes: 90},
		},
	}

	res := normalize.Normalize(src, week, normalize.Options{Location: time.UTC, ExamDuration: 3 * time.Hour})
	require.Len(t, res.Events, 2)
	assert.Equal(t, 3*time.Hour, res.Events[0].Duration())
	assert.Equal(t, 90*time.Minute, res.Events[1].Duration())
	assert.Equal(t, model.ColorDestructive, res.Events[0].Color)
}

func TestMalformedRecordsAreSkipped(t *testing.T) {
	src := model.Sources{
		ScheduleBlocks: []model.ScheduleBlock{
			{ID: "no-start", EndTime: "10:00", SpecificDate: datePtr(2025, 12, 2)},
			{ID: "backwards", StartTime: "11:00", EndTime: "10:00", SpecificDate: datePtr(2025, 12, 2)},
			{ID: "bad-clock", StartTime: "25:00", EndTime: "26:00", SpecificDate: datePtr(2025, 12, 2)},
			{ID: "no-date", StartTime: "09:00", EndTime: "10:00"},
			{ID: "bad-day", StartTime: "09:00", EndTime: "10:00", DayOfWeek: intPtr(9), IsRecurring: true},
		},
		Exams:       []model.Exam{{ID: "no-date"}},
		Assignments: []model.Assignment{{ID: "ok", Title: "Fine", DueDate: time.Date(2025, 12, 2, 8, 0, 0, 0, time.UTC)}},
		StudySessions: []model.StudySession{{
			ID: "reversed", Start: time.Date(2025, 12, 2, 10, 0, 0, 0, time.UTC), End: time.Date(2025, 12, 2, 9, 0, 0, 0, time.UTC),
		}},
	}

	res := normalize.Normalize(src, week, opts)
	require.Len(t, res.Events, 1)
	assert.Equal(t, "assignment-ok", res.Events[0].ID)
	assert.Len(t, res.Skipped, 7)
}

func TestColorPrecedence(t *testing.T) {
	due := time.Date(2025, 12, 2, 8, 0, 0, 0, time.UTC)
	src := model.Sources{
		Courses: []model.Course{{ID: "c1", Name: "Biology", Color: "green"}},
		Assignments: []model.Assignment{
			{ID: "own", DueDate: due, CourseID: "c1", Color: "pink"},
			{ID: "course", DueDate: due, CourseID: "c1"},
			{ID: "unknown-course", DueDate: due, CourseID: "c9"},
		},
	}

	res := normalize.Normalize(src, week, opts)
	require.Len(t, res.Events, 3)
	byID := map[string]model.CalendarEvent{}
	for _, ev := range res.Events {
		byID[ev.ID] = ev
	}
	assert.Equal(t, model.Color("pink"), byID["assignment-own"].Color)
	assert.Equal(t, model.Color("green"), byID["assignment-course"].Color)
	assert.Equal(t, "Biology", byID["assignment-course"].Course.Name)
	assert.Equal(t, model.ColorWarning, byID["assignment-unknown-course"].Color)
	assert.Equal(t, "c9", byID["assignment-unknown-course"].Course.ID)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	src := model.Sources{
		ScheduleBlocks: []model.ScheduleBlock{
			{ID: "b1", Title: "Algebra", DayOfWeek: intPtr(3), StartTime: "09:00", EndTime: "10:00", IsRecurring: true, AIGenerated: true},
			{ID: "b2", Title: "Seminar", SpecificDate: datePtr(2025, 12, 3), StartTime: "09:00", EndTime: "11:00"},
		},
		Exams:       []model.Exam{{ID: "e1", Title: "Final", ExamDate: time.Date(2025, 12, 3, 9, 0, 0, 0, time.UTC)}},
		Assignments: []model.Assignment{{ID: "a1", Title: "Lab report", DueDate: time.Date(2025, 12, 3, 9, 0, 0, 0, time.UTC)}},
	}

	first := normalize.Normalize(src, week, opts)
	second := normalize.Normalize(src, week, opts)
	assert.Equal(t, first, second)

	ids := make([]string, 0, len(first.Events))
	for _, ev := range first.Events {
		ids = append(ids, ev.ID)
	}
	assert.Equal(t, []string{"assignment-a1", "schedule-b1:20251203", "exam-e1", "schedule-b2"}, ids)
	assert.True(t, first.Events[1].AIGenerated())
}
