package normalize

import (
	"errors"
	"fmt"
	"sort"
	"time"

	appLog "studycal/internal/log"
	"studycal/internal/model"
)

const (
	defaultExamDuration           = 2 * time.Hour
	defaultMaxOccurrencesPerBlock = 500
)

// Options controls how source records become calendar events.
type Options struct {
	// Location is the display timezone. Schedule block clock times are
	// interpreted in it and all instants are converted into it.
	// If nil, time.Local is used.
	Location *time.Location

	// ExamDuration applies to exams without an explicit duration.
	// If zero, two hours are used.
	ExamDuration time.Duration

	// MaxOccurrencesPerBlock caps recurring expansion per schedule block.
	// If zero, defaultMaxOccurrencesPerBlock is used.
	MaxOccurrencesPerBlock int
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.ExamDuration <= 0 {
		o.ExamDuration = defaultExamDuration
	}
	if o.MaxOccurrencesPerBlock <= 0 {
		o.MaxOccurrencesPerBlock = defaultMaxOccurrencesPerBlock
	}
	return o
}

// SkippedRecord describes a source record that produced no events.
type SkippedRecord struct {
	Kind   model.RecordKind `json:"kind"`
	ID     string           `json:"id"`
	Reason string           `json:"reason"`
}

// Result is the output of Normalize.
type Result struct {
	Events  []model.CalendarEvent `json:"events"`
	Skipped []SkippedRecord       `json:"skipped,omitempty"`
	// TruncatedBlocks lists schedule block ids that hit MaxOccurrencesPerBlock.
	TruncatedBlocks []string `json:"truncated_blocks,omitempty"`
}

// Normalize converts source records into one flat, sorted event list.
//
// Recurring schedule blocks expand to every matching weekday inside window;
// all other records map to exactly one event and are not filtered by the
// window. Malformed records are skipped and reported in Result.Skipped.
// The input is not modified and the output depends only on the input.
func Normalize(src model.Sources, window model.Window, opts Options) Result {
	opts = opts.withDefaults()
	courses := indexCourses(src.Courses)

	res := Result{Events: make([]model.CalendarEvent, 0)}

	for _, rec := range src.Records() {
		events, truncated, err := normalizeRecord(rec, window, courses, opts)
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedRecord{
				Kind:   rec.Kind(),
				ID:     rec.SourceID(),
				Reason: err.Error(),
			})
			appLog.Warn("normalize: skipping record", "kind", rec.Kind(), "id", rec.SourceID(), "reason", err.Error())
			continue
		}
		if truncated {
			res.TruncatedBlocks = append(res.TruncatedBlocks, rec.SourceID())
			appLog.Error("normalize: truncated occurrences for block due to cap",
				errors.New("max occurrences reached"),
				"id", rec.SourceID(),
				"cap", opts.MaxOccurrencesPerBlock,
			)
		}
		res.Events = append(res.Events, events...)
	}

	sortEvents(res.Events)
	return res
}

func normalizeRecord(rec model.Record, window model.Window, courses map[string]model.Course, opts Options) ([]model.CalendarEvent, bool, error) {
	if err := validateRecord(rec); err != nil {
		return nil, false, err
	}

	switch r := rec.(type) {
	case model.ScheduleBlock:
		return scheduleEvents(r, window, courses, opts)
	case model.Exam:
		return []model.CalendarEvent{examEvent(r, courses, opts)}, false, nil
	case model.Assignment:
		return []model.CalendarEvent{assignmentEvent(r, courses, opts)}, false, nil
	case model.StudySession:
		ev, err := studySessionEvent(r, courses, opts)
		if err != nil {
			return nil, false, err
		}
		return []model.CalendarEvent{ev}, false, nil
	default:
		return nil, false, fmt.Errorf("unsupported record kind %q", rec.Kind())
	}
}

func scheduleEvents(b model.ScheduleBlock, window model.Window, courses map[string]model.Course, opts Options) ([]model.CalendarEvent, bool, error) {
	start, err := parseClock(b.StartTime)
	if err != nil {
		return nil, false, fmt.Errorf("start_time: %w", err)
	}
	end, err := parseClock(b.EndTime)
	if err != nil {
		return nil, false, fmt.Errorf("end_time: %w", err)
	}
	if end.before(start) {
		return nil, false, errors.New("end_time is before start_time")
	}

	color, course := resolveColor(model.TypeSchedule, b.Color, b.CourseID, courses)

	mk := func(day time.Time, occurrence string) model.CalendarEvent {
		return model.CalendarEvent{
			ID:       model.EventID(model.TypeSchedule, b.ID, occurrence),
			Type:     model.TypeSchedule,
			Title:    b.Title,
			Label:    b.Title,
			Start:    start.on(day, opts.Location),
			End:      end.on(day, opts.Location),
			Location: b.Location,
			Color:    color,
			Course:   course,
			Data:     b,
		}
	}

	if !b.IsRecurring {
		if b.SpecificDate == nil {
			return nil, false, errors.New("one-off block without specific_date")
		}
		return []model.CalendarEvent{mk(*b.SpecificDate, "")}, false, nil
	}

	weekday, err := blockWeekday(b)
	if err != nil {
		return nil, false, err
	}
	if window.IsZero() || !window.End.After(window.Start) {
		return nil, false, errors.New("recurring block needs a non-empty window")
	}

	days, truncated, err := expandWeekly(weekday, start, end, window, opts)
	if err != nil {
		return nil, false, err
	}

	out := make([]model.CalendarEvent, 0, len(days))
	for _, d := range days {
		out = append(out, mk(d, model.OccurrenceKey(d)))
	}
	return out, truncated, nil
}

func blockWeekday(b model.ScheduleBlock) (time.Weekday, error) {
	if b.DayOfWeek != nil {
		return time.Weekday(*b.DayOfWeek), nil
	}
	if b.SpecificDate != nil {
		return b.SpecificDate.Weekday(), nil
	}
	return 0, errors.New("recurring block without day_of_week")
}

func examEvent(e model.Exam, courses map[string]model.Course, opts Options) model.CalendarEvent {
	dur := opts.ExamDuration
	if e.DurationMinutes > 0 {
		dur = time.Duration(e.DurationMinutes) * time.Minute
	}
	color, course := resolveColor(model.TypeExam, e.Color, e.CourseID, courses)
	start := e.ExamDate.In(opts.Location)
	return model.CalendarEvent{
		ID:       model.EventID(model.TypeExam, e.ID, ""),
		Type:     model.TypeExam,
		Title:    e.Title,
		Label:    e.Title,
		Start:    start,
		End:      start.Add(dur),
		Location: e.Location,
		Color:    color,
		Course:   course,
		Data:     e,
	}
}

func assignmentEvent(a model.Assignment, courses map[string]model.Course, opts Options) model.CalendarEvent {
	color, course := resolveColor(model.TypeAssignment, a.Color, a.CourseID, courses)
	due := a.DueDate.In(opts.Location)
	return model.CalendarEvent{
		ID:     model.EventID(model.TypeAssignment, a.ID, ""),
		Type:   model.TypeAssignment,
		Title:  a.Title,
		Label:  model.DueLabel(a.Title),
		Start:  due,
		End:    due,
		Color:  color,
		Course: course,
		Data:   a,
	}
}

func studySessionEvent(s model.StudySession, courses map[string]model.Course, opts Options) (model.CalendarEvent, error) {
	if s.End.Before(s.Start) {
		return model.CalendarEvent{}, errors.New("end is before start")
	}
	color, course := resolveColor(model.TypeStudySession, s.Color, s.CourseID, courses)
	return model.CalendarEvent{
		ID:     model.EventID(model.TypeStudySession, s.ID, ""),
		Type:   model.TypeStudySession,
		Title:  s.Title,
		Label:  s.Title,
		Start:  s.Start.In(opts.Location),
		End:    s.End.In(opts.Location),
		Color:  color,
		Course: course,
		Data:   s,
	}, nil
}

func sortEvents(events []model.CalendarEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if !a.End.Equal(b.End) {
			return a.End.Before(b.End)
		}
		return a.ID < b.ID
	})
}
