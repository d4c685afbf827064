package model

import (
	"errors"
	"strings"
	"time"
)

// EventType is the kind of a normalized calendar event.
type EventType string

const (
	TypeSchedule     EventType = "schedule"
	TypeExam         EventType = "exam"
	TypeAssignment   EventType = "assignment"
	TypeStudySession EventType = "study_session"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case TypeSchedule, TypeExam, TypeAssignment, TypeStudySession:
		return true
	}
	return false
}

// Color is a semantic color token; the UI maps it to a CSS variable.
type Color string

const (
	ColorPrimary     Color = "primary"
	ColorDestructive Color = "destructive"
	ColorWarning     Color = "warning"
	ColorAccent      Color = "accent"
)

// DuePrefix is prepended to assignment labels.
const DuePrefix = "Due: "

// AllDayThreshold is the duration from which an event renders as all-day.
const AllDayThreshold = 24 * time.Hour

// ErrInvalidEventID is returned by ParseEventID for ids that do not follow
// the "{type}-{sourceId}" layout.
var ErrInvalidEventID = errors.New("model: invalid event id")

// CourseRef points at the owning course of an event.
type CourseRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CalendarEvent is the uniform event shape produced by normalization.
//
// Title is the stored title of the source record and is never prefixed.
// Label is what the calendar shows; for assignments it carries DuePrefix.
type CalendarEvent struct {
	ID       string     `json:"id"`
	Type     EventType  `json:"type"`
	Title    string     `json:"title"`
	Label    string     `json:"label"`
	Start    time.Time  `json:"start"`
	End      time.Time  `json:"end"`
	Location string     `json:"location,omitempty"`
	Color    Color      `json:"color"`
	Course   *CourseRef `json:"course,omitempty"`
	Data     Record     `json:"data,omitempty"`
}

// Duration returns End - Start.
func (e CalendarEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// AllDay reports whether the event lasts at least AllDayThreshold.
func (e CalendarEvent) AllDay() bool {
	return e.Duration() >= AllDayThreshold
}

// AIGenerated reports whether the source record was created by the assistant.
func (e CalendarEvent) AIGenerated() bool {
	if b, ok := e.Data.(ScheduleBlock); ok {
		return b.AIGenerated
	}
	return false
}

// Overlaps reports half-open overlap: touching boundaries do not overlap.
func (e CalendarEvent) Overlaps(o CalendarEvent) bool {
	return e.Start.Before(o.End) && o.Start.Before(e.End)
}

// EventID composes "{type}-{sourceId}", with ":{occurrence}" appended for
// expanded recurring occurrences.
func EventID(t EventType, sourceID, occurrence string) string {
	id := string(t) + "-" + sourceID
	if occurrence != "" {
		id += ":" + occurrence
	}
	return id
}

// ParseEventID decodes an id built by EventID. Source ids may themselves
// contain dashes, so the type is matched as a known prefix.
func ParseEventID(id string) (t EventType, sourceID, occurrence string, err error) {
	for _, cand := range []EventType{TypeStudySession, TypeSchedule, TypeExam, TypeAssignment} {
		prefix := string(cand) + "-"
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		rest := id[len(prefix):]
		if i := strings.LastIndexByte(rest, ':'); i >= 0 && isOccurrenceKey(rest[i+1:]) {
			rest, occurrence = rest[:i], rest[i+1:]
		}
		if rest == "" {
			return "", "", "", ErrInvalidEventID
		}
		return cand, rest, occurrence, nil
	}
	return "", "", "", ErrInvalidEventID
}

// OccurrenceKey formats the occurrence suffix for a recurring event.
func OccurrenceKey(t time.Time) string {
	return t.Format("20060102")
}

func isOccurrenceKey(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// DueLabel returns the display label of an assignment titled title.
func DueLabel(title string) string {
	return DuePrefix + title
}

// StripDuePrefix removes exactly one leading DuePrefix from a legacy label.
// New code should read CalendarEvent.Title instead.
func StripDuePrefix(label string) string {
	return strings.TrimPrefix(label, DuePrefix)
}

// PositionedEvent is an event placed into a day column with its geometry.
// Start and End are the slice of the event inside the visible day window.
type PositionedEvent struct {
	Event        CalendarEvent `json:"event"`
	Start        time.Time     `json:"start"`
	End          time.Time     `json:"end"`
	Column       int           `json:"column"`
	TotalColumns int           `json:"total_columns"`

	// Top and Height are pixels; Left and Width are percentages.
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
}

// DayLayout is one rendered day of a week view.
type DayLayout struct {
	Date   time.Time         `json:"date"`
	AllDay []CalendarEvent   `json:"all_day"`
	Timed  []PositionedEvent `json:"timed"`
}
