package model

import "time"

// RecordKind tags the concrete type behind a Record.
type RecordKind string

const (
	KindSchedule     RecordKind = "schedule"
	KindExam         RecordKind = "exam"
	KindAssignment   RecordKind = "assignment"
	KindStudySession RecordKind = "study_session"
)

// Record is a source record as stored by the backend. The set of
// implementations is closed: ScheduleBlock, Exam, Assignment and
// StudySession.
type Record interface {
	Kind() RecordKind
	SourceID() string
	isRecord()
}

// Course is the owning course of a record; its color overrides the
// per-type default.
type Course struct {
	ID    string `yaml:"id" json:"id" validate:"required"`
	Name  string `yaml:"name" json:"name"`
	Color Color  `yaml:"color,omitempty" json:"color,omitempty"`
}

// ScheduleBlock is a class or activity slot. Recurring blocks repeat weekly
// on DayOfWeek; one-off blocks happen on SpecificDate. StartTime and EndTime
// are wall-clock "HH:MM" or "HH:MM:SS" values in the display timezone.
type ScheduleBlock struct {
	ID           string     `yaml:"id" json:"id" validate:"required"`
	Title        string     `yaml:"title" json:"title"`
	Location     string     `yaml:"location,omitempty" json:"location,omitempty"`
	DayOfWeek    *int       `yaml:"day_of_week,omitempty" json:"day_of_week,omitempty" validate:"omitempty,min=0,max=6"`
	SpecificDate *time.Time `yaml:"specific_date,omitempty" json:"specific_date,omitempty"`
	StartTime    string     `yaml:"start_time" json:"start_time" validate:"required,clock"`
	EndTime      string     `yaml:"end_time" json:"end_time" validate:"required,clock"`
	IsRecurring  bool       `yaml:"is_recurring" json:"is_recurring"`
	CourseID     string     `yaml:"course_id,omitempty" json:"course_id,omitempty"`
	Color        Color      `yaml:"color,omitempty" json:"color,omitempty"`
	AIGenerated  bool       `yaml:"ai_generated,omitempty" json:"ai_generated,omitempty"`
}

// Exam is a single sitting. DurationMinutes of zero means the nominal
// exam duration applies.
type Exam struct {
	ID              string    `yaml:"id" json:"id" validate:"required"`
	Title           string    `yaml:"title" json:"title"`
	ExamDate        time.Time `yaml:"exam_date" json:"exam_date" validate:"required"`
	Location        string    `yaml:"location,omitempty" json:"location,omitempty"`
	CourseID        string    `yaml:"course_id,omitempty" json:"course_id,omitempty"`
	DurationMinutes int       `yaml:"duration_minutes,omitempty" json:"duration_minutes,omitempty" validate:"min=0"`
	Color           Color     `yaml:"color,omitempty" json:"color,omitempty"`
}

// Assignment is due at DueDate.
type Assignment struct {
	ID       string    `yaml:"id" json:"id" validate:"required"`
	Title    string    `yaml:"title" json:"title"`
	DueDate  time.Time `yaml:"due_date" json:"due_date" validate:"required"`
	CourseID string    `yaml:"course_id,omitempty" json:"course_id,omitempty"`
	Color    Color     `yaml:"color,omitempty" json:"color,omitempty"`
}

// StudySession is a planned or logged focus block (e.g. from the timer).
type StudySession struct {
	ID       string    `yaml:"id" json:"id" validate:"required"`
	Title    string    `yaml:"title" json:"title"`
	Start    time.Time `yaml:"start" json:"start" validate:"required"`
	End      time.Time `yaml:"end" json:"end" validate:"required"`
	CourseID string    `yaml:"course_id,omitempty" json:"course_id,omitempty"`
	Color    Color     `yaml:"color,omitempty" json:"color,omitempty"`
}

func (ScheduleBlock) Kind() RecordKind { return KindSchedule }
func (Exam) Kind() RecordKind          { return KindExam }
func (Assignment) Kind() RecordKind    { return KindAssignment }
func (StudySession) Kind() RecordKind  { return KindStudySession }

func (r ScheduleBlock) SourceID() string { return r.ID }
func (r Exam) SourceID() string          { return r.ID }
func (r Assignment) SourceID() string    { return r.ID }
func (r StudySession) SourceID() string  { return r.ID }

func (ScheduleBlock) isRecord() {}
func (Exam) isRecord()          {}
func (Assignment) isRecord()    {}
func (StudySession) isRecord()  {}

// Sources bundles everything the normalizer consumes.
type Sources struct {
	Courses        []Course        `yaml:"courses" json:"courses"`
	ScheduleBlocks []ScheduleBlock `yaml:"schedule_blocks" json:"schedule_blocks"`
	Exams          []Exam          `yaml:"exams" json:"exams"`
	Assignments    []Assignment    `yaml:"assignments" json:"assignments"`
	StudySessions  []StudySession  `yaml:"study_sessions" json:"study_sessions"`
}

// Records flattens s into one slice, schedule blocks first, then exams,
// assignments and study sessions, each in input order.
func (s Sources) Records() []Record {
	out := make([]Record, 0, len(s.ScheduleBlocks)+len(s.Exams)+len(s.Assignments)+len(s.StudySessions))
	for _, r := range s.ScheduleBlocks {
		out = append(out, r)
	}
	for _, r := range s.Exams {
		out = append(out, r)
	}
	for _, r := range s.Assignments {
		out = append(out, r)
	}
	for _, r := range s.StudySessions {
		out = append(out, r)
	}
	return out
}

// Merge returns a new Sources holding the records of s followed by other.
func (s Sources) Merge(other Sources) Sources {
	return Sources{
		Courses:        append(append([]Course{}, s.Courses...), other.Courses...),
		ScheduleBlocks: append(append([]ScheduleBlock{}, s.ScheduleBlocks...), other.ScheduleBlocks...),
		Exams:          append(append([]Exam{}, s.Exams...), other.Exams...),
		Assignments:    append(append([]Assignment{}, s.Assignments...), other.Assignments...),
		StudySessions:  append(append([]StudySession{}, s.StudySessions...), other.StudySessions...),
	}
}

// Window is a half-open [Start, End) time range.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsZero reports whether the window is unset.
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Intersects reports whether [start, end) touches the window. A
// zero-length range counts when its instant lies inside the window.
func (w Window) Intersects(start, end time.Time) bool {
	if start.Equal(end) {
		return !start.Before(w.Start) && start.Before(w.End)
	}
	return start.Before(w.End) && end.After(w.Start)
}

// DaysWindow returns the window of n calendar days starting at the
// midnight of day in loc.
func DaysWindow(day time.Time, n int, loc *time.Location) Window {
	if loc == nil {
		loc = time.Local
	}
	d := day.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 0, n)}
}
