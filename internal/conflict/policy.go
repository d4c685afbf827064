package conflict

import (
	"time"

	"studycal/internal/model"
)

// Rule assigns Severity to an overlapping pair whose types are {A, B}, in
// either order, when the overlap covers at least MinOverlapRatio of the
// shorter event.
type Rule struct {
	A               model.EventType `yaml:"a" json:"a"`
	B               model.EventType `yaml:"b" json:"b"`
	MinOverlapRatio float64         `yaml:"min_overlap_ratio" json:"min_overlap_ratio"`
	Severity        model.Severity  `yaml:"severity" json:"severity"`
}

func (r Rule) matches(a, b model.EventType) bool {
	return (r.A == a && r.B == b) || (r.A == b && r.B == a)
}

// Policy is the severity table and the tight-scheduling threshold.
type Policy struct {
	// Rules are evaluated in order; the first match wins.
	Rules []Rule
	// Default applies to overlapping pairs no rule matches.
	Default model.Severity

	// Buffer is the minimum gap wanted between consecutive events of
	// BufferTypes. Gaps in [0, Buffer) are reported as minor conflicts.
	// Zero disables the check, so touching events never conflict.
	Buffer      time.Duration
	BufferTypes []model.EventType

	// Suggestions search free slots on the event's day between
	// EarliestHour and LatestHour, in SlotStep increments.
	EarliestHour int
	LatestHour   int
	SlotStep     time.Duration
}

// DefaultMajorityRatio is the overlap share from which two exams clash
// critically.
const DefaultMajorityRatio = 0.5

// DefaultRules is the built-in severity table.
func DefaultRules(majority float64) []Rule {
	if majority <= 0 || majority > 1 {
		majority = DefaultMajorityRatio
	}
	return []Rule{
		{A: model.TypeSchedule, B: model.TypeSchedule, Severity: model.SeverityCritical},
		{A: model.TypeExam, B: model.TypeExam, MinOverlapRatio: majority, Severity: model.SeverityCritical},
		{A: model.TypeExam, B: model.TypeExam, Severity: model.SeverityMajor},
		{A: model.TypeExam, B: model.TypeSchedule, Severity: model.SeverityCritical},
		{A: model.TypeSchedule, B: model.TypeStudySession, Severity: model.SeverityMajor},
		{A: model.TypeSchedule, B: model.TypeAssignment, Severity: model.SeverityMajor},
		{A: model.TypeExam, B: model.TypeStudySession, Severity: model.SeverityMajor},
		{A: model.TypeExam, B: model.TypeAssignment, Severity: model.SeverityMajor},
	}
}

// DefaultPolicy returns the built-in table with the buffer check disabled.
func DefaultPolicy() Policy {
	return Policy{
		Rules:        DefaultRules(DefaultMajorityRatio),
		Default:      model.SeverityMinor,
		BufferTypes:  []model.EventType{model.TypeSchedule, model.TypeExam},
		EarliestHour: 7,
		LatestHour:   22,
		SlotStep:     15 * time.Minute,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.Rules == nil {
		p.Rules = d.Rules
	}
	if p.Default == "" {
		p.Default = d.Default
	}
	if p.BufferTypes == nil {
		p.BufferTypes = d.BufferTypes
	}
	if p.LatestHour <= 0 || p.LatestHour > 24 {
		p.LatestHour = d.LatestHour
	}
	if p.EarliestHour < 0 || p.EarliestHour >= p.LatestHour {
		p.EarliestHour = 0
	}
	if p.SlotStep <= 0 {
		p.SlotStep = d.SlotStep
	}
	return p
}

// Classify returns the severity of an overlapping pair.
func (p Policy) Classify(a, b model.CalendarEvent) model.Severity {
	ratio := overlapRatio(a, b)
	for _, r := range p.Rules {
		if r.matches(a.Type, b.Type) && ratio >= r.MinOverlapRatio {
			return model.ParseSeverity(string(r.Severity))
		}
	}
	if p.Default == "" {
		return model.SeverityMinor
	}
	return p.Default
}

func (p Policy) buffered(t model.EventType) bool {
	for _, bt := range p.BufferTypes {
		if bt == t {
			return true
		}
	}
	return false
}

func overlapDuration(a, b model.CalendarEvent) time.Duration {
	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}
	end := a.End
	if b.End.Before(end) {
		end = b.End
	}
	if end.Before(start) {
		return 0
	}
	return end.Sub(start)
}

// overlapRatio is the overlap as a share of the shorter event. A
// zero-length event overlapping anything counts as fully covered.
func overlapRatio(a, b model.CalendarEvent) float64 {
	shorter := a.Duration()
	if d := b.Duration(); d < shorter {
		shorter = d
	}
	if shorter <= 0 {
		return 1
	}
	return float64(overlapDuration(a, b)) / float64(shorter)
}
