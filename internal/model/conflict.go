package model

import "time"

// Severity ranks a scheduling conflict.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// Rank orders severities; unknown values rank as minor.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityMajor:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityMinor, SeverityMajor, SeverityCritical:
		return true
	}
	return false
}

// ParseSeverity maps a config string to a Severity, falling back to minor.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityCritical, SeverityMajor:
		return Severity(s)
	}
	return SeverityMinor
}

// Overlap is one edge of a conflict group. Overlap is zero for tight-gap
// edges, which carry the Gap between the two events instead.
type Overlap struct {
	A        string        `json:"a"`
	B        string        `json:"b"`
	Overlap  time.Duration `json:"overlap"`
	Gap      time.Duration `json:"gap,omitempty"`
	Severity Severity      `json:"severity"`
}

// Suggestion is a best-effort resolution hint. ProposedStart/End are set
// only when the suggestion moves an event.
type Suggestion struct {
	EventID       string     `json:"event_id"`
	Action        string     `json:"action"`
	Message       string     `json:"message"`
	ProposedStart *time.Time `json:"proposed_start,omitempty"`
	ProposedEnd   *time.Time `json:"proposed_end,omitempty"`
}

// Conflict is a transitively connected group of clashing events.
type Conflict struct {
	ID          string       `json:"id"`
	EventIDs    []string     `json:"event_ids"`
	Pairs       []Overlap    `json:"pairs"`
	Severity    Severity     `json:"severity"`
	Start       time.Time    `json:"start"`
	End         time.Time    `json:"end"`
	Suggestions []Suggestion `json:"suggestions"`
}
