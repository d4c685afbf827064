package planner

import (
	"fmt"
	"time"

	"studycal/internal/config"
	"studycal/internal/conflict"
	"studycal/internal/layout"
	"studycal/internal/model"
	"studycal/internal/normalize"
)

// Settings carries the options of every pipeline stage.
type Settings struct {
	Location    *time.Location
	WeekStart   time.Weekday
	HorizonDays int

	Normalize normalize.Options
	Layout    layout.Options
	Policy    conflict.Policy
}

// DefaultSettings mirrors config.DefaultConfig in loc.
func DefaultSettings(loc *time.Location) Settings {
	if loc == nil {
		loc = time.Local
	}
	return Settings{
		Location:    loc,
		WeekStart:   time.Monday,
		HorizonDays: 14,
		Normalize:   normalize.Options{Location: loc},
		Layout:      layout.Options{Location: loc},
		Policy:      conflict.DefaultPolicy(),
	}
}

// SettingsFromConfig translates the YAML configuration into pipeline
// settings. Unknown event types or severities in custom rules are errors.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Settings{}, fmt.Errorf("planner: timezone %q: %w", cfg.Timezone, err)
	}

	s := DefaultSettings(loc)
	if cfg.WeekStart == "sunday" {
		s.WeekStart = time.Sunday
	}
	if cfg.HorizonDays > 0 {
		s.HorizonDays = cfg.HorizonDays
	}

	s.Normalize.ExamDuration = time.Duration(cfg.ExamMinutes) * time.Minute

	s.Layout.PixelsPerHour = cfg.Layout.PixelsPerHour
	s.Layout.MinHeight = cfg.Layout.MinHeight
	s.Layout.VisibleFromHour = cfg.Layout.VisibleFromHour
	s.Layout.VisibleToHour = cfg.Layout.VisibleToHour

	cc := cfg.Conflict
	s.Policy.Rules = conflict.DefaultRules(cc.MajorityRatio)
	s.Policy.Buffer = time.Duration(cc.BufferMinutes) * time.Minute
	s.Policy.EarliestHour = cc.EarliestHour
	s.Policy.LatestHour = cc.LatestHour

	if cc.BufferTypes != nil {
		s.Policy.BufferTypes = make([]model.EventType, 0, len(cc.BufferTypes))
		for _, t := range cc.BufferTypes {
			et := model.EventType(t)
			if !et.Valid() {
				return Settings{}, fmt.Errorf("planner: conflict.buffer_types: unknown event type %q", t)
			}
			s.Policy.BufferTypes = append(s.Policy.BufferTypes, et)
		}
	}

	if len(cc.Rules) > 0 {
		rules := make([]conflict.Rule, 0, len(cc.Rules))
		for i, r := range cc.Rules {
			a, b := model.EventType(r.A), model.EventType(r.B)
			if !a.Valid() || !b.Valid() {
				return Settings{}, fmt.Errorf("planner: conflict.rules[%d]: unknown event type in %q/%q", i, r.A, r.B)
			}
			sev := model.Severity(r.Severity)
			if !sev.Valid() {
				return Settings{}, fmt.Errorf("planner: conflict.rules[%d]: unknown severity %q", i, r.Severity)
			}
			rules = append(rules, conflict.Rule{A: a, B: b, MinOverlapRatio: r.MinOverlapRatio, Severity: sev})
		}
		s.Policy.Rules = rules
	}

	return s, nil
}

// Window returns the refresh window containing now: from the start of its
// week, HorizonDays days long.
func (s Settings) Window(now time.Time) model.Window {
	start := layout.WeekStart(now, s.WeekStart, s.Location)
	days := s.HorizonDays
	if days < 7 {
		days = 7
	}
	return model.DaysWindow(start, days, s.Location)
}
