package web

import (
	"net/http"
	"time"

	"studycal/internal/conflict"
	"studycal/internal/ics"
	appLog "studycal/internal/log"
	"studycal/internal/model"
	"studycal/internal/planner"
)

const maxDays = 62

// eventDTO is a CalendarEvent plus the derived flags clients need.
type eventDTO struct {
	model.CalendarEvent
	AllDay        bool     `json:"all_day"`
	AIGenerated   bool     `json:"ai_generated,omitempty"`
	ConflictsWith []string `json:"conflicts_with,omitempty"`
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Events          []eventDTO `json:"events"`
	Skipped         int        `json:"skipped"`
	TruncatedBlocks []string   `json:"truncated_blocks,omitempty"`
	RangeStart      time.Time  `json:"range_start"`
	RangeEnd        time.Time  `json:"range_end"`
	DisplayTimeZone string     `json:"display_timezone"`
	WeekStart       string     `json:"week_start"`
	Version         string     `json:"version"`
}

// weekResponse is the JSON response shape for /api/week.
type weekResponse struct {
	Days            []model.DayLayout `json:"days"`
	ConflictIDs     []string          `json:"conflict_ids"`
	DisplayTimeZone string            `json:"display_timezone"`
	Version         string            `json:"version"`
}

// conflictsResponse is the JSON response shape for /api/conflicts.
type conflictsResponse struct {
	Conflicts  []model.Conflict `json:"conflicts"`
	RangeStart time.Time        `json:"range_start"`
	RangeEnd   time.Time        `json:"range_end"`
	Version    string           `json:"version"`
}

// window resolves ?start=YYYY-MM-DD&days=N in the display timezone. start
// defaults to the first day of the current week, days to defDays.
func (s *Server) window(r *http.Request, defDays int) (model.Window, bool) {
	settings := s.engine.Settings()
	q := r.URL.Query()

	days := parseIntDefault(q.Get("days"), defDays)
	if days <= 0 {
		days = defDays
	}
	if days > maxDays {
		days = maxDays
	}

	start := settings.Window(s.now()).Start
	if v := q.Get("start"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, settings.Location)
		if err != nil {
			return model.Window{}, false
		}
		start = t
	}
	return model.DaysWindow(start, days, settings.Location), true
}

// handleEvents returns the normalized events intersecting the requested
// window.
//
// GET /api/events?start=2025-12-01&days=7
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	window, ok := s.window(r, 7)
	if !ok {
		writeError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
		return
	}

	snap, err := s.engine.View(r.Context(), window)
	if err != nil {
		appLog.Error("api events: view failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}

	peers := conflict.Index(snap.Conflicts)
	events := snap.EventsIn(window)
	dtos := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		dtos = append(dtos, eventDTO{
			CalendarEvent: ev,
			AllDay:        ev.AllDay(),
			AIGenerated:   ev.AIGenerated(),
			ConflictsWith: peers[ev.ID],
		})
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		Events:          dtos,
		Skipped:         len(snap.Skipped),
		TruncatedBlocks: snap.TruncatedBlocks,
		RangeStart:      window.Start,
		RangeEnd:        window.End,
		DisplayTimeZone: s.engine.Settings().Location.String(),
		WeekStart:       s.cfg.WeekStart,
		Version:         snap.Version,
	})
}

// handleWeek returns the packed layout of the week containing ?start.
func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	window, ok := s.window(r, 7)
	if !ok {
		writeError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
		return
	}

	days, snap, err := s.engine.Week(r.Context(), window.Start)
	if err != nil {
		appLog.Error("api week: view failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load week")
		return
	}

	ids := make([]string, 0)
	for _, c := range snap.ConflictsIn(model.DaysWindow(days[0].Date, len(days), s.engine.Settings().Location)) {
		ids = append(ids, c.ID)
	}

	writeJSON(w, http.StatusOK, weekResponse{
		Days:            days,
		ConflictIDs:     ids,
		DisplayTimeZone: s.engine.Settings().Location.String(),
		Version:         snap.Version,
	})
}

// handleConflicts returns the conflict groups touching the window.
func (s *Server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	window, ok := s.window(r, 7)
	if !ok {
		writeError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
		return
	}

	snap, err := s.engine.View(r.Context(), window)
	if err != nil {
		appLog.Error("api conflicts: view failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load conflicts")
		return
	}

	writeJSON(w, http.StatusOK, conflictsResponse{
		Conflicts:  snap.ConflictsIn(window),
		RangeStart: window.Start,
		RangeEnd:   window.End,
		Version:    snap.Version,
	})
}

// handleRefresh recomputes the cached snapshot for the default window.
//
// POST /api/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	snap, changed, err := s.engine.Refresh(r.Context(), s.engine.Settings().Window(s.now()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"version":   snap.Version,
		"changed":   changed,
		"events":    len(snap.Events),
		"conflicts": len(snap.Conflicts),
	})
}

// handleICS exports the cached snapshot (or the default window) as an
// iCalendar subscription.
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.engine.Snapshot()
	if !ok {
		var err error
		snap, err = s.engine.View(r.Context(), s.engine.Settings().Window(s.now()))
		if err != nil {
			appLog.Error("calendar.ics: view failed", err)
			writeError(w, http.StatusInternalServerError, "failed to load events")
			return
		}
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("ETag", `"`+snap.Version+`"`)
	if match := r.Header.Get("If-None-Match"); match != "" && match == `"`+snap.Version+`"` {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	_, _ = w.Write(s.exportICS(snap))
}

func (s *Server) exportICS(snap planner.Snapshot) []byte {
	s.icsMu.RLock()
	c := s.icsCache
	s.icsMu.RUnlock()
	if c != nil && c.version == snap.Version {
		return c.body
	}

	body := []byte(ics.Export(snap.Events, "studycal", snap.ComputedAt))

	s.icsMu.Lock()
	s.icsCache = &icsCache{version: snap.Version, body: body}
	s.icsMu.Unlock()
	return body
}
