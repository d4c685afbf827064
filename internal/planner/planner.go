package planner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"studycal/internal/conflict"
	"studycal/internal/layout"
	appLog "studycal/internal/log"
	"studycal/internal/metrics"
	"studycal/internal/model"
	"studycal/internal/normalize"
	"studycal/internal/store"
)

// FeedLoader produces records from external feeds for a window.
type FeedLoader interface {
	Load(ctx context.Context, window model.Window) (model.Sources, error)
}

// Snapshot is the computed calendar for one input version.
type Snapshot struct {
	// Version is the digest of the inputs the snapshot was computed from.
	Version         string                    `json:"version"`
	Window          model.Window              `json:"window"`
	Events          []model.CalendarEvent     `json:"events"`
	Skipped         []normalize.SkippedRecord `json:"skipped,omitempty"`
	TruncatedBlocks []string                  `json:"truncated_blocks,omitempty"`
	Conflicts       []model.Conflict          `json:"conflicts"`
	ComputedAt      time.Time                 `json:"computed_at"`
}

// Compute runs the normalizer and the conflict detector over src. It has
// no side effects besides logging; Version and ComputedAt are left empty.
func Compute(src model.Sources, window model.Window, s Settings) Snapshot {
	res := normalize.Normalize(src, window, s.Normalize)
	return Snapshot{
		Window:          window,
		Events:          res.Events,
		Skipped:         res.Skipped,
		TruncatedBlocks: res.TruncatedBlocks,
		Conflicts:       conflict.Detect(res.Events, s.Policy),
	}
}

// Digest identifies the inputs of a computation.
func Digest(src model.Sources, window model.Window) (string, error) {
	data, err := json.Marshal(struct {
		Sources model.Sources `json:"sources"`
		Window  model.Window  `json:"window"`
	}{src, window})
	if err != nil {
		return "", fmt.Errorf("planner: digest: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Covers reports whether the snapshot was computed for a window containing w.
func (s Snapshot) Covers(w model.Window) bool {
	return !s.Window.IsZero() && !w.Start.Before(s.Window.Start) && !w.End.After(s.Window.End)
}

// EventsIn returns the events intersecting w, in snapshot order.
func (s Snapshot) EventsIn(w model.Window) []model.CalendarEvent {
	out := make([]model.CalendarEvent, 0)
	for _, ev := range s.Events {
		if w.Intersects(ev.Start, ev.End) {
			out = append(out, ev)
		}
	}
	return out
}

// ConflictsIn returns the conflicts whose span intersects w.
func (s Snapshot) ConflictsIn(w model.Window) []model.Conflict {
	out := make([]model.Conflict, 0)
	for _, c := range s.Conflicts {
		if w.Intersects(c.Start, c.End) {
			out = append(out, c)
		}
	}
	return out
}

// Engine recomputes the calendar when its inputs change and keeps the
// latest snapshot. It is safe for concurrent use.
type Engine struct {
	store    store.Source
	feeds    FeedLoader
	settings Settings
	metrics  *metrics.Metrics
	now      func() time.Time

	// refreshMu serializes refreshes; mu guards snap.
	refreshMu sync.Mutex
	mu        sync.RWMutex
	snap      *Snapshot
}

// NewEngine wires an engine. feeds and m may be nil.
func NewEngine(src store.Source, feeds FeedLoader, s Settings, m *metrics.Metrics) *Engine {
	return &Engine{
		store:    src,
		feeds:    feeds,
		settings: s,
		metrics:  m,
		now:      time.Now,
	}
}

// Settings returns the engine settings.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Snapshot returns the latest snapshot, if any.
func (e *Engine) Snapshot() (Snapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.snap == nil {
		return Snapshot{}, false
	}
	return *e.snap, true
}

// Refresh loads the current inputs for window and recomputes when their
// digest differs from the cached snapshot's. It returns the current
// snapshot and whether it was recomputed. On a store error the cached
// snapshot is kept.
func (e *Engine) Refresh(ctx context.Context, window model.Window) (Snapshot, bool, error) {
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	start := e.now()
	src, version, err := e.load(ctx, window)
	if err != nil {
		e.metrics.RecordRefresh("error", e.now().Sub(start))
		appLog.Error("planner: refresh failed", err, "window_start", window.Start)
		return Snapshot{}, false, err
	}

	if cur, ok := e.Snapshot(); ok && cur.Version == version {
		e.metrics.RecordRefresh("unchanged", e.now().Sub(start))
		appLog.Debug("planner: inputs unchanged", "version", short(version))
		return cur, false, nil
	}

	snap := Compute(src, window, e.settings)
	snap.Version = version
	snap.ComputedAt = e.now()

	e.mu.Lock()
	e.snap = &snap
	e.mu.Unlock()

	e.metrics.RecordSnapshot(snap.Events, snap.Conflicts, len(snap.Skipped), len(snap.TruncatedBlocks))
	e.metrics.RecordRefresh("changed", e.now().Sub(start))
	appLog.Info("planner: snapshot recomputed",
		"version", short(version),
		"events", len(snap.Events),
		"conflicts", len(snap.Conflicts),
		"skipped", len(snap.Skipped),
	)
	return snap, true, nil
}

// View returns a snapshot covering window. The cached snapshot is used
// when it covers window; otherwise a one-off snapshot is computed and not
// cached.
func (e *Engine) View(ctx context.Context, window model.Window) (Snapshot, error) {
	if cur, ok := e.Snapshot(); ok && cur.Covers(window) {
		return cur, nil
	}
	src, version, err := e.load(ctx, window)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Compute(src, window, e.settings)
	snap.Version = version
	snap.ComputedAt = e.now()
	return snap, nil
}

// Week lays out the days starting at the week containing day.
func (e *Engine) Week(ctx context.Context, day time.Time) ([]model.DayLayout, Snapshot, error) {
	start := layout.WeekStart(day, e.settings.WeekStart, e.settings.Location)
	window := model.DaysWindow(start, 7, e.settings.Location)
	snap, err := e.View(ctx, window)
	if err != nil {
		return nil, Snapshot{}, err
	}
	return layout.Week(start, 7, snap.EventsIn(window), e.settings.Layout), snap, nil
}

func (e *Engine) load(ctx context.Context, window model.Window) (model.Sources, string, error) {
	src, err := e.store.Load(ctx)
	if err != nil {
		return model.Sources{}, "", fmt.Errorf("planner: load records: %w", err)
	}

	if e.feeds != nil {
		fed, err := e.feeds.Load(ctx, window)
		if err != nil {
			// Feed problems degrade to store-only results.
			appLog.Error("planner: feed load failed", err)
		} else {
			src = src.Merge(fed)
		}
	}

	version, err := Digest(src, window)
	if err != nil {
		return model.Sources{}, "", err
	}
	return src, version, nil
}

func short(version string) string {
	if len(version) > 12 {
		return version[:12]
	}
	return version
}
