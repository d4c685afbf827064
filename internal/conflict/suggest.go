package conflict

import (
	"fmt"
	"time"

	"studycal/internal/model"
)

const (
	ActionMove       = "move"
	ActionReview     = "review"
	ActionContact    = "contact_instructor"
	ActionStartEarly = "start_early"
)

// suggest produces best-effort hints for one conflict group. An empty
// result is normal.
//
// Study sessions are the only events the planner may move; they go to the
// next free slot of the same length later that day. Fixed events (classes,
// exams, deadlines) get advisory messages instead.
func suggest(group []model.CalendarEvent, all []model.CalendarEvent, policy Policy) []model.Suggestion {
	out := make([]model.Suggestion, 0)

	groupEnd := group[0].End
	for _, ev := range group {
		if ev.End.After(groupEnd) {
			groupEnd = ev.End
		}
	}

	for i, ev := range group {
		switch ev.Type {
		case model.TypeStudySession:
			if s, ok := moveToFreeSlot(ev, groupEnd, all, policy); ok {
				out = append(out, s)
			}

		case model.TypeSchedule:
			other, ok := firstOverlapping(group[:i], ev, model.TypeSchedule)
			if !ok {
				continue
			}
			out = append(out, model.Suggestion{
				EventID: ev.ID,
				Action:  ActionReview,
				Message: fmt.Sprintf("%q overlaps %q; check your registration or pick another section", ev.Label, other.Label),
			})

		case model.TypeExam:
			other, ok := firstOverlapping(group[:i], ev, model.TypeSchedule, model.TypeExam)
			if !ok {
				other, ok = firstOverlapping(group[i+1:], ev, model.TypeSchedule)
			}
			if !ok {
				continue
			}
			out = append(out, model.Suggestion{
				EventID: ev.ID,
				Action:  ActionContact,
				Message: fmt.Sprintf("Ask the instructor of %q about an alternative sitting; it clashes with %q", ev.Label, other.Label),
			})

		case model.TypeAssignment:
			if blocker, ok := earliestBlocker(ev, group); ok {
				out = append(out, model.Suggestion{
					EventID: ev.ID,
					Action:  ActionStartEarly,
					Message: fmt.Sprintf("Finish %q before %s (%s)", ev.Title, blocker.Start.Format("Mon 15:04"), blocker.Label),
				})
			}
		}
	}
	return out
}

// moveToFreeSlot searches the event's own day, from the end of the conflict
// group onward, for a slot of the same length that overlaps nothing.
func moveToFreeSlot(ev model.CalendarEvent, from time.Time, all []model.CalendarEvent, policy Policy) (model.Suggestion, bool) {
	dur := ev.Duration()
	if dur <= 0 {
		return model.Suggestion{}, false
	}

	loc := ev.Start.Location()
	d := ev.Start
	earliest := time.Date(d.Year(), d.Month(), d.Day(), policy.EarliestHour, 0, 0, 0, loc)
	latest := time.Date(d.Year(), d.Month(), d.Day(), policy.LatestHour, 0, 0, 0, loc)

	t := from
	if t.Before(earliest) {
		t = earliest
	}
	t = roundUp(t, earliest, policy.SlotStep)

	for !t.Add(dur).After(latest) {
		candidate := model.CalendarEvent{Start: t, End: t.Add(dur)}
		blockedUntil, blocked := firstBlock(candidate, ev.ID, all)
		if !blocked {
			start, end := candidate.Start, candidate.End
			return model.Suggestion{
				EventID:       ev.ID,
				Action:        ActionMove,
				Message:       fmt.Sprintf("Move %q to %s-%s", ev.Label, start.Format("15:04"), end.Format("15:04")),
				ProposedStart: &start,
				ProposedEnd:   &end,
			}, true
		}
		next := roundUp(blockedUntil, earliest, policy.SlotStep)
		if !next.After(t) {
			next = t.Add(policy.SlotStep)
		}
		t = next
	}
	return model.Suggestion{}, false
}

// firstBlock returns the latest end among events overlapping candidate,
// ignoring the event being moved and all-day events.
func firstBlock(candidate model.CalendarEvent, skipID string, all []model.CalendarEvent) (time.Time, bool) {
	var until time.Time
	blocked := false
	for _, other := range all {
		if other.ID == skipID || other.AllDay() || !other.Overlaps(candidate) {
			continue
		}
		if !blocked || other.End.After(until) {
			until = other.End
		}
		blocked = true
	}
	return until, blocked
}

// firstOverlapping returns the first event in candidates of one of types
// that overlaps ev, skipping ev itself.
func firstOverlapping(candidates []model.CalendarEvent, ev model.CalendarEvent, types ...model.EventType) (model.CalendarEvent, bool) {
	for _, other := range candidates {
		if other.ID == ev.ID || !other.Overlaps(ev) {
			continue
		}
		for _, t := range types {
			if other.Type == t {
				return other, true
			}
		}
	}
	return model.CalendarEvent{}, false
}

func earliestBlocker(ev model.CalendarEvent, group []model.CalendarEvent) (model.CalendarEvent, bool) {
	var best model.CalendarEvent
	found := false
	for _, other := range group {
		if other.ID == ev.ID || other.Type == model.TypeAssignment || !other.Overlaps(ev) {
			continue
		}
		if !found || other.Start.Before(best.Start) {
			best = other
			found = true
		}
	}
	return best, found
}

// roundUp moves t forward to the next step boundary counted from origin.
func roundUp(t, origin time.Time, step time.Duration) time.Time {
	if !t.After(origin) {
		return origin
	}
	off := t.Sub(origin)
	if rem := off % step; rem != 0 {
		off += step - rem
	}
	return origin.Add(off)
}
