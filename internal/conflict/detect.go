package conflict

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"studycal/internal/model"
)

// conflictNamespace seeds the name-based UUIDs of conflict groups, so the
// same member set always gets the same id.
var conflictNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("studycal/conflict"))

// Detect finds groups of clashing events.
//
// Two events clash when their half-open ranges overlap, or, with
// Policy.Buffer set, when two buffered events sit closer than the buffer.
// Clashes are grouped transitively. All-day events are ignored. An empty or
// single-event input yields no conflicts. events is not modified.
func Detect(events []model.CalendarEvent, policy Policy) []model.Conflict {
	policy = policy.withDefaults()

	timed := make([]model.CalendarEvent, 0, len(events))
	for _, ev := range events {
		if ev.AllDay() {
			continue
		}
		timed = append(timed, ev)
	}
	if len(timed) < 2 {
		return []model.Conflict{}
	}

	sort.SliceStable(timed, func(i, j int) bool {
		a, b := timed[i], timed[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if !a.End.Equal(b.End) {
			return a.End.Before(b.End)
		}
		return a.ID < b.ID
	})

	uf := newUnionFind(len(timed))
	edges := make([][]model.Overlap, len(timed))

	// Sweep: active holds indices whose end (plus buffer) lies after the
	// current start; only they can clash with it.
	active := make([]int, 0, 8)
	for i, cur := range timed {
		kept := active[:0]
		for _, j := range active {
			if timed[j].End.Add(policy.Buffer).After(cur.Start) {
				kept = append(kept, j)
			}
		}
		active = kept

		for _, j := range active {
			prev := timed[j]
			edge, ok := pairEdge(prev, cur, policy)
			if !ok {
				continue
			}
			uf.union(j, i)
			edges[i] = append(edges[i], edge)
		}
		active = append(active, i)
	}

	groups := make(map[int][]int)
	order := make([]int, 0)
	for i := range timed {
		root := uf.find(i)
		if _, seen := groups[root]; !seen {
			order = append(order, root)
		}
		groups[root] = append(groups[root], i)
	}

	out := make([]model.Conflict, 0)
	for _, root := range order {
		members := groups[root]
		if len(members) < 2 {
			continue
		}
		out = append(out, buildConflict(timed, members, edges, policy))
	}
	return out
}

// pairEdge reports whether prev (which starts no later than cur) clashes
// with cur.
func pairEdge(prev, cur model.CalendarEvent, policy Policy) (model.Overlap, bool) {
	if prev.Overlaps(cur) {
		return model.Overlap{
			A:        prev.ID,
			B:        cur.ID,
			Overlap:  overlapDuration(prev, cur),
			Severity: policy.Classify(prev, cur),
		}, true
	}

	if policy.Buffer <= 0 || !policy.buffered(prev.Type) || !policy.buffered(cur.Type) {
		return model.Overlap{}, false
	}
	if prev.Duration() <= 0 || cur.Duration() <= 0 {
		return model.Overlap{}, false
	}
	gap := cur.Start.Sub(prev.End)
	if gap < 0 || gap >= policy.Buffer {
		return model.Overlap{}, false
	}
	return model.Overlap{
		A:        prev.ID,
		B:        cur.ID,
		Gap:      gap,
		Severity: model.SeverityMinor,
	}, true
}

func buildConflict(timed []model.CalendarEvent, members []int, edges [][]model.Overlap, policy Policy) model.Conflict {
	c := model.Conflict{
		EventIDs:    make([]string, 0, len(members)),
		Pairs:       make([]model.Overlap, 0, len(members)),
		Severity:    model.SeverityMinor,
		Start:       timed[members[0]].Start,
		End:         timed[members[0]].End,
		Suggestions: make([]model.Suggestion, 0),
	}

	group := make([]model.CalendarEvent, 0, len(members))
	for _, i := range members {
		ev := timed[i]
		group = append(group, ev)
		c.EventIDs = append(c.EventIDs, ev.ID)
		c.Pairs = append(c.Pairs, edges[i]...)
		if ev.End.After(c.End) {
			c.End = ev.End
		}
	}
	for _, p := range c.Pairs {
		if p.Severity.Rank() > c.Severity.Rank() {
			c.Severity = p.Severity
		}
	}

	c.ID = uuid.NewSHA1(conflictNamespace, []byte(strings.Join(c.EventIDs, "\n"))).String()
	c.Suggestions = append(c.Suggestions, suggest(group, timed, policy)...)
	return c
}

// Index maps every event id in conflicts to the ids it clashes with. The
// relation is symmetric: if b is listed under a, a is listed under b.
func Index(conflicts []model.Conflict) map[string][]string {
	idx := make(map[string][]string)
	for _, c := range conflicts {
		for _, id := range c.EventIDs {
			for _, other := range c.EventIDs {
				if other != id {
					idx[id] = append(idx[id], other)
				}
			}
		}
	}
	return idx
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

// union keeps the smaller index as root so group order follows start order.
func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if ra < rb {
		u.parent[rb] = ra
	} else {
		u.parent[ra] = rb
	}
}
