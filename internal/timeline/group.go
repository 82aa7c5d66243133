package timeline

import (
	"sort"
	"time"

	"timedesk/internal/model"
)

// Overlaps reports whether two intervals share any open stretch of time.
// Touching endpoints do not overlap. Events with unparsed bounds never
// overlap anything.
func Overlaps(a, b model.Event) bool {
	if !a.Valid() || !b.Valid() {
		return false
	}
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// GroupEvents partitions the lane events into clusters of at most one A and
// one B. Auxiliary events are ignored.
//
// The overlap flag of an A event is computed against every B event, while
// its partner is the first B event still unclaimed when the A event is
// reached. The two can disagree; the A event is then emitted alone with
// ForcedNarrow set.
func GroupEvents(events []model.Event) []model.Group {
	sorted := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.Lane == model.LaneA || ev.Lane == model.LaneB {
			sorted = append(sorted, ev)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	flagged := make([]bool, len(sorted))
	for i, a := range sorted {
		if a.Lane != model.LaneA {
			continue
		}
		for _, b := range sorted {
			if b.Lane == model.LaneB && Overlaps(a, b) {
				flagged[i] = true
				break
			}
		}
	}

	processed := make([]bool, len(sorted))
	groups := make([]model.Group, 0, len(sorted))

	for i, ev := range sorted {
		if processed[i] {
			continue
		}
		processed[i] = true

		if ev.Lane != model.LaneA || !ev.Valid() || !flagged[i] {
			groups = append(groups, model.Group{Events: []model.Event{ev}})
			continue
		}

		partner := -1
		for j, b := range sorted {
			if processed[j] || b.Lane != model.LaneB {
				continue
			}
			if Overlaps(ev, b) {
				partner = j
				break
			}
		}
		if partner < 0 {
			groups = append(groups, model.Group{Events: []model.Event{ev}, ForcedNarrow: true})
			continue
		}
		processed[partner] = true
		groups = append(groups, model.Group{Events: []model.Event{ev, sorted[partner]}})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groupStart(groups[i]).Before(groupStart(groups[j]))
	})
	return groups
}

func groupStart(g model.Group) time.Time {
	start := g.Events[0].Start
	for _, ev := range g.Events[1:] {
		if ev.Start.Before(start) {
			start = ev.Start
		}
	}
	return start
}
