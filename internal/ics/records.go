package ics

import (
	"fmt"
	"sort"

	appLog "timedesk/internal/log"
	"timedesk/internal/model"
	"timedesk/internal/timeline"
)

// Lane names accepted in X-TIMEDESK-LANE.
const (
	laneA   = "a"
	laneB   = "b"
	laneAux = "aux"
)

func laneFor(ev VEvent) string {
	if ev.Special {
		return laneAux
	}
	switch ev.Lane {
	case laneB:
		return laneB
	case laneAux, "special":
		return laneAux
	default:
		return laneA
	}
}

// hintID fits an X-TIMEDESK-ID to the event's lane: the lane suffix of the
// hint is replaced by the one X-TIMEDESK-LANE selects, and an auxiliary
// event gets a suffix-free id.
func hintID(hint, lane string) string {
	if hint == "" {
		return ""
	}
	base := hint
	if model.LaneOf(hint) != model.LaneAux {
		base = hint[:len(hint)-1]
	}
	if lane == laneAux {
		if model.LaneOf(hint) == model.LaneAux {
			return hint
		}
		return "special_" + base
	}
	return base + lane
}

// ToRecords renders occurrences as timeline records, ordered by start. An
// X-TIMEDESK-ID names a non-recurring event, fitted to its lane; every other
// occurrence, and every repeat of a hint already taken, gets a generated id
// whose suffix selects its lane. Ids are unique.
func ToRecords(occs []Occurrence) []model.Record {
	sorted := make([]Occurrence, len(occs))
	copy(sorted, occs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	perUID := make(map[string]int)
	for _, o := range sorted {
		perUID[o.Event.UID]++
	}
	hinted := func(o Occurrence) string {
		if perUID[o.Event.UID] > 1 {
			return ""
		}
		return hintID(o.Event.IDHint, laneFor(o.Event))
	}

	// Hints are reserved up front so generated ids never take them.
	used := make(map[string]bool)
	for _, o := range sorted {
		if id := hinted(o); id != "" {
			used[id] = true
		}
	}

	counters := make(map[string]int)
	nextID := func(lane string) string {
		for {
			counters[lane]++
			var id string
			if lane == laneAux {
				id = fmt.Sprintf("special_%d", counters[lane])
			} else {
				id = fmt.Sprintf("%d%s", counters[lane], lane)
			}
			if !used[id] {
				used[id] = true
				return id
			}
		}
	}

	claimed := make(map[string]bool)
	ids := make([]string, len(sorted))
	for i, o := range sorted {
		if id := hinted(o); id != "" && !claimed[id] {
			claimed[id] = true
			ids[i] = id
		}
	}
	for i, o := range sorted {
		if ids[i] != "" {
			continue
		}
		ids[i] = nextID(laneFor(o.Event))
		if o.Event.IDHint != "" && perUID[o.Event.UID] == 1 {
			appLog.Info("ics: X-TIMEDESK-ID already taken, generated another",
				"uid", o.Event.UID, "hint", o.Event.IDHint, "id", ids[i])
		}
	}

	records := make([]model.Record, 0, len(sorted))
	for i, o := range sorted {
		ev := o.Event
		lane := laneFor(ev)

		rec := model.Record{
			ID:        ids[i],
			StartStr:  timeline.FormatDateTime(o.Start),
			Title:     ev.Summary,
			StartTime: o.Start.Format("15:04"),
			Date:      o.Start.Format("02.01"),
			Special:   lane == laneAux,
		}
		if ev.Label != "" {
			rec.StartTime = ev.Label
		}
		if !o.End.IsZero() {
			rec.EndStr = timeline.FormatDateTime(o.End)
			rec.DurationMinutes = o.End.Sub(o.Start).Minutes()
		}
		records = append(records, rec)
	}
	return records
}
