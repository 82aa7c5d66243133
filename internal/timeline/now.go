package timeline

import (
	"time"

	"timedesk/internal/model"
)

// NowTarget picks where "go to now" should land. Before the season starts
// it is the midpoint of the first event. Otherwise it is the midpoint of the
// lane-A event in progress, or of the closest event whose midpoint is not
// after now (an event after now only when none precede it). With no usable
// event it is now itself.
func NowTarget(events []model.Event, now time.Time) time.Time {
	var first *model.Event
	for i := range events {
		ev := &events[i]
		if !ev.Valid() {
			continue
		}
		if first == nil || ev.Start.Before(first.Start) {
			first = ev
		}
	}
	if first == nil {
		return now
	}
	if now.Before(first.Start) {
		return first.Midpoint()
	}

	var (
		nearest  *model.Event
		bestDist time.Duration
		before   bool
	)
	for i := range events {
		ev := &events[i]
		if !ev.Valid() {
			continue
		}
		mid := ev.Midpoint()
		dist := absDuration(mid.Sub(now))
		if !mid.After(now) {
			if nearest == nil || dist < bestDist || !before {
				nearest, bestDist, before = ev, dist, true
			}
		} else if !before && (nearest == nil || dist < bestDist) {
			nearest, bestDist = ev, dist
		}
	}

	for i := range events {
		ev := events[i]
		if ev.Lane != model.LaneA || !ev.Valid() {
			continue
		}
		if !now.Before(ev.Start) && !now.After(ev.End) {
			return ev.Midpoint()
		}
	}
	return nearest.Midpoint()
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
