package timeline

import (
	"fmt"
	"time"

	"timedesk/internal/model"
)

// Cutoff is the clock time on 1 January at which the visual timeline ends.
type Cutoff struct {
	Hour   int
	Minute int
}

// DefaultCutoff ends the timeline at 03:45 on New Year's morning.
var DefaultCutoff = Cutoff{Hour: 3, Minute: 45}

// ParseCutoff parses "HH:MM".
func ParseCutoff(s string) (Cutoff, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Cutoff{}, fmt.Errorf("timeline: invalid cutoff %q: %w", s, err)
	}
	return Cutoff{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Cutoff) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// CalculateTimeRange derives the global span from every event start,
// auxiliary ones included. With no parsable start it returns prev and false
// so the caller keeps its previous state.
//
// MaxTime is the cutoff on 1 January of MinTime's year, moved to the next
// year when MinTime is not before it; TotalMinutes is therefore always > 0.
func CalculateTimeRange(events []model.Event, prev model.TimeRange, cutoff Cutoff) (model.TimeRange, bool) {
	var minTime time.Time
	for _, ev := range events {
		if ev.Start.IsZero() {
			continue
		}
		if minTime.IsZero() || ev.Start.Before(minTime) {
			minTime = ev.Start
		}
	}
	if minTime.IsZero() {
		return prev, false
	}

	loc := minTime.Location()
	maxTime := time.Date(minTime.Year(), time.January, 1, cutoff.Hour, cutoff.Minute, 0, 0, loc)
	if !minTime.Before(maxTime) {
		maxTime = time.Date(minTime.Year()+1, time.January, 1, cutoff.Hour, cutoff.Minute, 0, 0, loc)
	}

	return model.TimeRange{
		MinTime:      minTime,
		MaxTime:      maxTime,
		TotalMinutes: maxTime.Sub(minTime).Minutes(),
	}, true
}

// MinutesFrom is the offset of t from the range start.
func MinutesFrom(r model.TimeRange, t time.Time) float64 {
	return t.Sub(r.MinTime).Minutes()
}
