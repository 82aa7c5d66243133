package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "timedesk/internal/log"
)

const defaultMaxOccurrencesPerEvent = 500

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// Location is the zone every occurrence is converted to. nil is time.Local.
	Location *time.Location

	// RangeStart / RangeEnd bound the occurrences, inclusive.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps a single rule. 0 uses the default.
	MaxOccurrencesPerEvent int
}

// Occurrence is one concrete instance of a VEvent.
type Occurrence struct {
	Event VEvent
	Start time.Time
	End   time.Time
}

// ExpandResult lists the occurrences and the UIDs that hit the cap.
type ExpandResult struct {
	Occurrences     []Occurrence
	TruncatedEvents []string
}

// SeasonWindow is the span whose dates the "DD.MM" convention can express
// for baseYear: December of baseYear through November of the next year.
func SeasonWindow(baseYear int, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	start := time.Date(baseYear, time.December, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(1, 0, 0).Add(-time.Nanosecond)
}

// Expand turns VEvents into occurrences within the configured range,
// applying RRULE, EXDATE and RECURRENCE-ID overrides. Events are visited in
// input order so the output is deterministic.
func Expand(events []VEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("ics: expand range ends before it starts")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	overrides := make(map[string][]VEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
		}
	}

	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			continue
		}
		var (
			occ    []Occurrence
			hitCap bool
		)
		if ev.RawRRule == "" {
			occ = expandSingle(ev, overrides[ev.UID], cfg)
		} else {
			occ, hitCap = expandRecurring(ev, overrides[ev.UID], cfg)
		}
		result.Occurrences = append(result.Occurrences, occ...)

		if hitCap {
			result.TruncatedEvents = append(result.TruncatedEvents, ev.UID)
			appLog.Error("ics: occurrences truncated", errors.New("max occurrences reached"),
				"uid", ev.UID,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}
	return result, nil
}

func expandSingle(ev VEvent, overrides []VEvent, cfg ExpandConfig) []Occurrence {
	start, end := ev.Start, ev.End
	if o, ok := findOverride(overrides, start); ok {
		ev, start, end = o, o.Start, o.End
	}
	if !inRange(start, cfg) {
		return nil
	}
	return []Occurrence{makeOccurrence(ev, start, end, cfg.Location)}
}

func expandRecurring(ev VEvent, overrides []VEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics: bad RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	loc := ev.Start.Location()
	starts := set.Between(cfg.RangeStart.In(loc), cfg.RangeEnd.In(loc), true)

	hitCap := false
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	var dur time.Duration
	if !ev.End.IsZero() {
		dur = ev.End.Sub(ev.Start)
	}

	out := make([]Occurrence, 0, len(starts))
	for _, start := range starts {
		var end time.Time
		if ev.AllDay {
			start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
			end = start.Add(24 * time.Hour)
		} else if dur > 0 {
			end = start.Add(dur)
		}

		inst := ev
		if o, ok := findOverride(overrides, start); ok {
			inst, start, end = o, o.Start, o.End
		}
		out = append(out, makeOccurrence(inst, start, end, cfg.Location))
	}
	return out, hitCap
}

// findOverride returns the override whose RECURRENCE-ID is start.
func findOverride(overrides []VEvent, start time.Time) (VEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return VEvent{}, false
}

func inRange(t time.Time, cfg ExpandConfig) bool {
	return !t.Before(cfg.RangeStart) && !t.After(cfg.RangeEnd)
}

func makeOccurrence(ev VEvent, start, end time.Time, loc *time.Location) Occurrence {
	occ := Occurrence{Event: ev, Start: start.In(loc)}
	if !end.IsZero() {
		occ.End = end.In(loc)
	}
	return occ
}
