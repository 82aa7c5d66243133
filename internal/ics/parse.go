package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "timedesk/internal/log"
)

// Custom properties an exported calendar may carry to pin an event onto the
// timeline. Without them every event goes to lane A with a generated id.
const (
	PropertyID      = "X-TIMEDESK-ID"
	PropertyLane    = "X-TIMEDESK-LANE"
	PropertyLabel   = "X-TIMEDESK-LABEL"
	categorySpecial = "SPECIAL"
)

// ErrEmptyBody is returned for a zero-length payload.
var ErrEmptyBody = errors.New("ics: empty body")

// VEvent is the part of a calendar VEVENT the timeline cares about.
// Recurrence is recorded here and expanded in expand.go.
type VEvent struct {
	UID         string
	Summary     string
	Description string

	Start  time.Time
	End    time.Time
	AllDay bool

	// IDHint, Lane and Label come from the X-TIMEDESK-* properties.
	IDHint  string
	Lane    string
	Label   string
	Special bool

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID, in the event's own zone
	IsOverride bool
}

// Parse reads one calendar payload. A VEVENT that cannot be read is logged
// and skipped; the rest are returned.
func Parse(name string, body []byte) ([]VEvent, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "source", name)
		return nil, err
	}

	var events []VEvent
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr != nil {
			appLog.Error("ics vevent skipped", perr, "source", name)
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "source", name, "event_count", len(events))
	return events, nil
}

func propValue(ve *ical.VEvent, p ical.ComponentProperty) string {
	if prop := ve.GetProperty(p); prop != nil {
		return strings.TrimSpace(prop.Value)
	}
	return ""
}

func parseVEvent(ve *ical.VEvent) (VEvent, error) {
	var out VEvent

	out.UID = propValue(ve, ical.ComponentPropertyUniqueId)
	if out.UID == "" {
		return out, errors.New("missing UID")
	}
	out.Summary = propValue(ve, ical.ComponentPropertySummary)
	out.Description = propValue(ve, ical.ComponentPropertyDescription)

	start, err := ve.GetStartAt()
	if err != nil {
		return out, err
	}
	out.Start = start
	// A missing DTEND leaves End zero; the record then carries no end.
	if end, err := ve.GetEndAt(); err == nil {
		out.End = end
	}

	if dt := ve.GetProperty(ical.ComponentPropertyDtStart); dt != nil {
		if vs, ok := dt.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			out.AllDay = true
		}
		if !strings.Contains(dt.Value, "T") {
			out.AllDay = true
		}
	}

	out.IDHint = propValue(ve, ical.ComponentProperty(PropertyID))
	out.Lane = strings.ToLower(propValue(ve, ical.ComponentProperty(PropertyLane)))
	out.Label = propValue(ve, ical.ComponentProperty(PropertyLabel))
	for _, c := range strings.Split(propValue(ve, ical.ComponentPropertyCategories), ",") {
		if strings.EqualFold(strings.TrimSpace(c), categorySpecial) {
			out.Special = true
		}
	}

	out.RawRRule = propValue(ve, ical.ComponentPropertyRrule)

	// EXDATE may repeat and may hold a comma-separated list.
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, start.Location()); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if rid := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); rid != nil {
		if t, err := parseICSTime(rid.Value, start.Location()); err == nil {
			out.Recurrence = &t
			out.IsOverride = true
		}
	}

	return out, nil
}

// parseICSTime reads the bare DATE / DATE-TIME forms used by EXDATE and
// RECURRENCE-ID. Floating values are placed in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if loc == nil {
		loc = time.Local
	}
	switch {
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
