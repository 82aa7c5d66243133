package timeline

import (
	"strconv"
	"strings"
	"time"

	appLog "timedesk/internal/log"
	"timedesk/internal/model"
)

// DateTimeLayout is the wire format of every event time string.
const DateTimeLayout = "02.01 15:04"

// ParseDateTime parses "DD.MM HH:MM". December belongs to baseYear, every
// other month to baseYear+1, so a season that straddles New Year sorts
// chronologically. ok is false for anything unparsable, including dates
// that do not exist (31.02).
func ParseDateTime(s string, baseYear int, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	parts := strings.Split(strings.TrimSpace(s), " ")
	if len(parts) != 2 {
		return time.Time{}, false
	}
	datePart := strings.Split(parts[0], ".")
	timePart := strings.Split(parts[1], ":")
	if len(datePart) != 2 || len(timePart) != 2 {
		return time.Time{}, false
	}

	day, err1 := strconv.Atoi(datePart[0])
	month, err2 := strconv.Atoi(datePart[1])
	hour, err3 := strconv.Atoi(timePart[0])
	minute, err4 := strconv.Atoi(timePart[1])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return time.Time{}, false
	}
	if month < 1 || month > 12 || day < 1 || day > 31 || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, false
	}

	year := baseYear + 1
	if month == 12 {
		year = baseYear
	}
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// FormatDateTime renders t back into the wire format.
func FormatDateTime(t time.Time) string {
	return t.Format(DateTimeLayout)
}

// FormatClock splits t into the displayed date and time readouts.
func FormatClock(t time.Time) model.Clock {
	if t.IsZero() {
		return model.Clock{}
	}
	return model.Clock{Date: t.Format("02.01"), Time: t.Format("15:04")}
}

// BaseYearFor picks the season base year for a wall clock: December opens
// a season, any other month belongs to the season opened the year before.
func BaseYearFor(now time.Time) int {
	if now.Month() == time.December {
		return now.Year()
	}
	return now.Year() - 1
}

// SeasonNow pins the wall clock onto the two season days: 31.12 while it is
// December, 01.01 otherwise, keeping hour and minute.
func SeasonNow(now time.Time, baseYear int) time.Time {
	if now.Month() == time.December {
		return time.Date(baseYear, time.December, 31, now.Hour(), now.Minute(), 0, 0, now.Location())
	}
	return time.Date(baseYear+1, time.January, 1, now.Hour(), now.Minute(), 0, 0, now.Location())
}

// ParseEvents turns records into events. Records whose times do not parse
// are kept with zero times so one corrupt record never drops the rest.
func ParseEvents(records []model.Record, baseYear int, loc *time.Location) []model.Event {
	events := make([]model.Event, 0, len(records))
	for i, rec := range records {
		start, okStart := ParseDateTime(rec.StartStr, baseYear, loc)
		end, okEnd := ParseDateTime(rec.EndStr, baseYear, loc)
		if !okStart || !okEnd {
			appLog.Error("timeline: unparsable event time", nil,
				"id", rec.ID, "start", rec.StartStr, "end", rec.EndStr)
		}
		events = append(events, model.Event{
			ID:              rec.ID,
			Lane:            model.LaneOf(rec.ID),
			Start:           start,
			End:             end,
			DurationMinutes: rec.DurationMinutes,
			Index:           i,
			Record:          rec,
		})
	}
	return events
}
