package model

import "time"

// Record is one raw event as delivered by a source (JSON/YAML file, ICS
// import). Times are "DD.MM HH:MM" strings; the year is implied by the
// season convention applied in internal/timeline.
type Record struct {
	ID              string  `json:"id" yaml:"id"`
	StartStr        string  `json:"start_datetime_str" yaml:"start_datetime_str"`
	EndStr          string  `json:"end_datetime_str" yaml:"end_datetime_str"`
	DurationMinutes float64 `json:"duration_minutes" yaml:"duration_minutes"`

	// Opaque presentation content. Never used by layout math.
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`
	StartTime string `json:"start_time,omitempty" yaml:"start_time,omitempty"`
	Date      string `json:"date,omitempty" yaml:"date,omitempty"`
	Special   bool   `json:"special,omitempty" yaml:"special,omitempty"`
}

// Lane is one of the two fixed parallel columns.
type Lane int

const (
	// LaneAux marks events that are neither A nor B: they only contribute
	// to canvas extent and snap markers.
	LaneAux Lane = iota
	LaneA
	LaneB
)

func (l Lane) String() string {
	switch l {
	case LaneA:
		return "a"
	case LaneB:
		return "b"
	default:
		return "aux"
	}
}

// LaneOf derives the lane from the id suffix.
func LaneOf(id string) Lane {
	switch {
	case len(id) > 0 && id[len(id)-1] == 'a':
		return LaneA
	case len(id) > 0 && id[len(id)-1] == 'b':
		return LaneB
	default:
		return LaneAux
	}
}

// Event is a parsed Record. Start/End are zero when the source string could
// not be parsed; see Valid.
type Event struct {
	ID              string
	Lane            Lane
	Start           time.Time
	End             time.Time
	DurationMinutes float64

	// Index is the position of the record in the delivered collection and
	// breaks start-time ties.
	Index int

	Record Record
}

// Valid reports whether both interval bounds parsed.
func (e Event) Valid() bool {
	return !e.Start.IsZero() && !e.End.IsZero()
}

// Midpoint is the center instant of the event interval.
func (e Event) Midpoint() time.Time {
	return e.Start.Add(e.End.Sub(e.Start) / 2)
}

// TimeRange is the global span mapped onto the canvas.
type TimeRange struct {
	MinTime      time.Time
	MaxTime      time.Time
	TotalMinutes float64
}

// IsZero reports whether no range has been computed yet.
func (r TimeRange) IsZero() bool {
	return r.MinTime.IsZero() && r.MaxTime.IsZero()
}

// Group is an overlap cluster of one or two events, never two of the same lane.
type Group struct {
	Events []Event

	// ForcedNarrow is set on a solo lane-A event that overlaps some lane-B
	// event but found no unclaimed partner.
	ForcedNarrow bool
}

// WidthClass is the presentation width of a rendered event.
type WidthClass string

const (
	Wide        WidthClass = "wide"
	NarrowLeft  WidthClass = "narrow-left"
	NarrowRight WidthClass = "narrow-right"
)

// Geometry is the pixel placement of one event on the canvas.
// Index is the event's position in the delivered collection; ids need not
// be unique.
type Geometry struct {
	ID          string     `json:"id"`
	Index       int        `json:"index"`
	Lane        string     `json:"lane"`
	Top         float64    `json:"top"`
	Height      float64    `json:"height"`
	Width       float64    `json:"width"`
	WidthClass  WidthClass `json:"width_class"`
	RotationDeg float64    `json:"rotation_deg"`
	Scale       float64    `json:"scale"`
	Auxiliary   bool       `json:"auxiliary,omitempty"`
}

// Canvas is the overall surface extent.
type Canvas struct {
	// Height is the full computed extent including the margin.
	Height float64 `json:"height"`
	// ScrollHeight is the scrollable region, half of Height.
	ScrollHeight float64 `json:"scroll_height"`
}

// Position is the live triple kept consistent by the synchronizer.
type Position struct {
	Percent   float64   `json:"percent"`
	Time      time.Time `json:"time"`
	ScrollTop float64   `json:"scroll_top"`
	// Scrolled reports whether the last update moved the container.
	Scrolled bool   `json:"scrolled"`
	Clock    Clock  `json:"clock"`
	State    string `json:"state"`
}

// Clock is the displayed readout.
type Clock struct {
	Date string `json:"date"`
	Time string `json:"time"`
}
