package timeline

import (
	"math"
	"sort"

	appLog "timedesk/internal/log"
	"timedesk/internal/model"
)

// Params are the canvas density and box constants.
type Params struct {
	// PixelsPerMinute is the density D.
	PixelsPerMinute float64
	// Zoom is the visual scale Z applied through an origin-top-center
	// transform. Heights are reported before zoom.
	Zoom float64
	// MinHeight is the smallest box height, pre-zoom.
	MinHeight float64
	// WidthFull and WidthHalf are the wide and narrow box widths.
	WidthFull float64
	WidthHalf float64
	// MaxRotation bounds the random tilt in degrees; ids listed in CalmIDs
	// use CalmRotation instead.
	MaxRotation  float64
	CalmIDs      []string
	CalmRotation float64
	// PairShift lifts the lane-A member of a pair above its natural offset.
	PairShift float64
	// CanvasMargin is added below the furthest extent.
	CanvasMargin float64
	// DefaultDuration replaces a zero duration, in minutes.
	DefaultDuration float64
}

// DefaultParams mirrors the stock table layout.
func DefaultParams() Params {
	return Params{
		PixelsPerMinute: 10,
		Zoom:            2.5,
		MinHeight:       120,
		WidthFull:       400,
		WidthHalf:       180,
		MaxRotation:     7,
		CalmIDs:         []string{"1a"},
		CalmRotation:    1,
		PairShift:       30,
		CanvasMargin:    200,
		DefaultDuration: 30,
	}
}

// Rand is the rotation source; *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Layout is the output of one full layout pass.
type Layout struct {
	Range    model.TimeRange  `json:"-"`
	Groups   []model.Group    `json:"-"`
	Geometry []model.Geometry `json:"geometry"`
	Canvas   model.Canvas     `json:"canvas"`
	// Markers are snap targets in percent, ascending.
	Markers []float64 `json:"markers"`
	// Skipped lists ids that could not be positioned.
	Skipped []string `json:"skipped,omitempty"`
}

// GeometryAt looks up the placement of the event delivered at index.
func (l Layout) GeometryAt(index int) (model.Geometry, bool) {
	for _, g := range l.Geometry {
		if g.Index == index {
			return g, true
		}
	}
	return model.Geometry{}, false
}

// GeometryFor looks up the first placement carrying id.
func (l Layout) GeometryFor(id string) (model.Geometry, bool) {
	for _, g := range l.Geometry {
		if g.ID == id {
			return g, true
		}
	}
	return model.Geometry{}, false
}

// Compute runs grouping, positioning and marker derivation over the whole
// collection.
func Compute(events []model.Event, rng model.TimeRange, p Params, rnd Rand) Layout {
	out := Layout{Range: rng}
	density := p.PixelsPerMinute * p.Zoom
	maxBottom := 0.0

	for _, ev := range events {
		if ev.Lane != model.LaneAux {
			continue
		}
		if ev.Start.IsZero() {
			out.Skipped = append(out.Skipped, ev.ID)
			continue
		}
		minutes := MinutesFrom(rng, ev.Start)
		g := model.Geometry{
			ID:         ev.ID,
			Index:      ev.Index,
			Lane:       ev.Lane.String(),
			Top:        minutes * density,
			Height:     boxHeight(ev, p),
			Width:      p.WidthFull,
			WidthClass: model.Wide,
			Scale:      p.Zoom,
			Auxiliary:  true,
		}
		out.Geometry = append(out.Geometry, g)
		maxBottom = math.Max(maxBottom, g.Top+g.Height*p.Zoom)
	}

	out.Groups = GroupEvents(events)
	for _, group := range out.Groups {
		paired := len(group.Events) == 2
		for _, ev := range group.Events {
			if ev.Start.IsZero() {
				out.Skipped = append(out.Skipped, ev.ID)
				continue
			}
			minutes := MinutesFrom(rng, ev.Start)
			g := model.Geometry{
				ID:          ev.ID,
				Index:       ev.Index,
				Lane:        ev.Lane.String(),
				Top:         minutes * density,
				Height:      boxHeight(ev, p),
				Scale:       p.Zoom,
				RotationDeg: rotation(ev.ID, p, rnd),
			}
			switch {
			case paired && ev.Lane == model.LaneA:
				g.Top -= p.PairShift
				g.WidthClass = model.NarrowLeft
			case paired:
				g.WidthClass = model.NarrowRight
			case ev.Lane == model.LaneB:
				g.WidthClass = model.NarrowRight
			case group.ForcedNarrow:
				g.WidthClass = model.NarrowLeft
			default:
				g.WidthClass = model.Wide
			}
			if g.WidthClass == model.Wide {
				g.Width = p.WidthFull
			} else {
				g.Width = p.WidthHalf
			}
			out.Geometry = append(out.Geometry, g)
			maxBottom = math.Max(maxBottom, (minutes+duration(ev, p))*density)
		}
	}

	height := math.Max(maxBottom, rng.TotalMinutes*density) + p.CanvasMargin
	out.Canvas = model.Canvas{Height: height, ScrollHeight: height / 2}
	out.Markers = ComputeMarkers(events)

	if len(out.Skipped) > 0 {
		appLog.Info("timeline: events without a parsable start were not positioned", "ids", out.Skipped)
	}
	return out
}

// ComputeMarkers maps every event midpoint onto [0,100], the earliest
// midpoint at 0 and the latest at 100. A collapsed midpoint span puts every
// marker at 0.
func ComputeMarkers(events []model.Event) []float64 {
	centers := make([]float64, 0, len(events))
	for _, ev := range events {
		if ev.Valid() {
			centers = append(centers, float64(ev.Midpoint().UnixMilli()))
		}
	}
	if len(centers) == 0 {
		return nil
	}

	lo, hi := centers[0], centers[0]
	for _, c := range centers[1:] {
		lo = math.Min(lo, c)
		hi = math.Max(hi, c)
	}

	markers := make([]float64, len(centers))
	if span := hi - lo; span > 0 {
		for i, c := range centers {
			markers[i] = (c - lo) / span * 100
		}
	}
	sort.Float64s(markers)
	return markers
}

func duration(ev model.Event, p Params) float64 {
	if ev.DurationMinutes > 0 {
		return ev.DurationMinutes
	}
	return p.DefaultDuration
}

func boxHeight(ev model.Event, p Params) float64 {
	return math.Max(p.MinHeight, duration(ev, p)*p.PixelsPerMinute)
}

func rotation(id string, p Params, rnd Rand) float64 {
	if rnd == nil {
		return 0
	}
	limit := p.MaxRotation
	for _, calm := range p.CalmIDs {
		if calm == id {
			limit = p.CalmRotation
			break
		}
	}
	return (rnd.Float64() - 0.5) * 2 * limit
}
