package session

import (
	"fmt"
	"strconv"

	"timedesk/internal/inspect"
	"timedesk/internal/model"
	"timedesk/internal/scale"
	"timedesk/internal/timeline"
)

const (
	// ClassEvent is carried by every rendered event.
	ClassEvent = "event"
	// ClassAux marks auxiliary events.
	ClassAux = "aux"

	hoverLift  = "translateY(-5px)"
	zIndexBase = 1
	zIndexLift = 10
)

func transform(rotation, zoom float64) string {
	return "rotate(" + strconv.FormatFloat(rotation, 'f', -1, 64) + "deg) scale(" +
		strconv.FormatFloat(zoom, 'f', -1, 64) + ")"
}

// buildElements turns positioned geometry into the element table, in the
// order events were delivered. Skipped events get no element.
func buildElements(events []model.Event, l timeline.Layout) []inspect.Element {
	out := make([]inspect.Element, 0, len(l.Geometry))
	for _, ev := range events {
		g, ok := l.GeometryAt(ev.Index)
		if !ok {
			continue
		}
		classes := []string{ClassEvent, string(g.WidthClass)}
		if g.Auxiliary {
			classes = append(classes, ClassAux)
		}
		out = append(out, inspect.Element{
			ID:        ev.ID,
			Index:     ev.Index,
			Lane:      ev.Lane,
			Auxiliary: g.Auxiliary,
			Classes:   classes,
			Style: inspect.Style{
				Top:             inspect.Px(g.Top),
				Width:           inspect.Px(g.Width),
				Height:          inspect.Px(g.Height),
				Transform:       transform(g.RotationDeg, g.Scale),
				TransformOrigin: "top center",
				ZIndex:          zIndexBase,
			},
			Rotation: g.RotationDeg,
			Scale:    g.Scale,
			Content:  inspect.EventContent(ev.Record),
			Record:   ev.Record,
			Start:    ev.Start,
			End:      ev.End,
		})
	}
	return out
}

func (s *Session) element(id string) (*inspect.Element, error) {
	for i := range s.elements {
		if s.elements[i].ID == id {
			return &s.elements[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownElement, id)
}

// Element returns a copy of one rendered element.
func (s *Session) Element(id string) (inspect.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, err := s.element(id)
	if err != nil {
		return inspect.Element{}, err
	}
	return el.Clone(), nil
}

// Hover lifts an element above its neighbours, or drops it back, keeping
// the rotation it was laid out with. It does nothing while inspecting.
func (s *Session) Hover(id string, on bool) (inspect.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, err := s.element(id)
	if err != nil {
		return inspect.Element{}, err
	}
	if s.inspecting {
		return el.Clone(), nil
	}
	if on {
		el.Style.Transform = transform(el.Rotation, el.Scale) + " " + hoverLift
		el.Style.ZIndex = zIndexLift
	} else {
		el.Style.Transform = transform(el.Rotation, el.Scale)
		el.Style.ZIndex = zIndexBase
	}
	return el.Clone(), nil
}

// Inspecting reports whether inspection mode is on.
func (s *Session) Inspecting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inspecting
}

// ToggleInspection switches between the timeline and the stacked
// inspection layout and returns the new state. Entering captures every
// element; leaving restores them exactly and scrolls the container back
// to the top.
func (s *Session) ToggleInspection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inspecting {
		s.snapshot = inspect.Capture(s.elements)
		res := inspect.Apply(s.elements, s.sync.Viewport().Width, s.cfg.Inspection, s.measurer)
		s.surfaceMinHeight = res.SurfaceMinHeight
		s.inspecting = true
		s.log.Info("inspection mode on", "elements", len(s.elements), "surfaceMinHeight", res.SurfaceMinHeight)
	} else {
		if !s.snapshot.Empty() {
			s.snapshot.Restore(s.elements)
		}
		s.snapshot = inspect.Snapshot{}
		s.surfaceMinHeight = 0
		s.inspecting = false
		if s.sync.State() != scale.Dragging {
			s.sync.Scroll(0)
		}
		s.log.Info("inspection mode off", "elements", len(s.elements))
	}
	s.metrics.InspectionToggle(s.inspecting)
	return s.inspecting
}
