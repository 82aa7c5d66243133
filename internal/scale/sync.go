package scale

import (
	"errors"
	"math"
	"time"

	"timedesk/internal/model"
	"timedesk/internal/timeline"
)

// ErrNoRange is returned by operations that need a time range before the
// first layout pass.
var ErrNoRange = errors.New("scale: no time range")

// State says which input currently owns the position.
type State int

const (
	// Idle: live scroll events drive the indicator.
	Idle State = iota
	// Dragging: the indicator owns the position; scroll events are ignored.
	Dragging
	// Snapping: the indicator just requested a scroll; the echo of that
	// scroll is absorbed instead of being fed back.
	Snapping
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Snapping:
		return "snapping"
	default:
		return "idle"
	}
}

// Source identifies the device behind a drag.
type Source string

const (
	SourcePointer Source = "pointer"
	SourceTouch   Source = "touch"
)

// Mode selects the percent<->scroll mapping.
type Mode int

const (
	ModeWide Mode = iota
	ModeNarrow
)

func (m Mode) String() string {
	if m == ModeNarrow {
		return "narrow"
	}
	return "wide"
}

// echoTolerance is how close a scroll event must be to the requested offset
// to count as its echo. Browsers round scrollTop to device pixels.
const echoTolerance = 0.5

// Config holds the knobs the synchronizer needs from the layout.
type Config struct {
	PixelsPerMinute float64
	Zoom            float64
	// NarrowWidth: viewports at most this wide use the narrow mapping.
	NarrowWidth float64
	// WheelGain scales wheel deltas into percent.
	WheelGain float64
}

// Geometry is the part of a layout pass the synchronizer consumes.
type Geometry struct {
	Range        model.TimeRange
	CanvasHeight float64
	Markers      []float64
	// Centers are lane-event midpoints; wide-mode scrolling centers the
	// container on the one nearest the target time.
	Centers []time.Time
}

// Viewport is the visible container.
type Viewport struct {
	Width           float64
	ContainerHeight float64
}

// Synchronizer keeps percent, scroll offset and clock time consistent.
// It is not safe for concurrent use; the owner serializes calls.
type Synchronizer struct {
	cfg Config
	geo Geometry
	vp  Viewport

	state      State
	dragSource Source
	pending    float64

	percent   float64
	at        time.Time
	scrollTop float64
	scrolled  bool
}

// New returns an idle synchronizer with no geometry.
func New(cfg Config, vp Viewport) *Synchronizer {
	return &Synchronizer{cfg: cfg, vp: vp}
}

// SetGeometry installs a new layout pass. The indicator keeps its percent
// and the time is re-derived from the new range.
func (s *Synchronizer) SetGeometry(g Geometry) {
	s.geo = g
	s.state = Idle
	s.dragSource = ""
	if !g.Range.IsZero() {
		s.at = PercentToTime(g.Range, s.percent)
	}
}

// SetViewport records a resize.
func (s *Synchronizer) SetViewport(vp Viewport) {
	s.vp = vp
}

func (s *Synchronizer) Viewport() Viewport { return s.vp }

func (s *Synchronizer) Mode() Mode {
	if s.vp.Width <= s.cfg.NarrowWidth {
		return ModeNarrow
	}
	return ModeWide
}

func (s *Synchronizer) State() State { return s.state }

// DragSource is the device of the drag in progress, empty when not dragging.
func (s *Synchronizer) DragSource() Source { return s.dragSource }

// Position reports the live triple.
func (s *Synchronizer) Position() model.Position {
	return model.Position{
		Percent:   s.percent,
		Time:      s.at,
		ScrollTop: s.scrollTop,
		Scrolled:  s.scrolled,
		Clock:     timeline.FormatClock(s.at),
		State:     s.state.String(),
	}
}

func (s *Synchronizer) density() float64 {
	return s.cfg.PixelsPerMinute * s.cfg.Zoom
}

func (s *Synchronizer) maxScrollTop() float64 {
	return MaxScrollTop(s.geo.CanvasHeight, s.vp.ContainerHeight)
}

// BeginDrag latches the indicator as owner of the position.
func (s *Synchronizer) BeginDrag(src Source) {
	s.state = Dragging
	s.dragSource = src
}

// DragTo moves the indicator to y on a track of the given height, snapped to
// the nearest marker, and scrolls the container. It is ignored unless a
// drag is in progress.
func (s *Synchronizer) DragTo(y, trackHeight float64) model.Position {
	if s.state != Dragging || trackHeight <= 0 || s.geo.Range.IsZero() {
		return s.unchanged()
	}
	return s.apply(Clamp(y/trackHeight*100), true, true)
}

// EndDrag releases the latch. If the drag left a scroll request in flight
// its echo is still absorbed.
func (s *Synchronizer) EndDrag() {
	if s.state != Dragging {
		return
	}
	s.dragSource = ""
	if s.scrolled {
		s.state = Snapping
		return
	}
	s.state = Idle
}

// LeaveTrack ends a drag when the pointer leaves the tracked region.
func (s *Synchronizer) LeaveTrack() {
	s.EndDrag()
}

// ClickTrack jumps the indicator to y, snapping like a drag.
func (s *Synchronizer) ClickTrack(y, trackHeight float64) model.Position {
	if trackHeight <= 0 || s.geo.Range.IsZero() {
		return s.unchanged()
	}
	return s.apply(Clamp(y/trackHeight*100), true, true)
}

// Wheel nudges the indicator proportionally to the wheel delta. No snap.
func (s *Synchronizer) Wheel(deltaY, trackHeight float64) model.Position {
	if trackHeight <= 0 || s.geo.Range.IsZero() {
		return s.unchanged()
	}
	delta := deltaY / trackHeight * 100 * s.cfg.WheelGain
	return s.apply(Clamp(s.percent+delta), false, true)
}

// SetPercent moves the indicator without touching the container.
func (s *Synchronizer) SetPercent(p float64) model.Position {
	if s.geo.Range.IsZero() {
		return s.unchanged()
	}
	return s.apply(Clamp(p), false, false)
}

// GoToTime moves the indicator to t and scrolls the container there.
func (s *Synchronizer) GoToTime(t time.Time) (model.Position, error) {
	if s.geo.Range.IsZero() {
		return s.unchanged(), ErrNoRange
	}
	return s.apply(Clamp(TimeToPercent(s.geo.Range, t)), false, true), nil
}

// Scroll feeds a live scroll offset into the indicator. It never causes a
// secondary scroll.
func (s *Synchronizer) Scroll(scrollTop float64) model.Position {
	s.scrolled = false
	if s.state == Dragging || s.geo.Range.IsZero() {
		return s.Position()
	}

	if max := s.maxScrollTop(); s.geo.CanvasHeight > 0 && scrollTop > max {
		scrollTop = math.Max(0, max)
	}
	// Elastic overscroll reports offsets above the top.
	scrollTop = math.Max(0, scrollTop)

	if s.state == Snapping {
		s.state = Idle
		if math.Abs(scrollTop-s.pending) <= echoTolerance {
			s.scrollTop = scrollTop
			return s.Position()
		}
	}

	s.scrollTop = scrollTop
	if s.Mode() == ModeNarrow {
		s.percent = ScrollToPercent(scrollTop, s.maxScrollTop())
		s.at = PercentToTime(s.geo.Range, s.percent)
		return s.Position()
	}

	center := scrollTop + s.vp.ContainerHeight/2
	s.at = PixelToTime(s.geo.Range, center, s.density())
	s.percent = Clamp(TimeToPercent(s.geo.Range, s.at))
	return s.Position()
}

// Settled is the layout-complete signal: any pending echo is dropped.
func (s *Synchronizer) Settled() {
	if s.state == Snapping {
		s.state = Idle
	}
}

func (s *Synchronizer) unchanged() model.Position {
	s.scrolled = false
	return s.Position()
}

func (s *Synchronizer) apply(p float64, snap, scroll bool) model.Position {
	if snap {
		p = Snap(p, s.geo.Markers)
	}
	s.percent = p
	s.at = PercentToTime(s.geo.Range, p)
	s.scrolled = false

	if scroll {
		s.scrollTop = s.scrollFor(p, s.at)
		s.scrolled = true
		s.pending = s.scrollTop
		if s.state != Dragging {
			s.state = Snapping
		}
	}
	return s.Position()
}

func (s *Synchronizer) scrollFor(p float64, t time.Time) float64 {
	max := s.maxScrollTop()
	if s.Mode() == ModeNarrow {
		return PercentToScroll(p, max)
	}

	px := TimeToPixel(s.geo.Range, t, s.density())
	if center, ok := nearest(s.geo.Centers, t); ok {
		px = TimeToPixel(s.geo.Range, center, s.density())
	}
	top := px - s.vp.ContainerHeight/2
	if s.geo.CanvasHeight > 0 {
		top = math.Min(top, math.Max(0, max))
	}
	return math.Max(0, top)
}

func nearest(centers []time.Time, t time.Time) (time.Time, bool) {
	if len(centers) == 0 {
		return time.Time{}, false
	}
	best := centers[0]
	bestDist := absDuration(best.Sub(t))
	for _, c := range centers[1:] {
		if d := absDuration(c.Sub(t)); d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best, true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
