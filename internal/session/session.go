package session

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"timedesk/internal/inspect"
	appLog "timedesk/internal/log"
	"timedesk/internal/metrics"
	"timedesk/internal/model"
	"timedesk/internal/scale"
	"timedesk/internal/timeline"
)

var (
	// ErrNoEvents is returned by Reload when the collection holds nothing
	// that can be laid out. The previous state is kept.
	ErrNoEvents = errors.New("session: no events")
	// ErrUnknownElement is returned for ids without a rendered element.
	ErrUnknownElement = errors.New("session: unknown element")
)

// Config is everything a session derives its state from.
type Config struct {
	// BaseYear is the December of the season; 0 derives it from the clock.
	BaseYear int
	Location *time.Location
	// SeasonClock pins the wall clock onto the season days.
	SeasonClock bool
	Cutoff      timeline.Cutoff
	Layout      timeline.Params
	Scale       scale.Config
	Viewport    scale.Viewport
	Inspection  inspect.Params
}

func DefaultConfig() Config {
	return Config{
		Location: time.Local,
		Cutoff:   timeline.DefaultCutoff,
		Layout:   timeline.DefaultParams(),
		Scale: scale.Config{
			PixelsPerMinute: 10,
			Zoom:            2.5,
			NarrowWidth:     768,
			WheelGain:       1.5,
		},
		Viewport:   scale.Viewport{Width: 1280, ContainerHeight: 900},
		Inspection: inspect.DefaultParams(),
	}
}

type Option func(*Session)

// WithRand sets the rotation source.
func WithRand(r timeline.Rand) Option {
	return func(s *Session) { s.rnd = r }
}

// WithMeasurer sets how inspection content heights are measured.
func WithMeasurer(m inspect.Measurer) Option {
	return func(s *Session) { s.measurer = m }
}

// WithClock replaces the wall clock.
func WithClock(clock func() time.Time) Option {
	return func(s *Session) { s.clock = clock }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// Session owns every piece of derived state: events, layout, rendered
// elements, the synchronizer and the inspection snapshot. All of it is
// replaced together by Reload. Methods are safe for concurrent use; calls
// are serialized.
type Session struct {
	mu sync.Mutex

	cfg      Config
	rnd      timeline.Rand
	measurer inspect.Measurer
	clock    func() time.Time
	metrics  *metrics.Metrics
	log      logr.Logger

	baseYear int
	now      time.Time

	records  []model.Record
	events   []model.Event
	layout   timeline.Layout
	elements []inspect.Element
	sync     *scale.Synchronizer

	inspecting       bool
	snapshot         inspect.Snapshot
	surfaceMinHeight float64

	generation uint64
}

// New returns a session without events. Call Reload to lay out a collection.
func New(cfg Config, opts ...Option) *Session {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	s := &Session{
		cfg:      cfg,
		measurer: inspect.DefaultMeasurer(),
		clock:    time.Now,
		log:      appLog.Logger().WithValues("component", "session"),
	}
	seed := uint64(time.Now().UnixNano())
	s.rnd = rand.New(rand.NewPCG(seed, seed>>1))
	for _, opt := range opts {
		opt(s)
	}

	s.sync = scale.New(cfg.Scale, cfg.Viewport)
	s.now = s.clock().In(cfg.Location)
	s.baseYear = s.resolveBaseYear()
	return s
}

func (s *Session) resolveBaseYear() int {
	if s.cfg.BaseYear != 0 {
		return s.cfg.BaseYear
	}
	return timeline.BaseYearFor(s.now)
}

// currentTime is the clock as the timeline sees it.
func (s *Session) currentTime() time.Time {
	if s.now.IsZero() {
		return time.Time{}
	}
	if s.cfg.SeasonClock {
		return timeline.SeasonNow(s.now, s.baseYear)
	}
	return s.now
}

// BaseYear is the season year events are parsed against.
func (s *Session) BaseYear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseYear
}

// Reload replaces the whole collection. It recomputes range, groups,
// geometry, markers and elements, leaves inspection mode, and resets the
// indicator to the current time. An empty or entirely unparsable collection
// keeps the previous state and returns ErrNoEvents.
func (s *Session) Reload(records []model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(records) == 0 {
		s.metrics.Reload(metrics.ReloadEmpty)
		s.log.Info("empty event collection, keeping previous layout")
		return ErrNoEvents
	}

	baseYear := s.resolveBaseYear()
	events := timeline.ParseEvents(records, baseYear, s.cfg.Location)
	rng, ok := timeline.CalculateTimeRange(events, s.layout.Range, s.cfg.Cutoff)
	if !ok {
		s.metrics.Reload(metrics.ReloadEmpty)
		s.log.Info("no parsable event start, keeping previous layout", "records", len(records))
		return fmt.Errorf("%w: none of %d records has a parsable start", ErrNoEvents, len(records))
	}

	if dup := duplicateIDs(records); len(dup) > 0 {
		s.log.Info("records share ids; hover and lookups resolve to the first", "ids", dup)
	}

	s.baseYear = baseYear
	s.records = records
	s.events = events
	s.layout = timeline.Compute(events, rng, s.cfg.Layout, s.rnd)
	s.generation++

	if s.inspecting {
		s.log.Info("reload while inspecting, leaving inspection mode")
		s.inspecting = false
		s.snapshot = inspect.Snapshot{}
		s.surfaceMinHeight = 0
		s.metrics.InspectionToggle(false)
	}
	s.elements = buildElements(events, s.layout)
	s.sync.SetGeometry(geometryOf(events, s.layout))
	s.resetPosition()

	perLane := map[string]int{}
	for _, ev := range events {
		perLane[ev.Lane.String()]++
	}
	s.metrics.LayoutPass(s.layout.Canvas.Height, perLane, len(s.layout.Skipped))
	s.metrics.Reload(metrics.ReloadOK)

	s.log.Info("layout computed",
		"generation", s.generation,
		"events", len(events),
		"groups", len(s.layout.Groups),
		"canvasHeight", s.layout.Canvas.Height,
		"minTime", rng.MinTime,
		"maxTime", rng.MaxTime,
	)
	return nil
}

func duplicateIDs(records []model.Record) []string {
	seen := make(map[string]int, len(records))
	var dup []string
	for _, r := range records {
		seen[r.ID]++
		if seen[r.ID] == 2 {
			dup = append(dup, r.ID)
		}
	}
	return dup
}

// resetPosition points the indicator at the current time without scrolling.
func (s *Session) resetPosition() {
	now := s.currentTime()
	if now.IsZero() {
		s.sync.SetPercent(0)
		return
	}
	s.sync.SetPercent(scale.TimeToPercent(s.layout.Range, now))
}

func geometryOf(events []model.Event, l timeline.Layout) scale.Geometry {
	g := scale.Geometry{
		Range:        l.Range,
		CanvasHeight: l.Canvas.Height,
		Markers:      l.Markers,
	}
	for _, ev := range events {
		if ev.Lane == model.LaneAux || !ev.Valid() {
			continue
		}
		g.Centers = append(g.Centers, ev.Midpoint())
	}
	return g
}

// Generation increments on every successful reload.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Records returns the collection of the last successful reload.
func (s *Session) Records() []model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records
}

// Layout returns the last layout pass. Its slices are never modified in place.
func (s *Session) Layout() timeline.Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout
}

// Elements returns a copy of the presentation element table.
func (s *Session) Elements() []inspect.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneElements(s.elements)
}

func cloneElements(in []inspect.Element) []inspect.Element {
	out := make([]inspect.Element, len(in))
	for i, el := range in {
		out[i] = el.Clone()
	}
	return out
}

// Position reports the live percent/time/scroll triple.
func (s *Session) Position() model.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync.Position()
}

// View is a consistent copy of everything the presentation layer draws.
type View struct {
	Generation    uint64            `json:"generation"`
	Layout        timeline.Layout   `json:"layout"`
	Elements      []inspect.Element `json:"elements"`
	Position      model.Position    `json:"position"`
	Mode          string            `json:"mode"`
	Inspecting    bool              `json:"inspecting"`
	SurfaceHeight float64           `json:"surface_height"`
	Now           model.Clock       `json:"now"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		Generation:    s.generation,
		Layout:        s.layout,
		Elements:      cloneElements(s.elements),
		Position:      s.sync.Position(),
		Mode:          s.sync.Mode().String(),
		Inspecting:    s.inspecting,
		SurfaceHeight: s.layout.Canvas.Height,
		Now:           timeline.FormatClock(s.currentTime()),
	}
	if s.inspecting {
		v.SurfaceHeight = s.surfaceMinHeight
	}
	return v
}
