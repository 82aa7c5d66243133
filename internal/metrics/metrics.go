package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// namespace is the prometheus namespace for every timedesk metric.
	namespace = "timedesk"

	resultLabel = "result"
	sourceLabel = "source"
	stateLabel  = "state"
	laneLabel   = "lane"

	LayoutPassesName      = "layout_passes_total"
	ReloadsName           = "reloads_total"
	LastReloadName        = "last_reload_timestamp"
	PositionUpdatesName   = "position_updates_total"
	SnapsName             = "snaps_total"
	InspectionTogglesName = "inspection_toggles_total"
	CanvasHeightName      = "canvas_height_pixels"
	EventsName            = "events"
	SkippedEventsName     = "skipped_events"
)

// Reload outcomes.
const (
	ReloadOK    = "ok"
	ReloadEmpty = "empty"
	ReloadError = "error"
)

// Metrics holds the timedesk collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	// layoutPasses counts completed layout passes.
	layoutPasses prometheus.Counter
	// reloads counts reload attempts by outcome.
	reloads *prometheus.CounterVec
	// lastReload is the unix time of the last successful reload.
	lastReload prometheus.Gauge
	// positionUpdates counts indicator updates by the input that caused them.
	positionUpdates *prometheus.CounterVec
	// snaps counts percent values snapped onto a marker.
	snaps prometheus.Counter
	// inspectionToggles counts mode switches by the state entered.
	inspectionToggles *prometheus.CounterVec
	// canvasHeight is the full computed canvas height of the last pass.
	canvasHeight prometheus.Gauge
	// events is the number of events per lane in the last pass.
	events *prometheus.GaugeVec
	// skipped is the number of events the last pass could not position.
	skipped prometheus.Gauge
}

// Register creates the collectors and registers them with reg.
func Register(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		layoutPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      LayoutPassesName,
			Help:      "Number of completed layout passes.",
		}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      ReloadsName,
			Help:      "Number of event reloads by outcome.",
		}, []string{resultLabel}),
		lastReload: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      LastReloadName,
			Help:      "Timestamp of the last successful reload.",
		}),
		positionUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      PositionUpdatesName,
			Help:      "Number of indicator position updates by input source.",
		}, []string{sourceLabel}),
		snaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      SnapsName,
			Help:      "Number of positions snapped onto a marker.",
		}),
		inspectionToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      InspectionTogglesName,
			Help:      "Number of inspection mode switches by entered state.",
		}, []string{stateLabel}),
		canvasHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      CanvasHeightName,
			Help:      "Computed canvas height of the last layout pass.",
		}),
		events: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      EventsName,
			Help:      "Number of events per lane in the last layout pass.",
		}, []string{laneLabel}),
		skipped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      SkippedEventsName,
			Help:      "Number of events the last layout pass could not position.",
		}),
	}

	reg.MustRegister(m.layoutPasses)
	reg.MustRegister(m.reloads)
	reg.MustRegister(m.lastReload)
	reg.MustRegister(m.positionUpdates)
	reg.MustRegister(m.snaps)
	reg.MustRegister(m.inspectionToggles)
	reg.MustRegister(m.canvasHeight)
	reg.MustRegister(m.events)
	reg.MustRegister(m.skipped)

	return m
}

// LayoutPass records a finished pass. perLane is keyed by lane name.
func (m *Metrics) LayoutPass(canvasHeight float64, perLane map[string]int, skipped int) {
	if m == nil {
		return
	}
	m.layoutPasses.Inc()
	m.canvasHeight.Set(canvasHeight)
	m.events.Reset()
	for lane, n := range perLane {
		m.events.With(prometheus.Labels{laneLabel: lane}).Set(float64(n))
	}
	m.skipped.Set(float64(skipped))
}

// Reload records a reload attempt.
func (m *Metrics) Reload(result string) {
	if m == nil {
		return
	}
	m.reloads.With(prometheus.Labels{resultLabel: result}).Inc()
	if result == ReloadOK {
		m.lastReload.SetToCurrentTime()
	}
}

// PositionUpdate records an indicator update caused by source.
func (m *Metrics) PositionUpdate(source string, snapped bool) {
	if m == nil {
		return
	}
	m.positionUpdates.With(prometheus.Labels{sourceLabel: source}).Inc()
	if snapped {
		m.snaps.Inc()
	}
}

// InspectionToggle records a mode switch.
func (m *Metrics) InspectionToggle(on bool) {
	if m == nil {
		return
	}
	state := "off"
	if on {
		state = "on"
	}
	m.inspectionToggles.With(prometheus.Labels{stateLabel: state}).Inc()
}
