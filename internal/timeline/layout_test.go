package timeline

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"timedesk/internal/model"
)

// fixedRand always returns the same draw.
type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

var _ = Describe("positioning events", func() {
	var (
		params Params
		rng    model.TimeRange
	)

	BeforeEach(func() {
		params = DefaultParams()
		rng = model.TimeRange{
			MinTime:      mustParse("10.12 20:00"),
			MaxTime:      time.Date(2025, time.January, 1, 3, 45, 0, 0, time.UTC),
			TotalMinutes: time.Date(2025, time.January, 1, 3, 45, 0, 0, time.UTC).Sub(mustParse("10.12 20:00")).Minutes(),
		}
	})

	It("places an overlapping pair side by side with A lifted", func() {
		a := ev("Aa", "10.12 20:00", "10.12 20:30")
		b := ev("Bb", "10.12 20:15", "10.12 20:45")
		layout := Compute([]model.Event{a, b}, rng, params, fixedRand(0.5))

		ga, ok := layout.GeometryFor("Aa")
		Expect(ok).To(BeTrue())
		gb, ok := layout.GeometryFor("Bb")
		Expect(ok).To(BeTrue())

		Expect(ga.WidthClass).To(Equal(model.NarrowLeft))
		Expect(ga.Top).To(BeNumerically("~", 0*25-30))
		Expect(gb.WidthClass).To(Equal(model.NarrowRight))
		Expect(gb.Top).To(BeNumerically("~", 15*25))
		Expect(ga.Width).To(Equal(params.WidthHalf))
		Expect(gb.Width).To(Equal(params.WidthHalf))
	})

	It("keeps heights pre-zoom with a floor", func() {
		short := ev("1a", "10.12 21:00", "10.12 21:05")
		long := ev("2a", "10.12 22:00", "10.12 23:00")
		layout := Compute([]model.Event{short, long}, rng, params, fixedRand(0.5))

		g1, _ := layout.GeometryFor("1a")
		g2, _ := layout.GeometryFor("2a")
		Expect(g1.Height).To(BeNumerically("==", 120))
		Expect(g2.Height).To(BeNumerically("==", 600))
		Expect(g1.WidthClass).To(Equal(model.Wide))
		Expect(g1.Scale).To(Equal(2.5))
	})

	It("lays out zero durations with the default duration", func() {
		e := ev("1a", "10.12 21:00", "10.12 21:00")
		e.DurationMinutes = 0
		layout := Compute([]model.Event{e}, rng, params, fixedRand(0.5))
		g, _ := layout.GeometryFor("1a")
		Expect(g.Height).To(BeNumerically("==", 300))
	})

	It("narrows a forced-narrow A event to the left", func() {
		layout := Compute([]model.Event{
			ev("1a", "10.12 20:00", "10.12 21:00"),
			ev("1b", "10.12 20:15", "10.12 20:45"),
			ev("2a", "10.12 20:30", "10.12 21:30"),
		}, rng, params, fixedRand(0.5))
		g, _ := layout.GeometryFor("2a")
		Expect(g.WidthClass).To(Equal(model.NarrowLeft))
		Expect(g.Top).To(BeNumerically("~", 30*25))
	})

	It("bounds rotations and calms the distinguished event", func() {
		layout := Compute([]model.Event{
			ev("1a", "10.12 20:00", "10.12 20:30"),
			ev("3a", "10.12 21:00", "10.12 21:30"),
		}, rng, params, fixedRand(1.0))
		g1, _ := layout.GeometryFor("1a")
		g3, _ := layout.GeometryFor("3a")
		Expect(g1.RotationDeg).To(BeNumerically("~", 1))
		Expect(g3.RotationDeg).To(BeNumerically("~", 7))

		layout = Compute([]model.Event{ev("3a", "10.12 21:00", "10.12 21:30")}, rng, params, fixedRand(0))
		g3, _ = layout.GeometryFor("3a")
		Expect(g3.RotationDeg).To(BeNumerically("~", -7))
	})

	It("halves the computed canvas into the scrollable region", func() {
		layout := Compute([]model.Event{ev("1a", "10.12 20:00", "10.12 20:30")}, rng, params, fixedRand(0.5))
		expected := rng.TotalMinutes*25 + 200
		Expect(layout.Canvas.Height).To(BeNumerically("~", expected))
		Expect(layout.Canvas.ScrollHeight).To(BeNumerically("~", expected/2))
	})

	It("extends the canvas to the zoomed bottom of auxiliary markers", func() {
		gift := ev("special_gift", "01.01 03:30", "01.01 04:00")
		layout := Compute([]model.Event{gift}, rng, params, fixedRand(0.5))

		g, ok := layout.GeometryFor("special_gift")
		Expect(ok).To(BeTrue())
		Expect(g.Auxiliary).To(BeTrue())
		Expect(g.RotationDeg).To(BeZero())
		Expect(g.WidthClass).To(Equal(model.Wide))

		bottom := g.Top + g.Height*2.5
		Expect(bottom).To(BeNumerically(">", rng.TotalMinutes*25))
		Expect(layout.Canvas.Height).To(BeNumerically("~", bottom+200))
	})

	It("positions events whose end does not parse", func() {
		gift := ev("special_gift", "01.01 03:30", "soon")
		open := ev("4a", "10.12 22:00", "later")
		layout := Compute([]model.Event{gift, open}, rng, params, fixedRand(0.5))

		Expect(layout.Skipped).To(BeEmpty())
		g, ok := layout.GeometryFor("special_gift")
		Expect(ok).To(BeTrue())
		Expect(g.Auxiliary).To(BeTrue())
		g, ok = layout.GeometryFor("4a")
		Expect(ok).To(BeTrue())
		Expect(g.Height).To(Equal(300.0))
	})

	It("keeps events that share an id apart", func() {
		first := ev("1a", "10.12 20:00", "10.12 21:00")
		second := ev("1a", "10.12 23:00", "10.12 23:30")
		layout := Compute([]model.Event{first, second}, rng, params, fixedRand(0.5))

		g1, ok := layout.GeometryAt(first.Index)
		Expect(ok).To(BeTrue())
		g2, ok := layout.GeometryAt(second.Index)
		Expect(ok).To(BeTrue())
		Expect(g2.Top - g1.Top).To(BeNumerically("~", 180*25))
	})

	It("skips events without a parsable start", func() {
		bad := ev("9a", "nope", "10.12 21:00")
		layout := Compute([]model.Event{bad, ev("1a", "10.12 20:00", "10.12 20:30")}, rng, params, fixedRand(0.5))
		Expect(layout.Skipped).To(ConsistOf("9a"))
		_, ok := layout.GeometryFor("9a")
		Expect(ok).To(BeFalse())
		Expect(layout.Geometry).To(HaveLen(1))
	})
})

var _ = Describe("snap markers", func() {
	It("maps midpoints linearly onto 0..100", func() {
		markers := ComputeMarkers([]model.Event{
			ev("2a", "31.12 21:00", "31.12 22:00"),
			ev("1a", "31.12 20:00", "31.12 21:00"),
			ev("special_gift", "01.01 03:30", "01.01 04:00"),
		})
		Expect(markers).To(HaveLen(3))
		Expect(markers[0]).To(BeNumerically("==", 0))
		Expect(markers[2]).To(BeNumerically("==", 100))
		// 20:30, 21:30, 03:45 -> 60 of 435 minutes.
		Expect(markers[1]).To(BeNumerically("~", 60.0/435*100, 1e-9))
	})

	It("collapses to zero when every midpoint coincides", func() {
		markers := ComputeMarkers([]model.Event{
			ev("1a", "31.12 20:00", "31.12 21:00"),
			ev("1b", "31.12 20:00", "31.12 21:00"),
		})
		Expect(markers).To(Equal([]float64{0, 0}))
	})

	It("returns nothing without valid events", func() {
		Expect(ComputeMarkers([]model.Event{ev("1a", "x", "y")})).To(BeEmpty())
	})
})
