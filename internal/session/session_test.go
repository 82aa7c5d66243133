package session

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"timedesk/internal/metrics"
	"timedesk/internal/model"
	"timedesk/internal/scale"
)

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

var (
	clockAt = time.Date(2024, time.December, 31, 20, 30, 0, 0, time.UTC)
	records = []model.Record{
		{ID: "1a", StartStr: "31.12 20:00", EndStr: "31.12 21:00", DurationMinutes: 60, Title: "First", StartTime: "20:00"},
		{ID: "1b", StartStr: "31.12 20:15", EndStr: "31.12 20:45", DurationMinutes: 30, Title: "Reply"},
		{ID: "2a", StartStr: "31.12 22:00", EndStr: "31.12 23:00", DurationMinutes: 60, Title: "Second"},
		{ID: "special_gift", StartStr: "01.01 03:30", EndStr: "01.01 04:00", DurationMinutes: 30, Special: true},
	}
	// 20:00 to 03:45
	totalMinutes = 465.0
	// 12200/2 - 900
	maxScrollTop = 5200.0
)

func newSession(opts ...Option) *Session {
	cfg := DefaultConfig()
	cfg.BaseYear = 2024
	cfg.Location = time.UTC
	cfg.Viewport = scale.Viewport{Width: 500, ContainerHeight: 900}
	opts = append([]Option{
		WithRand(fixedRand(0.5)),
		WithClock(func() time.Time { return clockAt }),
	}, opts...)
	return New(cfg, opts...)
}

var _ = Describe("session", func() {
	var (
		sess     *Session
		registry *prometheus.Registry
	)

	BeforeEach(func() {
		registry = prometheus.NewRegistry()
		sess = newSession(WithMetrics(metrics.Register(registry)))
		Expect(sess.Reload(records)).To(Succeed())
	})

	Context("reloading", func() {
		It("lays out every positionable event", func() {
			l := sess.Layout()
			Expect(l.Geometry).To(HaveLen(4))
			Expect(l.Canvas.Height).To(BeNumerically("~", 12200))
			Expect(sess.Elements()).To(HaveLen(4))
			Expect(sess.Generation()).To(BeNumerically("==", 1))
		})

		It("points the indicator at the current time without scrolling", func() {
			pos := sess.Position()
			Expect(pos.Percent).To(BeNumerically("~", 30/totalMinutes*100, 1e-9))
			Expect(pos.Scrolled).To(BeFalse())
			Expect(pos.State).To(Equal("idle"))
			Expect(pos.Clock).To(Equal(model.Clock{Date: "31.12", Time: "20:30"}))
		})

		It("keeps the previous state for an empty collection", func() {
			before := sess.Layout()
			Expect(sess.Reload(nil)).To(MatchError(ErrNoEvents))
			Expect(sess.Layout()).To(Equal(before))
			Expect(sess.Generation()).To(BeNumerically("==", 1))
		})

		It("keeps the previous state when nothing parses", func() {
			err := sess.Reload([]model.Record{{ID: "1a", StartStr: "soon", EndStr: "later"}})
			Expect(err).To(MatchError(ErrNoEvents))
			Expect(sess.Elements()).To(HaveLen(4))
		})

		It("survives a corrupt record", func() {
			bad := append([]model.Record{{ID: "9b", StartStr: "??", EndStr: "31.12 21:00"}}, records...)
			Expect(sess.Reload(bad)).To(Succeed())
			Expect(sess.Layout().Skipped).To(ConsistOf("9b"))
			Expect(sess.Elements()).To(HaveLen(4))
		})

		It("records the pass in metrics", func() {
			families, err := registry.Gather()
			Expect(err).NotTo(HaveOccurred())
			found := false
			for _, f := range families {
				if strings.HasSuffix(f.GetName(), metrics.LayoutPassesName) {
					found = true
					Expect(f.Metric[0].Counter.GetValue()).To(BeNumerically("==", 1))
				}
			}
			Expect(found).To(BeTrue())
		})
	})

	Context("building elements", func() {
		It("carries the layout transform and classes", func() {
			el, err := sess.Element("1a")
			Expect(err).NotTo(HaveOccurred())
			Expect(el.Classes).To(Equal([]string{ClassEvent, string(model.NarrowLeft)}))
			Expect(el.Style.Top).To(Equal("-30px"))
			Expect(el.Style.Transform).To(Equal("rotate(0deg) scale(2.5)"))
			Expect(el.Style.TransformOrigin).To(Equal("top center"))
			Expect(el.Content).To(ContainSubstring("First"))

			gift, err := sess.Element("special_gift")
			Expect(err).NotTo(HaveOccurred())
			Expect(gift.Auxiliary).To(BeTrue())
			Expect(gift.Classes).To(ContainElement(ClassAux))
		})
	})

	Context("hovering", func() {
		It("lifts and drops an element with its persisted rotation", func() {
			el, err := sess.Hover("2a", true)
			Expect(err).NotTo(HaveOccurred())
			Expect(el.Style.Transform).To(Equal("rotate(0deg) scale(2.5) translateY(-5px)"))
			Expect(el.Style.ZIndex).To(Equal(10))

			el, err = sess.Hover("2a", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(el.Style.Transform).To(Equal("rotate(0deg) scale(2.5)"))
			Expect(el.Style.ZIndex).To(Equal(1))
		})

		It("rejects unknown ids", func() {
			_, err := sess.Hover("nope", true)
			Expect(err).To(MatchError(ErrUnknownElement))
		})
	})

	Context("inspection mode", func() {
		It("restores every element exactly on exit", func() {
			before := sess.Elements()

			Expect(sess.ToggleInspection()).To(BeTrue())
			Expect(sess.Inspecting()).To(BeTrue())
			during := sess.Elements()
			Expect(during).NotTo(Equal(before))
			Expect(sess.View().SurfaceHeight).To(BeNumerically("<", sess.Layout().Canvas.Height))

			Expect(sess.ToggleInspection()).To(BeFalse())
			Expect(sess.Elements()).To(Equal(before))
			Expect(sess.Position().ScrollTop).To(BeZero())
		})

		It("ignores hover and position inputs while inspecting", func() {
			sess.ToggleInspection()
			el, err := sess.Hover("2a", true)
			Expect(err).NotTo(HaveOccurred())
			Expect(el.Style.Transform).To(Equal("none"))

			before := sess.Position()
			Expect(sess.ClickTrack(100, 400)).To(Equal(before))
			Expect(sess.Wheel(50, 400)).To(Equal(before))
		})

		It("is left by a reload", func() {
			sess.ToggleInspection()
			Expect(sess.Reload(records)).To(Succeed())
			Expect(sess.Inspecting()).To(BeFalse())
			el, _ := sess.Element("1a")
			Expect(el.Classes).NotTo(ContainElement("inspection-mode"))
		})
	})

	Context("moving the indicator", func() {
		It("runs a full drag with snapping", func() {
			sess.BeginDrag(scale.SourceTouch)
			pos := sess.DragTo(0, 400)
			Expect(pos.Percent).To(BeZero())
			Expect(pos.Scrolled).To(BeTrue())
			Expect(pos.State).To(Equal("dragging"))
			Expect(sess.Layout().Markers).To(ContainElement(pos.Percent))

			sess.EndDrag()
			sess.LayoutSettled()
			Expect(sess.Position().State).To(Equal("idle"))
		})

		It("goes to the lane-A event in progress", func() {
			pos, err := sess.GoToNow()
			Expect(err).NotTo(HaveOccurred())
			// 1a runs 20:00-21:00, midpoint 20:30
			Expect(pos.Percent).To(BeNumerically("~", 30/totalMinutes*100, 1e-9))
			Expect(pos.ScrollTop).To(BeNumerically("~", 30/totalMinutes*maxScrollTop, 1e-6))
			Expect(pos.Scrolled).To(BeTrue())
		})

		It("follows the clock it is fed", func() {
			sess.SetNow(time.Date(2025, time.January, 1, 2, 0, 0, 0, time.UTC))
			Expect(sess.Now()).To(Equal(time.Date(2025, time.January, 1, 2, 0, 0, 0, time.UTC)))
			pos, err := sess.GoToNow()
			Expect(err).NotTo(HaveOccurred())
			// last midpoint before 02:00 is 2a at 22:30
			Expect(pos.Time).To(BeTemporally("~", time.Date(2024, time.December, 31, 22, 30, 0, 0, time.UTC), time.Millisecond))
		})

		It("maps live scrolls back to percent", func() {
			pos := sess.Scroll(maxScrollTop / 2)
			Expect(pos.Percent).To(BeNumerically("~", 50))
			Expect(pos.Scrolled).To(BeFalse())
		})

		It("switches mapping with the viewport", func() {
			sess.SetViewport(1280, 900)
			Expect(sess.View().Mode).To(Equal("wide"))
			pos := sess.Scroll(0)
			// the container center sits 450px, 18 minutes, below 20:00
			Expect(pos.Time).To(Equal(time.Date(2024, time.December, 31, 20, 18, 0, 0, time.UTC)))
		})
	})
})

var _ = Describe("records sharing an id", func() {
	var sess *Session

	BeforeEach(func() {
		sess = newSession()
		Expect(sess.Reload([]model.Record{
			{ID: "1a", StartStr: "31.12 20:00", EndStr: "31.12 21:00", DurationMinutes: 60, Title: "First"},
			{ID: "1a", StartStr: "31.12 23:00", EndStr: "31.12 23:30", DurationMinutes: 30, Title: "Second"},
		})).To(Succeed())
	})

	It("places each one at its own start", func() {
		els := sess.Elements()
		Expect(els).To(HaveLen(2))
		Expect(els[0].Style.Top).To(Equal("0px"))
		Expect(els[1].Style.Top).To(Equal("4500px"))
		Expect(els[0].Index).To(Equal(0))
		Expect(els[1].Index).To(Equal(1))
	})

	It("restores each one to its own state after inspection", func() {
		before := sess.Elements()
		Expect(before[0].Content).To(ContainSubstring("First"))
		Expect(before[1].Content).To(ContainSubstring("Second"))

		Expect(sess.ToggleInspection()).To(BeTrue())
		Expect(sess.ToggleInspection()).To(BeFalse())
		Expect(sess.Elements()).To(Equal(before))
	})
})

var _ = Describe("season clock", func() {
	It("pins the wall clock onto the season days", func() {
		cfg := DefaultConfig()
		cfg.BaseYear = 2024
		cfg.Location = time.UTC
		cfg.SeasonClock = true
		sess := New(cfg, WithClock(func() time.Time {
			return time.Date(2026, time.October, 14, 1, 15, 0, 0, time.UTC)
		}))
		Expect(sess.Now()).To(Equal(time.Date(2025, time.January, 1, 1, 15, 0, 0, time.UTC)))
	})

	It("derives the base year from the clock when unset", func() {
		cfg := DefaultConfig()
		cfg.Location = time.UTC
		sess := New(cfg, WithClock(func() time.Time {
			return time.Date(2026, time.December, 2, 9, 0, 0, 0, time.UTC)
		}))
		Expect(sess.BaseYear()).To(Equal(2026))
	})
})
