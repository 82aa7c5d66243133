package metrics

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func family(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, f := range families {
		if strings.HasSuffix(f.GetName(), name) {
			return f
		}
	}
	return nil
}

var _ = Describe("timedesk metrics", func() {
	var (
		registry *prometheus.Registry
		m        *Metrics
	)

	BeforeEach(func() {
		registry = prometheus.NewRegistry()
		m = Register(registry)
	})

	When("nothing happened yet", func() {
		It("only exposes the plain collectors", func() {
			families, err := registry.Gather()
			Expect(err).NotTo(HaveOccurred())
			// counters and gauges without labels
			Expect(families).To(HaveLen(5))
		})
	})

	When("a layout pass is recorded", func() {
		BeforeEach(func() {
			m.LayoutPass(12345, map[string]int{"a": 3, "b": 2}, 1)
		})

		It("updates the pass counters and gauges", func() {
			families, err := registry.Gather()
			Expect(err).NotTo(HaveOccurred())

			Expect(family(families, LayoutPassesName).Metric[0].Counter.GetValue()).To(BeNumerically("==", 1))
			Expect(family(families, CanvasHeightName).Metric[0].Gauge.GetValue()).To(BeNumerically("==", 12345))
			Expect(family(families, SkippedEventsName).Metric[0].Gauge.GetValue()).To(BeNumerically("==", 1))
			Expect(family(families, EventsName).Metric).To(HaveLen(2))
		})

		It("forgets lanes that disappeared", func() {
			m.LayoutPass(100, map[string]int{"a": 1}, 0)
			families, err := registry.Gather()
			Expect(err).NotTo(HaveOccurred())
			lanes := family(families, EventsName).Metric
			Expect(lanes).To(HaveLen(1))
			Expect(lanes[0].Label[0].GetValue()).To(Equal("a"))
		})
	})

	When("inputs move the indicator", func() {
		BeforeEach(func() {
			m.PositionUpdate("drag", true)
			m.PositionUpdate("drag", false)
			m.PositionUpdate("wheel", false)
		})

		It("counts updates by source and snaps separately", func() {
			families, err := registry.Gather()
			Expect(err).NotTo(HaveOccurred())
			updates := family(families, PositionUpdatesName)
			Expect(updates.Metric).To(HaveLen(2))
			for _, metric := range updates.Metric {
				expected := 1
				if metric.Label[0].GetValue() == "drag" {
					expected = 2
				}
				Expect(metric.Counter.GetValue()).To(BeNumerically("==", expected))
			}
			Expect(family(families, SnapsName).Metric[0].Counter.GetValue()).To(BeNumerically("==", 1))
		})
	})

	It("stamps successful reloads", func() {
		m.Reload(ReloadEmpty)
		m.Reload(ReloadOK)
		families, err := registry.Gather()
		Expect(err).NotTo(HaveOccurred())
		Expect(family(families, ReloadsName).Metric).To(HaveLen(2))
		Expect(family(families, LastReloadName).Metric[0].Gauge.GetValue()).To(BeNumerically(">", 0))
	})

	It("tolerates a nil receiver", func() {
		var none *Metrics
		Expect(func() {
			none.LayoutPass(1, nil, 0)
			none.Reload(ReloadOK)
			none.PositionUpdate("scroll", true)
			none.InspectionToggle(true)
		}).NotTo(Panic())
	})
})
