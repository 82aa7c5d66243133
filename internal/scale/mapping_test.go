package scale

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"timedesk/internal/model"
)

var (
	rangeStart = time.Date(2024, time.December, 31, 12, 0, 0, 0, time.UTC)
	testRange  = model.TimeRange{
		MinTime:      rangeStart,
		MaxTime:      rangeStart.Add(1000 * time.Minute),
		TotalMinutes: 1000,
	}
)

var _ = Describe("mapping functions", func() {
	It("maps percent to time and back", func() {
		for _, p := range []float64{0, 0.5, 12.25, 50, 99.9, 100} {
			t := PercentToTime(testRange, p)
			Expect(TimeToPercent(testRange, t)).To(BeNumerically("~", p, 1e-6))
		}
		Expect(PercentToTime(testRange, 25)).To(Equal(rangeStart.Add(250 * time.Minute)))
	})

	It("is total over a collapsed range", func() {
		r := model.TimeRange{MinTime: rangeStart, MaxTime: rangeStart}
		Expect(TimeToPercent(r, rangeStart.Add(time.Hour))).To(BeZero())
		Expect(PercentToTime(r, 50)).To(Equal(rangeStart))
	})

	It("inverts the wide-viewport pixel mapping", func() {
		density := 25.0
		for _, p := range []float64{0, 3.3, 47, 100} {
			px := PercentToPixel(testRange, p, density)
			Expect(PixelToPercent(testRange, px, density)).To(BeNumerically("~", p, 1e-6))
		}
		Expect(TimeToPixel(testRange, rangeStart.Add(10*time.Minute), density)).To(BeNumerically("==", 250))
		Expect(PixelToTime(testRange, 250, density)).To(Equal(rangeStart.Add(10 * time.Minute)))
	})

	It("inverts the narrow-viewport scroll mapping", func() {
		max := MaxScrollTop(25200, 900)
		Expect(max).To(BeNumerically("==", 11700))
		for _, p := range []float64{0, 1, 33.3, 72, 100} {
			Expect(ScrollToPercent(PercentToScroll(p, max), max)).To(BeNumerically("~", p, 1e-9))
		}
	})

	It("pins everything to zero when the canvas is shorter than the container", func() {
		max := MaxScrollTop(1000, 900)
		Expect(PercentToScroll(60, max)).To(BeZero())
		Expect(ScrollToPercent(120, max)).To(BeZero())
	})

	DescribeTable("snapping to markers",
		func(p float64, markers []float64, expected float64) {
			Expect(Snap(p, markers)).To(Equal(expected))
		},
		Entry("nearest below", 12.0, []float64{0, 10, 50, 100}, 10.0),
		Entry("nearest above", 31.0, []float64{0, 10, 50, 100}, 50.0),
		Entry("ties go to the earlier marker", 30.0, []float64{0, 10, 50, 100}, 10.0),
		Entry("past the end", 140.0, []float64{0, 10, 50, 100}, 100.0),
		Entry("no markers", 42.0, nil, 42.0),
	)

	It("always snaps onto a member of the set", func() {
		markers := []float64{0, 3.5, 17, 17, 61.2, 100}
		for p := 0.0; p <= 100; p += 0.7 {
			Expect(markers).To(ContainElement(Snap(p, markers)))
		}
	})
})
