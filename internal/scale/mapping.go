package scale

import (
	"math"
	"time"

	"timedesk/internal/model"
)

// Clamp bounds a percent to the track.
func Clamp(p float64) float64 {
	return math.Max(0, math.Min(100, p))
}

// PercentToTime maps a track percent onto the range.
func PercentToTime(r model.TimeRange, p float64) time.Time {
	span := r.MaxTime.Sub(r.MinTime)
	return r.MinTime.Add(time.Duration(math.Round(float64(span) * p / 100)))
}

// TimeToPercent is the inverse of PercentToTime. It is not clamped; a
// collapsed range maps everything to 0.
func TimeToPercent(r model.TimeRange, t time.Time) float64 {
	span := r.MaxTime.Sub(r.MinTime)
	if span <= 0 {
		return 0
	}
	return float64(t.Sub(r.MinTime)) / float64(span) * 100
}

// TimeToPixel is the absolute canvas offset of t at the given density
// (pixels per minute, zoom included).
func TimeToPixel(r model.TimeRange, t time.Time, density float64) float64 {
	return t.Sub(r.MinTime).Minutes() * density
}

// PixelToTime is the inverse of TimeToPixel.
func PixelToTime(r model.TimeRange, px, density float64) time.Time {
	if density <= 0 {
		return r.MinTime
	}
	return r.MinTime.Add(time.Duration(math.Round(px / density * float64(time.Minute))))
}

// PercentToPixel is the wide-viewport mapping from track to canvas.
func PercentToPixel(r model.TimeRange, p, density float64) float64 {
	return TimeToPixel(r, PercentToTime(r, p), density)
}

// PixelToPercent is the inverse of PercentToPixel.
func PixelToPercent(r model.TimeRange, px, density float64) float64 {
	return TimeToPercent(r, PixelToTime(r, px, density))
}

// MaxScrollTop is the bottom of the scrollable half of the canvas.
func MaxScrollTop(canvasHeight, containerHeight float64) float64 {
	return canvasHeight/2 - containerHeight
}

// PercentToScroll is the narrow-viewport mapping: linear over
// [0, maxScrollTop], independent of density.
func PercentToScroll(p, maxScrollTop float64) float64 {
	if maxScrollTop <= 0 {
		return 0
	}
	return math.Max(0, math.Min(maxScrollTop, p/100*maxScrollTop))
}

// ScrollToPercent is the inverse of PercentToScroll.
func ScrollToPercent(scrollTop, maxScrollTop float64) float64 {
	if maxScrollTop <= 0 {
		return 0
	}
	return Clamp(scrollTop / maxScrollTop * 100)
}

// Snap returns the marker closest to p, the earliest one on ties. With no
// markers p is returned unchanged.
func Snap(p float64, markers []float64) float64 {
	if len(markers) == 0 {
		return p
	}
	nearest := markers[0]
	best := math.Abs(p - nearest)
	for _, m := range markers[1:] {
		if d := math.Abs(p - m); d < best {
			best = d
			nearest = m
		}
	}
	return nearest
}
