package inspect

import (
	"html"
	"math"
	"sort"
	"unicode/utf8"

	"timedesk/internal/model"
)

// Classes the inspection pass strips or adds.
const (
	ClassInspection = "inspection-mode"
	ClassLeft       = "inspection-left"
	ClassRight      = "inspection-right"
)

// layoutClasses are removed from a column member so only the inspection
// class decides its width.
var layoutClasses = []string{
	string(model.Wide), string(model.NarrowLeft), string(model.NarrowRight),
	ClassLeft, ClassRight,
}

// Params shapes the inspection columns.
type Params struct {
	ColumnWidth  float64
	ColumnGap    float64
	Spacing      float64
	Top          float64
	BottomMargin float64
}

func DefaultParams() Params {
	return Params{ColumnWidth: 300, ColumnGap: 50, Spacing: 15, Top: 50, BottomMargin: 100}
}

// Measurer reports the natural content height of an element whose
// inspection styling has been committed.
type Measurer interface {
	Measure(el Element) float64
}

// TextMeasurer estimates content height from the title length: one line for
// the start label plus the wrapped title.
type TextMeasurer struct {
	LineHeight   float64
	Padding      float64
	CharsPerLine int
}

func DefaultMeasurer() TextMeasurer {
	return TextMeasurer{LineHeight: 20, Padding: 24, CharsPerLine: 28}
}

func (m TextMeasurer) Measure(el Element) float64 {
	per := m.CharsPerLine
	if per <= 0 {
		per = 1
	}
	lines := int(math.Ceil(float64(utf8.RuneCountInString(el.Record.Title)) / float64(per)))
	if lines < 1 {
		lines = 1
	}
	return m.Padding + float64(1+lines)*m.LineHeight
}

// Result is what the pass produced besides the element mutations.
type Result struct {
	SurfaceMinHeight float64
}

type placed struct {
	idx int
	top float64
}

// Apply reflows elements in place into the two inspection columns, centered
// on a surface of the given width. Lane B is placed only after every lane-A
// element has been styled and measured, so it always sees committed
// geometry from this pass.
func Apply(elements []Element, surfaceWidth float64, p Params, m Measurer) Result {
	leftStart := surfaceWidth/2 - (2*p.ColumnWidth+p.ColumnGap)/2
	rightStart := leftStart + p.ColumnWidth + p.ColumnGap

	var colA, colB []int
	for i := range elements {
		el := &elements[i]
		if el.Auxiliary {
			el.Style.Display = "none"
			continue
		}
		el.Content = InspectionContent(el.Record)
		el.addClass(ClassInspection)
		switch el.Lane {
		case model.LaneA:
			colA = append(colA, i)
		case model.LaneB:
			colB = append(colB, i)
		}
	}
	byStart := func(col []int) {
		sort.SliceStable(col, func(i, j int) bool {
			return elements[col[i]].Start.Before(elements[col[j]].Start)
		})
	}
	byStart(colA)
	byStart(colB)

	// Phase 1: commit lane-A styling.
	for _, i := range colA {
		commitColumnStyle(&elements[i], leftStart, p.ColumnWidth, ClassLeft)
	}

	// Phase 2: measure lane A and stack it.
	stack := make([]placed, 0, len(colA))
	top := p.Top
	for _, i := range colA {
		el := &elements[i]
		el.MeasuredHeight = m.Measure(*el)
		el.Style.Top = Px(top)
		stack = append(stack, placed{idx: i, top: top})
		top += el.MeasuredHeight + p.Spacing
	}

	// Phase 3: place lane B against the measured stack.
	for _, i := range colB {
		el := &elements[i]
		if el.Start.IsZero() {
			continue
		}
		el.Style.Top = Px(p.Top)
		for _, a := range stack {
			owner := elements[a.idx]
			if owner.Start.IsZero() || owner.End.IsZero() {
				continue
			}
			if el.Start.Before(owner.Start) || el.Start.After(owner.End) {
				continue
			}
			rel := 0.0
			if span := owner.End.Sub(owner.Start); span > 0 {
				rel = float64(el.Start.Sub(owner.Start)) / float64(span)
			}
			el.Style.Top = Px(a.top + rel*owner.MeasuredHeight)
			break
		}
		commitColumnStyle(el, rightStart, p.ColumnWidth, ClassRight)
		el.MeasuredHeight = m.Measure(*el)
	}

	maxBottom := 0.0
	for _, el := range elements {
		if el.Style.Display == "none" {
			continue
		}
		h := el.MeasuredHeight
		if h == 0 {
			h = ParsePx(el.Style.Height)
		}
		maxBottom = math.Max(maxBottom, ParsePx(el.Style.Top)+h)
	}
	return Result{SurfaceMinHeight: maxBottom + p.BottomMargin}
}

func commitColumnStyle(el *Element, left, width float64, class string) {
	el.Style.Left = Px(left)
	el.Style.Width = Px(width)
	el.Style.Height = "auto"
	el.Style.Transform = "none"
	el.Style.TransformOrigin = "top left"
	el.removeClasses(layoutClasses...)
	el.addClass(class)
}

// InspectionContent is the compact body shown in inspection mode.
func InspectionContent(r model.Record) string {
	return `<div class="inspection-time">` + html.EscapeString(r.StartTime) + `</div>` +
		`<div class="inspection-title">` + html.EscapeString(r.Title) + `</div>`
}

// EventContent is the regular body of an event on the timeline.
func EventContent(r model.Record) string {
	return `<div class="event-header">` +
		`<div class="event-time">` + html.EscapeString(r.StartTime) + `</div>` +
		`<div class="event-date">` + html.EscapeString(r.Date) + `</div>` +
		`</div>` +
		`<div class="event-title">` + html.EscapeString(r.Title) + `</div>` +
		`<div class="event-seal"></div>`
}
