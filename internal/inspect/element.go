package inspect

import (
	"slices"
	"strconv"
	"time"

	"timedesk/internal/model"
)

// Style is the inline style of a rendered element. Lengths are CSS values;
// an empty field is unset.
type Style struct {
	Top             string `json:"top,omitempty"`
	Left            string `json:"left,omitempty"`
	Width           string `json:"width,omitempty"`
	Height          string `json:"height,omitempty"`
	Transform       string `json:"transform,omitempty"`
	TransformOrigin string `json:"transformOrigin,omitempty"`
	ZIndex          int    `json:"zIndex"`
	Display         string `json:"display,omitempty"`
}

// Element is one event as the presentation layer shows it.
type Element struct {
	ID        string     `json:"id"`
	Index     int        `json:"index"`
	Lane      model.Lane `json:"-"`
	Auxiliary bool       `json:"auxiliary"`
	Classes   []string   `json:"classes"`
	Style     Style      `json:"style"`
	// Rotation and Scale persist the layout transform so hover can rebuild it.
	Rotation float64 `json:"rotation"`
	Scale    float64 `json:"scale"`
	Content  string  `json:"content"`
	// MeasuredHeight is the committed content height, set by the
	// inspection pass only.
	MeasuredHeight float64 `json:"measuredHeight,omitempty"`

	Record model.Record `json:"-"`
	Start  time.Time    `json:"-"`
	End    time.Time    `json:"-"`
}

// HasClass reports whether c is in the class list.
func (e Element) HasClass(c string) bool {
	return slices.Contains(e.Classes, c)
}

func (e *Element) addClass(c string) {
	if !e.HasClass(c) {
		e.Classes = append(e.Classes, c)
	}
}

func (e *Element) removeClasses(cs ...string) {
	e.Classes = slices.DeleteFunc(e.Classes, func(c string) bool {
		return slices.Contains(cs, c)
	})
}

// Clone deep-copies the element.
func (e Element) Clone() Element {
	e.Classes = slices.Clone(e.Classes)
	return e
}

// Px formats a pixel length.
func Px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

// ParsePx reads back a length written by Px. Anything else is 0.
func ParsePx(s string) float64 {
	if len(s) < 2 || s[len(s)-2:] != "px" {
		return 0
	}
	v, err := strconv.ParseFloat(s[:len(s)-2], 64)
	if err != nil {
		return 0
	}
	return v
}

// Snapshot is the complete pre-inspection state of every element, kept by
// position in the element table.
type Snapshot struct {
	saved []Element
}

// Capture copies every element, class list included.
func Capture(elements []Element) Snapshot {
	s := Snapshot{saved: make([]Element, len(elements))}
	for i, el := range elements {
		s.saved[i] = el.Clone()
	}
	return s
}

// Empty reports whether nothing was captured.
func (s Snapshot) Empty() bool { return len(s.saved) == 0 }

// Restore puts every captured element back exactly as it was. A slot that
// no longer holds the element captured there is left alone.
func (s Snapshot) Restore(elements []Element) {
	for i := range elements {
		if i >= len(s.saved) {
			return
		}
		if saved := s.saved[i]; saved.ID == elements[i].ID && saved.Index == elements[i].Index {
			elements[i] = saved.Clone()
		}
	}
}
