package session

import (
	"time"

	"timedesk/internal/model"
	"timedesk/internal/scale"
	"timedesk/internal/timeline"
)

// Input sources as reported to metrics.
const (
	SourceDrag   = "drag"
	SourceClick  = "click"
	SourceWheel  = "wheel"
	SourceScroll = "scroll"
	SourceGoTo   = "goto"
	SourceNow    = "now"
)

// SetViewport records a resize of the visible container.
func (s *Session) SetViewport(width, containerHeight float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.sync.Mode()
	s.sync.SetViewport(scale.Viewport{Width: width, ContainerHeight: containerHeight})
	if after := s.sync.Mode(); after != before {
		s.log.Info("viewport mode changed", "from", before.String(), "to", after.String(), "width", width)
	}
}

// SetNow feeds a wall clock reading. It does not move the indicator.
func (s *Session) SetNow(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = t.In(s.cfg.Location)
}

// Now is the current time as placed on the timeline.
func (s *Session) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTime()
}

// The scale is hidden while inspecting, so position inputs are ignored.

func (s *Session) BeginDrag(src scale.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inspecting {
		return
	}
	s.sync.BeginDrag(src)
	s.log.V(1).Info("drag started", "source", string(src))
}

func (s *Session) DragTo(y, trackHeight float64) model.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inspecting || s.sync.State() != scale.Dragging {
		return s.sync.Position()
	}
	pos := s.sync.DragTo(y, trackHeight)
	s.recordUpdate(SourceDrag, pos, len(s.layout.Markers) > 0)
	return pos
}

func (s *Session) EndDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync.EndDrag()
}

// LeaveTrack ends a drag when the pointer leaves the tracked region.
func (s *Session) LeaveTrack() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync.LeaveTrack()
}

func (s *Session) ClickTrack(y, trackHeight float64) model.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inspecting {
		return s.sync.Position()
	}
	pos := s.sync.ClickTrack(y, trackHeight)
	s.recordUpdate(SourceClick, pos, len(s.layout.Markers) > 0)
	return pos
}

func (s *Session) Wheel(deltaY, trackHeight float64) model.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inspecting {
		return s.sync.Position()
	}
	pos := s.sync.Wheel(deltaY, trackHeight)
	s.recordUpdate(SourceWheel, pos, false)
	return pos
}

// Scroll feeds a live container scroll offset.
func (s *Session) Scroll(scrollTop float64) model.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inspecting {
		return s.sync.Position()
	}
	pos := s.sync.Scroll(scrollTop)
	s.recordUpdate(SourceScroll, pos, false)
	return pos
}

// GoToTime moves the indicator to t, then scrolls the container there.
func (s *Session) GoToTime(t time.Time) (model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inspecting {
		return s.sync.Position(), nil
	}
	pos, err := s.sync.GoToTime(t)
	if err != nil {
		return pos, err
	}
	s.recordUpdate(SourceGoTo, pos, false)
	return pos, nil
}

// GoToNow jumps to the event that matters at the current time.
func (s *Session) GoToNow() (model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inspecting {
		return s.sync.Position(), nil
	}
	target := timeline.NowTarget(s.events, s.currentTime())
	pos, err := s.sync.GoToTime(target)
	if err != nil {
		return pos, err
	}
	s.recordUpdate(SourceNow, pos, false)
	return pos, nil
}

// LayoutSettled is the presentation layer's layout-complete signal.
func (s *Session) LayoutSettled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync.Settled()
}

func (s *Session) recordUpdate(source string, pos model.Position, snapped bool) {
	s.metrics.PositionUpdate(source, snapped)
	s.log.V(1).Info("position updated",
		"source", source,
		"percent", pos.Percent,
		"scrollTop", pos.ScrollTop,
		"scrolled", pos.Scrolled,
		"state", pos.State,
	)
}
