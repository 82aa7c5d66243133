package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"timedesk/internal/inspect"
	appLog "timedesk/internal/log"
	"timedesk/internal/model"
	"timedesk/internal/scale"
	"timedesk/internal/session"
	"timedesk/internal/timeline"
)

const maxBodyBytes = 64 << 10

// Input kinds accepted by POST /api/input.
const (
	KindDragStart = "drag_start"
	KindDragMove  = "drag_move"
	KindDragEnd   = "drag_end"
	KindDragLeave = "drag_leave"
	KindClick     = "click"
	KindWheel     = "wheel"
	KindScroll    = "scroll"
	KindGoTo      = "goto"
	KindGoToNow   = "goto_now"
	KindSettled   = "settled"
	KindViewport  = "viewport"
)

// inputRequest carries one presentation event. Only the fields of its
// kind are read.
type inputRequest struct {
	Kind string `json:"kind"`

	// Source is "pointer" or "touch" for drag_start.
	Source string `json:"source,omitempty"`

	Y           float64 `json:"y,omitempty"`
	TrackHeight float64 `json:"track_height,omitempty"`
	DeltaY      float64 `json:"delta_y,omitempty"`
	ScrollTop   float64 `json:"scroll_top,omitempty"`

	// Time is "DD.MM HH:MM" or RFC 3339.
	Time string `json:"time,omitempty"`

	Width           float64 `json:"width,omitempty"`
	ContainerHeight float64 `json:"container_height,omitempty"`
}

type positionResponse struct {
	Position   model.Position `json:"position"`
	Mode       string         `json:"mode"`
	Inspecting bool           `json:"inspecting"`
	Now        model.Clock    `json:"now"`
}

type hoverRequest struct {
	ID string `json:"id"`
	On bool   `json:"on"`
}

type inspectionResponse struct {
	Inspecting    bool    `json:"inspecting"`
	SurfaceHeight float64 `json:"surface_height"`
}

type reloadResponse struct {
	Generation uint64 `json:"generation"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) handleLayout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.View())
}

func (s *Server) handleElements(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Elements())
}

func (s *Server) handlePosition(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.positionResponse())
}

func (s *Server) positionResponse() positionResponse {
	v := s.sess.View()
	return positionResponse{
		Position:   v.Position,
		Mode:       v.Mode,
		Inspecting: v.Inspecting,
		Now:        v.Now,
	}
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch req.Kind {
	case KindDragStart:
		src := scale.SourcePointer
		if req.Source == string(scale.SourceTouch) {
			src = scale.SourceTouch
		}
		s.sess.BeginDrag(src)
	case KindDragMove:
		if req.TrackHeight <= 0 {
			writeError(w, http.StatusBadRequest, "track_height must be positive")
			return
		}
		s.sess.DragTo(req.Y, req.TrackHeight)
	case KindDragEnd:
		s.sess.EndDrag()
	case KindDragLeave:
		s.sess.LeaveTrack()
	case KindClick:
		if req.TrackHeight <= 0 {
			writeError(w, http.StatusBadRequest, "track_height must be positive")
			return
		}
		s.sess.ClickTrack(req.Y, req.TrackHeight)
	case KindWheel:
		if req.TrackHeight <= 0 {
			writeError(w, http.StatusBadRequest, "track_height must be positive")
			return
		}
		s.sess.Wheel(req.DeltaY, req.TrackHeight)
	case KindScroll:
		s.sess.Scroll(req.ScrollTop)
	case KindGoTo:
		t, err := s.parseTime(req.Time)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if _, err := s.sess.GoToTime(t); err != nil {
			s.writeSessionError(w, err)
			return
		}
	case KindGoToNow:
		if _, err := s.sess.GoToNow(); err != nil {
			s.writeSessionError(w, err)
			return
		}
	case KindSettled:
		s.sess.LayoutSettled()
	case KindViewport:
		if req.Width <= 0 || req.ContainerHeight <= 0 {
			writeError(w, http.StatusBadRequest, "width and container_height must be positive")
			return
		}
		s.sess.SetViewport(req.Width, req.ContainerHeight)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown input kind %q", req.Kind))
		return
	}

	writeJSON(w, http.StatusOK, s.positionResponse())
}

// parseTime reads the timeline's own "DD.MM HH:MM" form against the
// session's season, falling back to RFC 3339.
func (s *Server) parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, errors.New("time is required")
	}
	loc := time.Local
	if s.cfg != nil {
		if l, err := s.cfg.Location(); err == nil {
			loc = l
		}
	}
	if t, ok := timeline.ParseDateTime(v, s.sess.BaseYear(), loc); ok {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", v)
	}
	return t, nil
}

func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scale.ErrNoRange), errors.Is(err, session.ErrNoEvents):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrUnknownElement):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		appLog.Error("api: session call failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	var req hoverRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	el, err := s.sess.Hover(req.ID, req.On)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, el)
}

func (s *Server) handleInspection(w http.ResponseWriter, _ *http.Request) {
	s.sess.ToggleInspection()
	v := s.sess.View()
	writeJSON(w, http.StatusOK, inspectionResponse{
		Inspecting:    v.Inspecting,
		SurfaceHeight: v.SurfaceHeight,
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.reload == nil {
		writeError(w, http.StatusServiceUnavailable, "reload not configured")
		return
	}
	if err := s.reload(r.Context()); err != nil {
		if errors.Is(err, session.ErrNoEvents) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		appLog.Error("api: reload failed", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{Generation: s.sess.Generation()})
}

// visibleElements drops hidden elements from the page.
func visibleElements(els []inspect.Element) []inspect.Element {
	out := els[:0]
	for _, el := range els {
		if el.Style.Display == "none" {
			continue
		}
		out = append(out, el)
	}
	return out
}
