package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"timedesk/internal/inspect"
	appLog "timedesk/internal/log"
	"timedesk/internal/session"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type pageElement struct {
	ID      string
	Classes string
	Style   template.CSS
	// Content is built from escaped record fields by internal/inspect.
	Content template.HTML
}

type pageData struct {
	Ready         bool
	Generation    uint64
	Mode          string
	Inspecting    bool
	SurfaceHeight float64
	ScrollHeight  float64
	Percent       float64
	ClockDate     string
	ClockTime     string
	Elements      []pageElement
}

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	data := buildPage(s.sess.View())

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		appLog.Error("page render failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func buildPage(v session.View) pageData {
	data := pageData{
		Ready:         v.Generation > 0,
		Generation:    v.Generation,
		Mode:          v.Mode,
		Inspecting:    v.Inspecting,
		SurfaceHeight: v.SurfaceHeight,
		ScrollHeight:  v.Layout.Canvas.ScrollHeight,
		Percent:       v.Position.Percent,
		ClockDate:     v.Position.Clock.Date,
		ClockTime:     v.Position.Clock.Time,
	}
	for _, el := range visibleElements(v.Elements) {
		data.Elements = append(data.Elements, pageElement{
			ID:      el.ID,
			Classes: strings.Join(el.Classes, " "),
			Style:   styleOf(el.Style),
			Content: template.HTML(el.Content),
		})
	}
	return data
}

func styleOf(st inspect.Style) template.CSS {
	var b strings.Builder
	put := func(k, v string) {
		if v == "" {
			return
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("; ")
	}
	put("top", st.Top)
	put("left", st.Left)
	put("width", st.Width)
	put("height", st.Height)
	put("transform", st.Transform)
	put("transform-origin", st.TransformOrigin)
	put("display", st.Display)
	put("z-index", strconv.Itoa(st.ZIndex))
	return template.CSS(strings.TrimSpace(b.String()))
}
