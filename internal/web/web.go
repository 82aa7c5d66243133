package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"timedesk/internal/config"
	appLog "timedesk/internal/log"
	"timedesk/internal/session"
)

// ReloadFunc re-reads the configured event source into the session.
type ReloadFunc func(ctx context.Context) error

// Server exposes a session over HTTP: the page, the JSON API and /metrics.
type Server struct {
	cfg      *config.Config
	sess     *session.Session
	reload   ReloadFunc
	gatherer prometheus.Gatherer
	mux      *http.ServeMux
}

type Option func(*Server)

// WithReload enables POST /api/reload.
func WithReload(fn ReloadFunc) Option {
	return func(s *Server) { s.reload = fn }
}

// WithGatherer serves g on /metrics. Without it /metrics is not registered.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, sess *session.Session, opts ...Option) *Server {
	s := &Server{
		cfg:  cfg,
		sess: sess,
		mux:  http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled is true only when both credentials are set.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware guards the page and the API. /health stays open so
// the supervisor can poll it without credentials.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	want := credentials{user: s.cfg.BasicAuth.Username, pass: s.cfg.BasicAuth.Password}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || !want.match(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="timedesk", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type credentials struct {
	user, pass string
}

// match checks both halves before answering so a wrong user costs the
// same as a wrong password.
func (c credentials) match(user, pass string) bool {
	u := subtle.ConstantTimeCompare([]byte(user), []byte(c.user))
	p := subtle.ConstantTimeCompare([]byte(pass), []byte(c.pass))
	return u&p == 1
}

// Serve listens on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an already bound listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		appLog.Info("stopping HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/layout", s.handleLayout)
	s.mux.HandleFunc("GET /api/elements", s.handleElements)
	s.mux.HandleFunc("GET /api/position", s.handlePosition)
	s.mux.HandleFunc("POST /api/input", s.handleInput)
	s.mux.HandleFunc("POST /api/hover", s.handleHover)
	s.mux.HandleFunc("POST /api/inspection", s.handleInspection)
	s.mux.HandleFunc("POST /api/reload", s.handleReload)

	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.mux.HandleFunc("GET /{$}", s.handlePage)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
