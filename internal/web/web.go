// Package web exposes the event collection over HTTP: JSON APIs, calendar
// downloads, social card images, the sitemap and Prometheus metrics.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"techevents/internal/capture"
	"techevents/internal/config"
	appLog "techevents/internal/log"
	"techevents/internal/metrics"
	"techevents/internal/model"
)

// EventSource yields the current event snapshot. *store.Cache implements it.
type EventSource interface {
	Events() []model.Event
}

// Options wires a Server. Config and Events are required.
type Options struct {
	Config *config.Config
	Events EventSource

	// Renderer produces OG images. Nil disables /api/og.
	Renderer capture.Renderer
	// RenderBase is the origin the renderer uses to reach /og/{slug}.
	// Defaults to http://<listen>.
	RenderBase string

	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Server provides the HTTP APIs over an EventSource.
type Server struct {
	cfg        *config.Config
	events     EventSource
	renderer   capture.Renderer
	renderBase string
	metrics    *metrics.Metrics
	now        func() time.Time
	router     *mux.Router

	// Rendered OG images keyed by slug, kept for cfg.OGCacheTTL().
	ogMu    sync.RWMutex
	ogCache map[string]ogEntry
}

type ogEntry struct {
	png        []byte
	renderedAt time.Time
}

// NewServer constructs a new Server.
func NewServer(opts Options) *Server {
	s := &Server{
		cfg:        opts.Config,
		events:     opts.Events,
		renderer:   opts.Renderer,
		renderBase: strings.TrimRight(opts.RenderBase, "/"),
		metrics:    opts.Metrics,
		now:        opts.Now,
		router:     mux.NewRouter(),
		ogCache:    make(map[string]ogEntry),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.renderBase == "" {
		s.renderBase = "http://" + s.cfg.Listen
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(s.instrument)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/healthz", s.handleHealthz).Methods(http.MethodGet)

	r.HandleFunc("/api/events", s.handleEvents).Methods(http.MethodGet)
	r.HandleFunc("/api/events/{slug}", s.handleEvent).Methods(http.MethodGet)
	r.HandleFunc("/api/events/{slug}/related", s.handleRelated).Methods(http.MethodGet)
	r.HandleFunc("/api/tags", s.handleTags).Methods(http.MethodGet)
	r.HandleFunc("/api/tags/{tag}", s.handleTag).Methods(http.MethodGet)
	r.HandleFunc("/api/platforms/{name}", s.handlePlatform).Methods(http.MethodGet)
	r.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)

	r.HandleFunc("/api/ics/{slug}", s.handleICS).Methods(http.MethodGet)
	r.HandleFunc("/api/og", s.handleOGImage).Methods(http.MethodGet)
	r.HandleFunc("/og/{slug}", s.handleOGCard).Methods(http.MethodGet)

	r.HandleFunc("/sitemap.xml", s.handleSitemap).Methods(http.MethodGet)
	r.HandleFunc("/robots.txt", s.handleRobots).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
}

// LogRoutes writes every registered route at debug level.
func (s *Server) LogRoutes() {
	_ = s.router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, _ := route.GetPathTemplate()
		methods, _ := route.GetMethods()
		appLog.Debug("route", "methods", strings.Join(methods, ","), "path", path)
		return nil
	})
}

// Serve listens on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	appLog.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request count and latency labelled by route template
// rather than raw path.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.metrics.ObserveRequest(route, rec.status, time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// splitList parses comma separated query values, dropping blanks.
func splitList(s string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
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
