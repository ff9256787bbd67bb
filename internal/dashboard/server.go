package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"climatemap/internal"
	"climatemap/internal/pipeline"
)

// Pipeline is the part of pipeline.Service the API reads from.
type Pipeline interface {
	Years() []int
	DefaultYear() (int, error)
	Sheets(year int) ([]string, error)
	Run(ctx context.Context, sel internal.Selection) (*pipeline.Result, error)
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// MapView is the fallback map position and zoom.
type MapView struct {
	CenterLat float64
	CenterLon float64
	Zoom      float64
}

// Server exposes the dashboard JSON API plus health, readiness, and metrics.
type Server struct {
	httpServer *http.Server
	pipeline   Pipeline
	view       MapView
	logger     *slog.Logger
}

// NewServer builds the router. gatherer backs /metrics; nil means the default
// registry.
func NewServer(addr string, p Pipeline, ready ReadinessChecker, view MapView, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	s := &Server{pipeline: p, view: view, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", handleReady(ready))
	if gatherer == nil {
		r.Handle("/metrics", promhttp.Handler())
	} else {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/years", s.handleYears)
		r.Get("/years/{year}/sheets", s.handleSheets)
		r.Get("/map", s.handleMap)
		r.Get("/table", s.handleTable)
		r.Get("/legend", s.handleLegend)
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// errBadRequest marks malformed query parameters.
var errBadRequest = errors.New("bad request")

// writeError turns pipeline failures into the message shown in place of the
// map: 404 for a selection that does not exist, 500 for anything else.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, pipeline.ErrUnknownYear),
		errors.Is(err, pipeline.ErrWorkbookMissing),
		errors.Is(err, pipeline.ErrUnknownSheet):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// year reads a year from raw, falling back to the default year when raw is
// empty.
func (s *Server) year(raw string) (int, error) {
	if raw == "" {
		return s.pipeline.DefaultYear()
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: year %q is not a number", errBadRequest, raw)
	}
	return year, nil
}

func (s *Server) selection(r *http.Request) (internal.Selection, error) {
	year, err := s.year(r.URL.Query().Get("year"))
	if err != nil {
		return internal.Selection{}, err
	}
	return internal.Selection{Year: year, Sheet: r.URL.Query().Get("sheet")}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
