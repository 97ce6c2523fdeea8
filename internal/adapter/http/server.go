// Package http serves the dashboard API, health probes and Prometheus metrics.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/traffic-count-etl/internal/domain"
)

// SiteStore is the site dataset cache behind the API. It is implemented by
// sitedata.Cache.
type SiteStore interface {
	Sites() []domain.Site
	Site(siteID string) (domain.Site, bool)
	Get(ctx context.Context, siteID, sourceOverride string) domain.Dataset
	Invalidate(siteID string)
	Rebuild(ctx context.Context, siteID, sourceRoot string) (domain.Dataset, error)
}

// Server exposes the dashboard API and the health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	sites      SiteStore
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api/sites routes.
func NewServer(addr string, sites SiteStore, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: mux,
			// Cold site builds and report rendering can take a while.
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		sites:  sites,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/sites", s.handleSites)
	mux.HandleFunc("GET /api/sites/{id}/synthesis", s.withDataset(s.handleSynthesis))
	mux.HandleFunc("GET /api/sites/{id}/timeline", s.withDataset(s.handleTimeline))
	mux.HandleFunc("GET /api/sites/{id}/heatmap", s.withDataset(s.handleHeatmap))
	mux.HandleFunc("GET /api/sites/{id}/comparison", s.withDataset(s.handleComparison))
	mux.HandleFunc("GET /api/sites/{id}/report", s.withDataset(s.handleReport))
	mux.HandleFunc("GET /api/sites/{id}/report.csv", s.withDataset(s.handleReportCSV))
	mux.HandleFunc("POST /api/sites/{id}/invalidate", s.handleInvalidate)
	mux.HandleFunc("POST /api/sites/{id}/rebuild", s.handleRebuild)

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

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
