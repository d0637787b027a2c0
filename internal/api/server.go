// Package api exposes the HTTP interface for the monitor service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/feedwatch/feedwatch/internal/metrics"
	"github.com/feedwatch/feedwatch/internal/monitor"
)

const requestTimeout = 60 * time.Second

// Refresher triggers fetch rounds on demand.
type Refresher interface {
	RefreshAll(ctx context.Context)
}

// Server wires HTTP handlers to the monitor session.
type Server struct {
	router    chi.Router
	session   *monitor.Session
	refresher Refresher
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes. The gatherer
// backs GET /metrics; pass prometheus.DefaultGatherer unless tests need
// an isolated registry.
func NewServer(
	session *monitor.Session,
	refresher Refresher,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		session:   session,
		refresher: refresher,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(requestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/refresh", s.refresh)
		r.Route("/feeds", func(r chi.Router) {
			r.Get("/", s.listFeeds)
			r.Route("/{key}", func(r chi.Router) {
				r.Get("/", s.getFeed)
				r.Post("/open", s.openFeed)
				r.Post("/close", s.closeFeed)
				r.Post("/seen", s.markSeen)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// Ready once the session exists; sources may still be mid-fetch.
	if s.session == nil {
		writeError(w, http.StatusServiceUnavailable, "session not initialized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		writeError(w, http.StatusServiceUnavailable, "refresh unavailable")
		return
	}
	s.refresher.RefreshAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}
