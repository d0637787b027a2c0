// Package metrics exposes Prometheus collectors for the monitor service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedwatch_http_requests_total",
			Help: "Total HTTP requests handled, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedwatch_http_request_duration_seconds",
			Help:    "HTTP request latency, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)

	concurrencyCap = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedwatch_concurrency_cap",
			Help: "Current adaptive in-flight fetch cap.",
		},
	)

	residentBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedwatch_resident_memory_bytes",
			Help: "Resident set size sampled after each round.",
		},
	)

	catalogSources = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedwatch_catalog_sources",
			Help: "Number of configured sources.",
		},
	)
)

// SetConcurrencyCap records the current fetch cap.
func SetConcurrencyCap(cap int) {
	concurrencyCap.Set(float64(cap))
}

// SetResidentBytes records the latest memory sample.
func SetResidentBytes(b uint64) {
	residentBytes.Set(float64(b))
}

// SetCatalogSize records the configured source count.
func SetCatalogSize(n int) {
	catalogSources.Set(float64(n))
}

// Middleware is a chi middleware recording request counts and latency.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unknown"
		}
		httpRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(ww.status)).Inc()
		httpRequestDurationSeconds.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}
