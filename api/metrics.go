/*
metrics.go - Prometheus collectors and request middleware

PURPOSE:
  Exposes request-level observability for the billing API. Collectors are
  registered on the default registry and scraped via /metrics.

METRICS:
  feeengine_http_requests_total{method,path,status}
  feeengine_http_request_duration_seconds{method,path}
  feeengine_notices_generated_total

SEE ALSO:
  - server.go: Mounts the middleware and the /metrics route
*/
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feeengine_http_requests_total",
		Help: "Total HTTP requests served, by method, route pattern, and status.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feeengine_http_request_duration_seconds",
		Help:    "HTTP request latency, by method and route pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// NoticesGenerated counts successful notice computations.
	NoticesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feeengine_notices_generated_total",
		Help: "Total fee notices generated or recomputed.",
	})
)

// MetricsMiddleware records request counts and latency. The route pattern
// (not the raw URL) is used as the path label to keep cardinality bounded.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		requestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(ww.Status())).Inc()
		requestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}
