// Package middleware provides reusable HTTP middleware for request IDs,
// Prometheus metrics, and per-request wall-clock timeouts.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Variant-Search/pkg/metrics"
)

// Metrics returns middleware that records HTTP request count, latency, and
// in-flight gauge.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			duration := time.Since(start).Seconds()
			path := normalizePath(r.URL.Path)

			m.HTTPRequestsTotal.WithLabelValues(
				r.Method,
				path,
				strconv.Itoa(sw.status),
			).Inc()

			m.HTTPRequestDuration.WithLabelValues(
				r.Method,
				path,
			).Observe(duration)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.wroteHeader {
		sw.wroteHeader = true
	}
	return sw.ResponseWriter.Write(b)
}

// routes are the paths recorded under their own label. Anything else is
// recorded as "other" so scanners cannot grow label cardinality.
var routes = map[string]bool{
	"/search":                     true,
	"/gene_counts":                true,
	"/lookup":                     true,
	"/multi_lookup":               true,
	"/api/v1/catalog/reload":      true,
	"/api/v1/cache/stats":         true,
	"/api/v1/cache/invalidate":    true,
	"/api/v1/analytics/stats":     true,
	"/api/v1/analytics/snapshots": true,
	"/health/live":                true,
	"/health/ready":               true,
}

func normalizePath(path string) string {
	path = strings.TrimSuffix(path, "/")
	if routes[path] {
		return path
	}
	return "other"
}
