package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricHttpReqCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "transfers",
		Name:      "api_request_count",
		Help:      "Count of API requests",
	}, []string{"path", "code", "method"})

	metricHttpReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "transfers",
		Name:      "api_duration_ms",
		Help:      "Duration of API requests in milliseconds",
		Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"path", "code", "method"})
)

// metricsResponseWriter is a wrapper around http.ResponseWriter that captures the status code.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{w, http.StatusOK}
}

func (m *metricsResponseWriter) WriteHeader(code int) {
	m.statusCode = code
	m.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware records metrics for each matched route. Route template is used
// as path label to keep label cardinality independent of addresses.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			name    = "unknown"
			enabled = false
		)
		if route := mux.CurrentRoute(r); route != nil {
			if rname := route.GetName(); rname != "" {
				name = rname
				enabled = true
			}
		}

		now := time.Now()
		mrw := newMetricsResponseWriter(w)
		next.ServeHTTP(mrw, r)

		if !enabled {
			return
		}
		code := strconv.Itoa(mrw.statusCode)
		metricHttpReqCounter.WithLabelValues(name, code, r.Method).Inc()
		metricHttpReqDuration.WithLabelValues(name, code, r.Method).Observe(float64(time.Since(now).Milliseconds()))
	})
}
