package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ftlbridge",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests served by the API.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ftlbridge",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	engineErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ftlbridge",
			Subsystem: "engine",
			Name:      "errors_total",
			Help:      "Engine errors that reached an HTTP response, by error kind.",
		},
		[]string{"kind"},
	)
)

// RegisterMetrics registers the HTTP collectors with the default Prometheus registry. It is safe to
// call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, engineErrors)
	})
}

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// RecordEngineError records an engine error surfaced to an HTTP client.
func RecordEngineError(kind string) {
	RegisterMetrics()
	engineErrors.WithLabelValues(kind).Inc()
}
