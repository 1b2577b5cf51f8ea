package monitoring

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code", "service"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "service"},
	)

	// Scheduler metrics
	schedulerTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_ticks_total",
			Help: "Total number of scheduler tick evaluations",
		},
		[]string{"service"},
	)

	schedulerTickDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_tick_duration_seconds",
			Help:    "Duration of one scheduler tick in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"service"},
	)

	treatmentAlertsFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "treatment_alerts_fired_total",
			Help: "Total number of treatment due alerts fired",
		},
		[]string{"department", "service"},
	)

	duplicatesSuppressed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "occurrences_suppressed_total",
			Help: "Total number of occurrence evaluations suppressed by the dedup store",
		},
		[]string{"service"},
	)

	// Snapshot metrics
	snapshotRefreshFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_refresh_failures_total",
			Help: "Total number of ward snapshot refresh failures",
		},
		[]string{"service"},
	)

	snapshotAgeSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "snapshot_age_seconds",
			Help: "Age of the last good ward snapshot in seconds",
		},
		[]string{"service"},
	)

	// Call session metrics
	callSessionsRaised = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_sessions_raised_total",
			Help: "Total number of call sessions raised (including refreshes)",
		},
		[]string{"department", "service"},
	)

	callSessionsExpired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_sessions_expired_total",
			Help: "Total number of call sessions that reached their TTL unacknowledged",
		},
		[]string{"department", "service"},
	)

	callSessionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "call_sessions_active",
			Help: "Number of currently active call sessions",
		},
		[]string{"service"},
	)

	// Dispatcher metrics
	subscribersConnected = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "subscribers_connected",
			Help: "Number of currently connected alert subscribers",
		},
		[]string{"service"},
	)

	dispatchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_failures_total",
			Help: "Total number of failed deliveries to individual subscribers",
		},
		[]string{"service"},
	)
)

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	serviceName string
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(serviceName string) *MetricsCollector {
	// Register metrics
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		schedulerTicksTotal,
		schedulerTickDuration,
		treatmentAlertsFired,
		duplicatesSuppressed,
		snapshotRefreshFailures,
		snapshotAgeSeconds,
		callSessionsRaised,
		callSessionsExpired,
		callSessionsActive,
		subscribersConnected,
		dispatchFailures,
	)

	return &MetricsCollector{
		serviceName: serviceName,
	}
}

// RecordHTTPRequest records HTTP request metrics
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, statusCode, m.serviceName).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, m.serviceName).Observe(duration.Seconds())
}

// RecordTick records one scheduler tick evaluation
func (m *MetricsCollector) RecordTick(duration time.Duration) {
	schedulerTicksTotal.WithLabelValues(m.serviceName).Inc()
	schedulerTickDuration.WithLabelValues(m.serviceName).Observe(duration.Seconds())
}

// RecordTreatmentAlert records a fired treatment due alert
func (m *MetricsCollector) RecordTreatmentAlert(department string) {
	treatmentAlertsFired.WithLabelValues(department, m.serviceName).Inc()
}

// RecordDuplicateSuppressed records an occurrence the dedup store suppressed
func (m *MetricsCollector) RecordDuplicateSuppressed() {
	duplicatesSuppressed.WithLabelValues(m.serviceName).Inc()
}

// RecordSnapshotRefreshFailure records a failed ward snapshot refresh
func (m *MetricsCollector) RecordSnapshotRefreshFailure() {
	snapshotRefreshFailures.WithLabelValues(m.serviceName).Inc()
}

// RecordSnapshotAge records the age of the last good ward snapshot
func (m *MetricsCollector) RecordSnapshotAge(age time.Duration) {
	snapshotAgeSeconds.WithLabelValues(m.serviceName).Set(age.Seconds())
}

// RecordCallRaised records a raised (or refreshed) call session
func (m *MetricsCollector) RecordCallRaised(department string) {
	callSessionsRaised.WithLabelValues(department, m.serviceName).Inc()
}

// RecordCallExpired records a call session that expired unacknowledged
func (m *MetricsCollector) RecordCallExpired(department string) {
	callSessionsExpired.WithLabelValues(department, m.serviceName).Inc()
}

// RecordActiveCalls records the number of active call sessions
func (m *MetricsCollector) RecordActiveCalls(count int) {
	callSessionsActive.WithLabelValues(m.serviceName).Set(float64(count))
}

// RecordSubscribers records the number of connected subscribers
func (m *MetricsCollector) RecordSubscribers(count int) {
	subscribersConnected.WithLabelValues(m.serviceName).Set(float64(count))
}

// RecordDispatchFailure records a failed delivery to one subscriber
func (m *MetricsCollector) RecordDispatchFailure() {
	dispatchFailures.WithLabelValues(m.serviceName).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.Handler()
}

// HTTPMiddleware creates middleware for HTTP request metrics
func (m *MetricsCollector) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		statusCode := strconv.Itoa(wrapper.statusCode)

		m.RecordHTTPRequest(r.Method, r.URL.Path, statusCode, duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack delegates to the underlying writer so connection-upgrading
// handlers (the WebSocket event stream) keep working behind the middleware.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}
