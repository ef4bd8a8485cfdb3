package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Enforcement metrics
	AuthFailuresTotal      *prometheus.CounterVec
	AccessDeniedTotal      *prometheus.CounterVec
	UsageDecisionsTotal    *prometheus.CounterVec
	UsageRecordedTotal     *prometheus.CounterVec
	EnforcementErrorsTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimitedTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulseboard_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulseboard_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulseboard_auth_failures_total",
				Help: "Rejected credentials by reason",
			},
			[]string{"reason"},
		),
		AccessDeniedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulseboard_access_denied_total",
				Help: "Organization access denials by reason",
			},
			[]string{"reason"},
		),
		UsageDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulseboard_usage_decisions_total",
				Help: "Usage enforcement decisions by resource and outcome",
			},
			[]string{"resource", "outcome"},
		),
		UsageRecordedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulseboard_usage_recorded_total",
				Help: "Units of usage recorded by resource",
			},
			[]string{"resource"},
		),
		EnforcementErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulseboard_enforcement_errors_total",
				Help: "Unexpected errors in pipeline stages",
			},
			[]string{"stage"},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulseboard_rate_limited_total",
				Help: "Requests rejected by the hourly API rate limiter",
			},
			[]string{"plan"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthFailuresTotal,
		m.AccessDeniedTotal,
		m.UsageDecisionsTotal,
		m.UsageRecordedTotal,
		m.EnforcementErrorsTotal,
		m.RateLimitedTotal,
	)

	return m
}

// Handler returns the Prometheus scrape handler for this metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HTTPMiddleware instruments request counts and durations.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
