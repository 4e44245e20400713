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

	// Admission metrics
	AdmissionsTotal    *prometheus.CounterVec
	AdmissionDuration  *prometheus.HistogramVec
	AdmissionRejectsTotal *prometheus.CounterVec

	// Payment gateway metrics
	GatewayCallsTotal   *prometheus.CounterVec
	GatewayCallDuration *prometheus.HistogramVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Business metrics
	TeamsTotal    prometheus.Gauge
	ProjectsTotal prometheus.Gauge

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
				Name: "vaultgate_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vaultgate_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AdmissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultgate_admissions_total",
				Help: "Total number of quota admission decisions",
			},
			[]string{"action", "outcome"},
		),
		AdmissionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vaultgate_admission_duration_seconds",
				Help:    "Admission decision duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		AdmissionRejectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultgate_admission_rejects_total",
				Help: "Total number of rejected admission decisions",
			},
			[]string{"action", "reason"},
		),
		GatewayCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultgate_gateway_calls_total",
				Help: "Total number of payment gateway calls",
			},
			[]string{"operation", "status"},
		),
		GatewayCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vaultgate_gateway_call_duration_seconds",
				Help:    "Payment gateway call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		DBConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vaultgate_db_connections_active",
			Help: "Number of active database connections",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vaultgate_db_connections_idle",
			Help: "Number of idle database connections",
		}),
		TeamsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vaultgate_teams_total",
			Help: "Total number of teams",
		}),
		ProjectsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vaultgate_projects_total",
			Help: "Total number of projects",
		}),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AdmissionsTotal,
		m.AdmissionDuration,
		m.AdmissionRejectsTotal,
		m.GatewayCallsTotal,
		m.GatewayCallDuration,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.TeamsTotal,
		m.ProjectsTotal,
	)

	return m
}

// Handler returns the HTTP handler serving the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records metrics for a completed HTTP request
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveAdmission records an admission decision
func (m *Metrics) ObserveAdmission(action string, approved bool, reason string, duration time.Duration) {
	outcome := "approved"
	if !approved {
		outcome = "rejected"
		m.AdmissionRejectsTotal.WithLabelValues(action, reason).Inc()
	}
	m.AdmissionsTotal.WithLabelValues(action, outcome).Inc()
	m.AdmissionDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// ObserveGatewayCall records a payment gateway call
func (m *Metrics) ObserveGatewayCall(operation string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.GatewayCallsTotal.WithLabelValues(operation, status).Inc()
	m.GatewayCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
