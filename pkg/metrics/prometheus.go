package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	// HTTP Request Metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Meeting Metrics
	meetingsCreatedTotal *prometheus.CounterVec
	meetingsFailedTotal  *prometheus.CounterVec
	meetingJoinsTotal    prometheus.Counter

	// Notice Metrics
	websocketConnections prometheus.Gauge
	noticesTotal         *prometheus.CounterVec

	// Storage Metrics
	storageRequestsTotal *prometheus.CounterVec
}

// NewMetrics creates all metrics on a registry owned by this instance
func NewMetrics(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)
	labels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		registry: registry,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: labels,
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "http_requests_in_flight",
				Help:        "Number of HTTP requests currently being processed",
				ConstLabels: labels,
			},
		),

		meetingsCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "meetings_created_total",
				Help:        "Total number of meetings created",
				ConstLabels: labels,
			},
			[]string{"kind"},
		),
		meetingsFailedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "meetings_failed_total",
				Help:        "Total number of failed meeting creations",
				ConstLabels: labels,
			},
			[]string{"reason"},
		),
		meetingJoinsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        "meeting_joins_total",
				Help:        "Total number of join-by-link navigations",
				ConstLabels: labels,
			},
		),

		websocketConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "notice_websocket_connections",
				Help:        "Number of open notice WebSocket connections",
				ConstLabels: labels,
			},
		),
		noticesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "notices_total",
				Help:        "Total number of notices shown",
				ConstLabels: labels,
			},
			[]string{"title"},
		),

		storageRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "storage_requests_total",
				Help:        "Total number of recording storage requests",
				ConstLabels: labels,
			},
			[]string{"operation", "status"},
		),
	}
}

// GetRegistry returns the registry the metrics are registered on
func (m *Metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Dec()
}

// RecordMeetingCreated counts a created meeting
func (m *Metrics) RecordMeetingCreated(instant bool) {
	kind := "scheduled"
	if instant {
		kind = "instant"
	}
	m.meetingsCreatedTotal.WithLabelValues(kind).Inc()
}

// RecordMeetingFailed counts a failed creation
func (m *Metrics) RecordMeetingFailed(reason string) {
	m.meetingsFailedTotal.WithLabelValues(reason).Inc()
}

// RecordMeetingJoined counts a join-by-link navigation
func (m *Metrics) RecordMeetingJoined() {
	m.meetingJoinsTotal.Inc()
}

// IncrementWebSocketConnections tracks an opened notice socket
func (m *Metrics) IncrementWebSocketConnections() {
	m.websocketConnections.Inc()
}

// DecrementWebSocketConnections tracks a closed notice socket
func (m *Metrics) DecrementWebSocketConnections() {
	m.websocketConnections.Dec()
}

// RecordNotice counts a shown notice
func (m *Metrics) RecordNotice(title string) {
	m.noticesTotal.WithLabelValues(title).Inc()
}

// RecordStorageRequest counts a recording storage request by outcome
func (m *Metrics) RecordStorageRequest(operation, status string) {
	m.storageRequestsTotal.WithLabelValues(operation, status).Inc()
}
