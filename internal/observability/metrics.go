package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "servicedesk"

// Metrics holds the service's prometheus collectors. A nil *Metrics is a no-op.
type Metrics struct {
	requests             *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	errors               *prometheus.CounterVec
	sequenceRetries      *prometheus.CounterVec
	sequenceFailures     *prometheus.CounterVec
	notificationFailures *prometheus.CounterVec
	slaBreaches          *prometheus.GaugeVec
	sweepRuns            prometheus.Counter
}

// NewMetrics registers collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Error responses by domain error code",
		}, []string{"method", "route", "code"}),
		sequenceRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sequence",
			Name:      "retries_total",
			Help:      "Ticket number attempts that conflicted and were retried",
		}, []string{"counter"}),
		sequenceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sequence",
			Name:      "failures_total",
			Help:      "Ticket number generations that exhausted their retries",
		}, []string{"counter"}),
		notificationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "failures_total",
			Help:      "Notifications that could not be dispatched",
		}, []string{"kind"}),
		slaBreaches: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sla",
			Name:      "breached_tickets",
			Help:      "Tickets currently breaching an SLA target, by priority",
		}, []string{"priority"}),
		sweepRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sla",
			Name:      "sweep_runs_total",
			Help:      "Scheduled SLA breach sweeps executed",
		}),
	}
}

// RecordRequest counts a finished request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError counts an error response.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, route, code).Inc()
}

// RecordSequenceRetry counts a conflicting counter attempt.
func (m *Metrics) RecordSequenceRetry(counterID string) {
	if m == nil {
		return
	}
	m.sequenceRetries.WithLabelValues(counterID).Inc()
}

// RecordSequenceFailure counts an exhausted generation.
func (m *Metrics) RecordSequenceFailure(counterID string) {
	if m == nil {
		return
	}
	m.sequenceFailures.WithLabelValues(counterID).Inc()
}

// RecordNotificationFailure counts a failed dispatch.
func (m *Metrics) RecordNotificationFailure(kind string) {
	if m == nil {
		return
	}
	m.notificationFailures.WithLabelValues(kind).Inc()
}

// SetBreaches publishes the latest sweep result.
func (m *Metrics) SetBreaches(byPriority map[string]int) {
	if m == nil {
		return
	}
	m.sweepRuns.Inc()
	m.slaBreaches.Reset()
	for priority, count := range byPriority {
		m.slaBreaches.WithLabelValues(priority).Set(float64(count))
	}
}
