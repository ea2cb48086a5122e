// Package metrics exposes the Prometheus instruments of the intake pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes
const (
	OutcomeAccepted       = "accepted"
	OutcomeInvalidRequest = "invalid_request"
	OutcomeInvalidInput   = "invalid_input"
	OutcomeRateLimited    = "rate_limited"
	OutcomeDeliveryFailed = "delivery_failed"
)

// Delivery results
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	Submissions      *prometheus.CounterVec
	Deliveries       *prometheus.CounterVec
	DeliveryDuration *prometheus.HistogramVec
	LogAppendErrors  prometheus.Counter
	RetentionRuns    *prometheus.CounterVec
	FeedClients      prometheus.Gauge
}

// NewMetrics registers the metrics with the default registerer
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not panic.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cybersentinel_contact_submissions_total",
			Help: "Total number of contact submissions by outcome",
		}, []string{"outcome"}),
		Deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cybersentinel_mail_deliveries_total",
			Help: "Total number of outbound emails by kind, transport and result",
		}, []string{"kind", "transport", "result"}),
		DeliveryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cybersentinel_mail_delivery_duration_seconds",
			Help:    "Time spent handing one email to the transport",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		LogAppendErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "cybersentinel_contact_log_append_errors_total",
			Help: "Accepted submissions whose log records could not be written",
		}),
		RetentionRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cybersentinel_retention_runs_total",
			Help: "Retention sweeps by result",
		}, []string{"result"}),
		FeedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cybersentinel_feed_clients",
			Help: "Number of connected live feed clients",
		}),
	}
}

// ObserveSubmission counts one finished submission
func (m *Metrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

// ObserveDelivery records one delivery attempt
func (m *Metrics) ObserveDelivery(kind, transport string, err error, seconds float64) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.Deliveries.WithLabelValues(kind, transport, result).Inc()
	m.DeliveryDuration.WithLabelValues(kind).Observe(seconds)
}

// ObserveLogAppendError counts a failed dual-log append
func (m *Metrics) ObserveLogAppendError() {
	if m == nil {
		return
	}
	m.LogAppendErrors.Inc()
}

// ObserveRetention counts one retention sweep
func (m *Metrics) ObserveRetention(err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.RetentionRuns.WithLabelValues(result).Inc()
}

// SetFeedClients updates the live feed client gauge
func (m *Metrics) SetFeedClients(n int) {
	if m == nil {
		return
	}
	m.FeedClients.Set(float64(n))
}
