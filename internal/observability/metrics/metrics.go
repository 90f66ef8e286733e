package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking webhook flows.
type BookingMetrics struct {
	webhookTotal       *prometheus.CounterVec
	webhookLatency     *prometheus.HistogramVec
	missingCorrelation *prometheus.CounterVec
	storeFailure       *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		webhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "voice",
			Name:      "webhook_total",
			Help:      "Total voice-agent tool-call webhooks",
		}, []string{"event", "outcome"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "booking",
			Subsystem: "voice",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of tool-call webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event"}),
		missingCorrelation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "voice",
			Name:      "missing_correlation_total",
			Help:      "Tool calls dropped because no workflow_id could be resolved",
		}, []string{"event"}),
		storeFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "voice",
			Name:      "store_failure_total",
			Help:      "Store/log operations that errored inside a handler",
		}, []string{"op"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.webhookTotal, m.webhookLatency, m.missingCorrelation, m.storeFailure)
	return m
}

func (m *BookingMetrics) ObserveWebhook(event, outcome string) {
	if m == nil {
		return
	}
	m.webhookTotal.WithLabelValues(event, outcome).Inc()
}

func (m *BookingMetrics) ObserveWebhookLatency(event string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(event).Observe(seconds)
}

// ObserveMissingCorrelation is the operator-facing side channel for the
// silent fail-safe: the caller hears a polite acknowledgement, this counter
// is how anyone ever finds out data was dropped.
func (m *BookingMetrics) ObserveMissingCorrelation(event string) {
	if m == nil {
		return
	}
	m.missingCorrelation.WithLabelValues(event).Inc()
}

func (m *BookingMetrics) ObserveStoreFailure(op string) {
	if m == nil {
		return
	}
	m.storeFailure.WithLabelValues(op).Inc()
}
