package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestBookingMetricsObserve(t *testing.T) {
	m := NewBookingMetrics(prometheus.NewRegistry())
	m.ObserveWebhook("submit_times", "applied")
	m.ObserveWebhookLatency("submit_times", 0.5)
	m.ObserveMissingCorrelation("patient_confirm")
	m.ObserveStoreFailure("apply_workflow")
}

func TestBookingMetricsDefaultRegistry(t *testing.T) {
	m := NewBookingMetrics(nil)
	m.ObserveWebhook("confirm_final", "completed")
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveWebhook("event", "outcome")
	m.ObserveWebhookLatency("event", 0.1)
	m.ObserveMissingCorrelation("event")
	m.ObserveStoreFailure("op")
}
