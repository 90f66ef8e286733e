package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appconfig "github.com/scratchieapp/booking-agent/internal/config"
	"github.com/scratchieapp/booking-agent/pkg/logging"
)

func TestSetupMetricsExposesBookingCounters(t *testing.T) {
	bookingMetrics, handler := setupMetrics()
	if bookingMetrics == nil || handler == nil {
		t.Fatalf("expected non-nil metrics and handler")
	}

	bookingMetrics.ObserveWebhook("submit_times", "applied")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "booking_voice_webhook_total") {
		t.Fatalf("expected webhook counter to be exported")
	}
}

func TestConnectPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	logger := logging.New("error")
	if pool := connectPostgresPool(context.Background(), "", logger); pool != nil {
		t.Fatalf("expected nil pool for empty URL")
	}
}

func TestSetupDeduperDisabledWithoutRedis(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{}
	if d := setupDeduper(context.Background(), cfg, logger); d != nil {
		t.Fatalf("expected nil deduper without REDIS_ADDR")
	}
}

func TestSetupAlerterDisabledWithoutSendGrid(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{AlertsToEmail: "ops@example.com"}
	if a := setupAlerter(cfg, logger); a != nil {
		t.Fatalf("expected nil alerter without SENDGRID_API_KEY")
	}
}
