package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appconfig "github.com/carebridge/clinic-scheduling-ai/internal/config"
	"github.com/carebridge/clinic-scheduling-ai/pkg/logging"
)

func TestSetupSchedulingMetricsExposesMetrics(t *testing.T) {
	handler, metrics := setupSchedulingMetrics()
	if handler == nil || metrics == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	metrics.ObserveBookingAttempt("confirmed", 0.01)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "clinic_scheduling_booking_attempts_total") {
		t.Fatalf("expected booking counter to be exported")
	}
}

func TestConnectRedisEmptyAddrReturnsNil(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{RedisAddr: ""}
	if client := connectRedis(context.Background(), cfg, logger); client != nil {
		t.Fatalf("expected nil client for empty addr")
	}
}

func TestConnectRedisUnreachableReturnsNil(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{RedisAddr: "127.0.0.1:1"}
	if client := connectRedis(context.Background(), cfg, logger); client != nil {
		t.Fatalf("expected nil client for unreachable server")
	}
}
