package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.Observe("/sync/{entity}", "POST", 200, 2*time.Second)
	m.Observe("/sync/{entity}", "POST", 200, time.Second)
	m.Observe("", "GET", 404, time.Millisecond)

	if got := testutil.ToFloat64(m.requests.WithLabelValues("/sync/{entity}", "POST", "200")); got != 2 {
		t.Fatalf("expected 2 requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("unknown", "GET", "404")); got != 1 {
		t.Fatalf("expected unmatched route under unknown, got %v", got)
	}
}

func TestHTTPMetricsNilSafe(t *testing.T) {
	var m *HTTPMetrics
	m.Observe("/ping", "GET", 200, time.Millisecond)
	NewHTTPMetrics(nil).Observe("/ping", "GET", 200, time.Millisecond)
}
