package metrics

import (
	"testing"
	"time"

	"github.com/angelmondragon/zohosync-backend/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSyncMetricsCountsRecordsAndRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSyncMetrics(reg)

	m.AddRecords("customers", OutcomeFetched, 92)
	m.AddRecords("customers", OutcomeCreated, 92)
	m.AddRecords("customers", OutcomeDropped, 0)
	finished := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.ObserveRun("customers", "success", 2*time.Second, finished)
	m.ObserveRun("orders", "error", time.Second, finished)

	if got := testutil.ToFloat64(m.records.WithLabelValues("customers", OutcomeFetched)); got != 92 {
		t.Fatalf("expected 92 fetched, got %v", got)
	}
	if got := testutil.ToFloat64(m.runs.WithLabelValues("orders", "error")); got != 1 {
		t.Fatalf("expected 1 failed orders run, got %v", got)
	}
	if got := testutil.ToFloat64(m.lastOK.WithLabelValues("customers")); got != float64(finished.Unix()) {
		t.Fatalf("unexpected last success %v", got)
	}
	if got := testutil.CollectAndCount(m.lastOK); got != 1 {
		t.Fatalf("failed runs must not set last success, got %d series", got)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got, err := fetchHistogramSum(mfs, "zohosync_entity_duration_seconds", "entity", "customers"); err != nil || got != 2 {
		t.Fatalf("expected duration sum 2, got %v err=%v", got, err)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var s *SyncMetrics
	s.AddRecords("items", OutcomeCreated, 1)
	s.ObserveRun("items", "success", time.Second, time.Now())

	var g *GateMetrics
	g.ObserveWait(time.Second)
	g.CircuitRejected()
	g.BreakerChanged(ratelimit.BreakerOpen)

	NewSyncMetrics(nil).AddRecords("items", OutcomeCreated, 1)
}

func TestGateMetricsTracksBreakerState(t *testing.T) {
	reg := prometheus.NewRegistry()
	g := NewGateMetrics(reg)

	g.BreakerChanged(ratelimit.BreakerOpen)
	g.CircuitRejected()
	g.CircuitRejected()

	if got := testutil.ToFloat64(g.breaker.WithLabelValues("open")); got != 1 {
		t.Fatalf("expected open=1, got %v", got)
	}
	if got := testutil.ToFloat64(g.breaker.WithLabelValues("closed")); got != 0 {
		t.Fatalf("expected closed=0, got %v", got)
	}
	if got := testutil.ToFloat64(g.rejected); got != 2 {
		t.Fatalf("expected 2 rejections, got %v", got)
	}
}
