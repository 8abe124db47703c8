package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Record outcomes counted per entity.
const (
	OutcomeFetched = "fetched"
	OutcomeDropped = "dropped"
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
	OutcomeError   = "error"
)

// SyncMetrics exposes per-entity sync throughput.
type SyncMetrics struct {
	records  *prometheus.CounterVec
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lastOK   *prometheus.GaugeVec
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zohosync_records_total",
		Help: "Records processed by the sync pipeline, by outcome.",
	}, []string{"entity", "outcome"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zohosync_entity_runs_total",
		Help: "Entity sync runs by terminal status.",
	}, []string{"entity", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zohosync_entity_duration_seconds",
		Help:    "Wall time of one entity sync run.",
		Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"entity"})
	lastOK := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zohosync_last_success_timestamp_seconds",
		Help: "Unix time of the last successful run per entity.",
	}, []string{"entity"})
	reg.MustRegister(records, runs, duration, lastOK)
	return &SyncMetrics{
		records:  records,
		runs:     runs,
		duration: duration,
		lastOK:   lastOK,
	}
}

// AddRecords adds n to the outcome counter for entity.
func (s *SyncMetrics) AddRecords(entity, outcome string, n int) {
	if s == nil || s.records == nil || n <= 0 {
		return
	}
	s.records.WithLabelValues(normalizeLabel(entity), normalizeLabel(outcome)).Add(float64(n))
}

// ObserveRun records a finished entity run.
func (s *SyncMetrics) ObserveRun(entity, status string, duration time.Duration, finishedAt time.Time) {
	if s == nil || s.runs == nil {
		return
	}
	entity = normalizeLabel(entity)
	s.runs.WithLabelValues(entity, normalizeLabel(status)).Inc()
	s.duration.WithLabelValues(entity).Observe(duration.Seconds())
	if status == "success" {
		s.lastOK.WithLabelValues(entity).Set(float64(finishedAt.Unix()))
	}
}
