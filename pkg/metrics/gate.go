package metrics

import (
	"time"

	"github.com/angelmondragon/zohosync-backend/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
)

var breakerStates = []ratelimit.BreakerState{
	ratelimit.BreakerClosed,
	ratelimit.BreakerOpen,
	ratelimit.BreakerHalfOpen,
}

// GateMetrics implements ratelimit.Observer.
type GateMetrics struct {
	wait     prometheus.Histogram
	rejected prometheus.Counter
	breaker  *prometheus.GaugeVec
}

var _ ratelimit.Observer = (*GateMetrics)(nil)

// NewGateMetrics registers the rate gate metrics on the provided registerer.
func NewGateMetrics(reg prometheus.Registerer) *GateMetrics {
	if reg == nil {
		return &GateMetrics{}
	}
	wait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "zohosync_ratelimit_wait_seconds",
		Help:    "Time callers spent waiting on the upstream rate gate.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zohosync_ratelimit_circuit_rejected_total",
		Help: "Calls rejected because the circuit breaker was open.",
	})
	breaker := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zohosync_ratelimit_breaker_state",
		Help: "1 for the current circuit breaker state, 0 otherwise.",
	}, []string{"state"})
	reg.MustRegister(wait, rejected, breaker)
	breaker.WithLabelValues(string(ratelimit.BreakerClosed)).Set(1)
	return &GateMetrics{wait: wait, rejected: rejected, breaker: breaker}
}

func (g *GateMetrics) ObserveWait(d time.Duration) {
	if g == nil || g.wait == nil {
		return
	}
	g.wait.Observe(d.Seconds())
}

func (g *GateMetrics) CircuitRejected() {
	if g == nil || g.rejected == nil {
		return
	}
	g.rejected.Inc()
}

func (g *GateMetrics) BreakerChanged(state ratelimit.BreakerState) {
	if g == nil || g.breaker == nil {
		return
	}
	for _, s := range breakerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		g.breaker.WithLabelValues(string(s)).Set(v)
	}
}
