// Package ratelimit guards every outbound upstream call with a token bucket,
// a FIFO concurrency limiter, an adaptive inter-request delay and an optional
// circuit breaker.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/zohosync-backend/pkg/errors"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	latencyWindow = 10

	slowFactor    = 1.2
	fastFactor    = 0.9
	maxMultiplier = 3.0
	minMultiplier = 0.5
)

// ErrCircuitOpen is returned by Acquire while the breaker rejects calls.
var ErrCircuitOpen = pkgerrors.New(pkgerrors.CodeCircuitOpen, "circuit breaker open")

// BreakerState is the circuit breaker position.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// Observer receives gate telemetry. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveWait(d time.Duration)
	CircuitRejected()
	BreakerChanged(state BreakerState)
}

// Options configures a Gate.
type Options struct {
	RequestsPerSecond float64
	Burst             int
	MaxConcurrent     int
	BaseDelay         time.Duration

	Adaptive      bool
	SlowThreshold time.Duration

	CircuitBreaker   bool
	FailureThreshold int
	RecoveryTime     time.Duration

	Observer Observer
	// Now and Sleep are overridable for tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Stats is a point-in-time view of the gate.
type Stats struct {
	Breaker             BreakerState `json:"breaker"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	Multiplier          float64      `json:"multiplier"`
}

// Gate is safe for concurrent use. Every successful Acquire must be paired
// with exactly one Release.
type Gate struct {
	opts    Options
	limiter *rate.Limiter
	slots   *semaphore.Weighted

	mu         sync.Mutex
	state      BreakerState
	failures   int
	openedAt   time.Time
	trialTaken bool
	latencies  []time.Duration
	multiplier float64
}

// New validates opts and builds a Gate.
func New(opts Options) (*Gate, error) {
	if opts.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("requests per second must be positive")
	}
	if opts.Burst <= 0 {
		return nil, fmt.Errorf("burst must be positive")
	}
	if opts.MaxConcurrent <= 0 {
		return nil, fmt.Errorf("max concurrent must be positive")
	}
	if opts.CircuitBreaker {
		if opts.FailureThreshold <= 0 {
			return nil, fmt.Errorf("failure threshold must be positive")
		}
		if opts.RecoveryTime <= 0 {
			return nil, fmt.Errorf("recovery time must be positive")
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}

	return &Gate{
		opts:       opts,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		slots:      semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		state:      BreakerClosed,
		latencies:  make([]time.Duration, 0, latencyWindow),
		multiplier: 1,
	}, nil
}

// Acquire blocks until the request may proceed. The breaker check fails fast
// with ErrCircuitOpen; the slot, token and delay waits honour ctx.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.admit(); err != nil {
		return err
	}

	started := g.opts.Now()
	if err := g.slots.Acquire(ctx, 1); err != nil {
		g.abandonTrial()
		return err
	}
	if err := g.limiter.Wait(ctx); err != nil {
		g.slots.Release(1)
		g.abandonTrial()
		return err
	}
	if delay := g.delay(); delay > 0 {
		if err := g.opts.Sleep(ctx, delay); err != nil {
			g.slots.Release(1)
			g.abandonTrial()
			return err
		}
	}

	if g.opts.Observer != nil {
		g.opts.Observer.ObserveWait(g.opts.Now().Sub(started))
	}
	return nil
}

// Release frees the concurrency slot and feeds the outcome to the breaker and
// the adaptive multiplier.
func (g *Gate) Release(success bool, latency time.Duration) {
	g.slots.Release(1)

	g.mu.Lock()
	changed := g.record(success, latency)
	state := g.state
	g.mu.Unlock()

	if changed && g.opts.Observer != nil {
		g.opts.Observer.BreakerChanged(state)
	}
}

// Stats reports the breaker position and the current delay multiplier.
func (g *Gate) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Stats{
		Breaker:             g.state,
		ConsecutiveFailures: g.failures,
		Multiplier:          g.multiplier,
	}
}

func (g *Gate) admit() error {
	if !g.opts.CircuitBreaker {
		return nil
	}

	g.mu.Lock()
	var changed bool
	switch g.state {
	case BreakerOpen:
		if g.opts.Now().Sub(g.openedAt) < g.opts.RecoveryTime {
			g.mu.Unlock()
			g.rejected()
			return ErrCircuitOpen
		}
		g.state = BreakerHalfOpen
		g.trialTaken = true
		changed = true
	case BreakerHalfOpen:
		if g.trialTaken {
			g.mu.Unlock()
			g.rejected()
			return ErrCircuitOpen
		}
		g.trialTaken = true
	}
	state := g.state
	g.mu.Unlock()

	if changed && g.opts.Observer != nil {
		g.opts.Observer.BreakerChanged(state)
	}
	return nil
}

// abandonTrial hands the half-open trial back when the caller gave up before
// reaching upstream.
func (g *Gate) abandonTrial() {
	g.mu.Lock()
	if g.state == BreakerHalfOpen {
		g.trialTaken = false
	}
	g.mu.Unlock()
}

func (g *Gate) rejected() {
	if g.opts.Observer != nil {
		g.opts.Observer.CircuitRejected()
	}
}

func (g *Gate) delay() time.Duration {
	if g.opts.BaseDelay <= 0 {
		return 0
	}
	g.mu.Lock()
	m := g.multiplier
	g.mu.Unlock()
	return time.Duration(float64(g.opts.BaseDelay) * m)
}

// record must be called with mu held. It reports whether the breaker moved.
func (g *Gate) record(success bool, latency time.Duration) bool {
	prev := g.state

	if success {
		g.failures = 0
		g.trialTaken = false
		g.state = BreakerClosed
		if g.opts.Adaptive {
			g.adapt(latency)
		}
		return prev != g.state
	}

	g.failures++
	if !g.opts.CircuitBreaker {
		return false
	}
	if g.state == BreakerHalfOpen || g.failures >= g.opts.FailureThreshold {
		g.state = BreakerOpen
		g.openedAt = g.opts.Now()
		g.trialTaken = false
	}
	return prev != g.state
}

func (g *Gate) adapt(latency time.Duration) {
	if len(g.latencies) == latencyWindow {
		copy(g.latencies, g.latencies[1:])
		g.latencies = g.latencies[:latencyWindow-1]
	}
	g.latencies = append(g.latencies, latency)

	var total time.Duration
	for _, l := range g.latencies {
		total += l
	}
	avg := total / time.Duration(len(g.latencies))

	switch {
	case avg > g.opts.SlowThreshold:
		g.multiplier = min(g.multiplier*slowFactor, maxMultiplier)
	case avg < g.opts.SlowThreshold/2:
		g.multiplier = max(g.multiplier*fastFactor, minMultiplier)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
