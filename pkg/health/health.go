// Package health implements Kubernetes-style liveness and readiness probes.
//
// Every registered probe runs on its own background ticker. Probes carry
// consecutive-failure and consecutive-success thresholds so a single flaky
// sample never flips the reported state.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one component, returning nil when it is healthy.
type CheckFunc func(ctx context.Context) error

// Option tunes a single probe.
type Option func(*probe)

// WithFailureThreshold sets how many consecutive failures flip a probe to
// unhealthy. The default is 3.
func WithFailureThreshold(n int) Option {
	return func(p *probe) { p.failAfter = n }
}

// WithSuccessThreshold sets how many consecutive successes flip a probe back
// to healthy. The default is 1.
func WithSuccessThreshold(n int) Option {
	return func(p *probe) { p.okAfter = n }
}

// probe is one named check plus its sampled state.
//
// sample() runs on a single goroutine, so the streak counters need no
// synchronization. healthy and lastErr are also read by HTTP handlers and go
// through atomics.
type probe struct {
	name      string
	timeout   time.Duration
	fn        CheckFunc
	failAfter int
	okAfter   int

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	failStreak int
	okStreak   int
}

func newProbe(name string, timeout time.Duration, fn CheckFunc, opts []Option) *probe {
	p := &probe{
		name:      name,
		timeout:   timeout,
		fn:        fn,
		failAfter: 3,
		okAfter:   1,
	}
	for _, opt := range opts {
		opt(p)
	}
	// Healthy until sampled otherwise, so registration order does not gate
	// the first readiness response.
	p.healthy.Store(true)
	return p
}

func (p *probe) sample(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.fn(ctx)
	p.lastErr.Store(&err)

	if err != nil {
		p.okStreak = 0
		p.failStreak++
		if p.failStreak >= p.failAfter {
			p.healthy.Store(false)
		}
		return
	}

	p.failStreak = 0
	p.okStreak++
	if p.okStreak >= p.okAfter {
		p.healthy.Store(true)
	}
}

func (p *probe) failure() (string, bool) {
	if p.healthy.Load() {
		return "", false
	}
	if errp := p.lastErr.Load(); errp != nil && *errp != nil {
		return (*errp).Error(), true
	}
	return "check is unhealthy", true
}

// Tracker aggregates liveness and readiness probes and serves the probe
// endpoints.
type Tracker struct {
	ready atomic.Bool

	// mu guards the probe slices and cancel. Probes are registered before
	// Start; handlers only snapshot the slices.
	mu     sync.RWMutex
	live   []*probe
	rdy    []*probe
	cancel context.CancelFunc
}

// New creates a Tracker. The service reports not-ready until SetReady(true)
// is called after initialization completes.
func New() *Tracker {
	return &Tracker{}
}

// AddLiveness registers a liveness probe: is the process alive and
// functioning (goroutine leaks, deadlocks).
func (t *Tracker) AddLiveness(name string, timeout time.Duration, fn CheckFunc, opts ...Option) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.live = append(t.live, newProbe(name, timeout, fn, opts))
}

// AddReadiness registers a readiness probe: can the service take traffic
// (database connectivity, dependent services).
func (t *Tracker) AddReadiness(name string, timeout time.Duration, fn CheckFunc, opts ...Option) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rdy = append(t.rdy, newProbe(name, timeout, fn, opts))
}

// Start launches one sampling goroutine per registered probe. Register all
// probes first; Start is meant to be called once.
func (t *Tracker) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	t.cancel = cancel
	probes := make([]*probe, 0, len(t.live)+len(t.rdy))
	probes = append(probes, t.live...)
	probes = append(probes, t.rdy...)
	t.mu.Unlock()

	for _, p := range probes {
		go func(p *probe) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			p.sample(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.sample(ctx)
				}
			}
		}(p)
	}
}

// Stop cancels the sampling goroutines. Safe to call more than once.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// SetReady flips the manual readiness gate: true once initialization is done,
// false at the start of graceful shutdown to drain traffic.
func (t *Tracker) SetReady(ready bool) {
	t.ready.Store(ready)
}

// IsReady reports whether the manual gate is open and every readiness probe
// passes.
func (t *Tracker) IsReady() bool {
	if !t.ready.Load() {
		return false
	}

	t.mu.RLock()
	probes := t.rdy
	t.mu.RUnlock()

	for _, p := range probes {
		if _, failed := p.failure(); failed {
			return false
		}
	}
	return true
}

// statusResponse is the JSON body served by both probe endpoints.
type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleLive serves the /livez endpoint: 200 while every liveness probe
// passes, 503 with per-probe failures otherwise.
func (t *Tracker) HandleLive(w http.ResponseWriter, _ *http.Request) {
	t.mu.RLock()
	probes := append([]*probe(nil), t.live...)
	t.mu.RUnlock()

	writeStatus(w, failures(probes))
}

// HandleReady serves the /readyz endpoint: 200 while the manual gate is open
// and every readiness probe passes.
func (t *Tracker) HandleReady(w http.ResponseWriter, _ *http.Request) {
	ready := t.ready.Load()

	t.mu.RLock()
	probes := append([]*probe(nil), t.rdy...)
	t.mu.RUnlock()

	failed := failures(probes)
	if !ready {
		failed["_readiness"] = "service is not ready"
	}
	writeStatus(w, failed)
}

func failures(probes []*probe) map[string]string {
	failed := make(map[string]string)
	for _, p := range probes {
		if msg, ok := p.failure(); ok {
			failed[p.name] = msg
		}
	}
	return failed
}

func writeStatus(w http.ResponseWriter, failed map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(failed) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failed
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
