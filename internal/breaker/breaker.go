// Package breaker implements a per-provider three-state circuit breaker
// driven by a rolling-window error rate rather than consecutive failures,
// grounded on the upstream circuit_breaker.py. The state machine itself is
// delegated to sony/gobreaker's TwoStepCircuitBreaker; a hand-built ring
// buffer (in the style of the teacher's telemetry/latency circular buffer)
// supplies the rolling error rate gobreaker's cumulative Counts can't.
package breaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// State mirrors the three externally visible breaker states.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// OpenError is returned by Allow when the breaker is open and rejecting
// calls outright. It carries State so callers can match the upstream
// CircuitBreakerError(provider, state) taxonomy.
type OpenError struct {
	Provider string
	State    State
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker open for provider %s (state=%s)", e.Provider, e.State)
}

// window is a fixed-capacity ring buffer of boolean outcomes (true = error),
// adapted from the teacher's latency.Histogram circular buffer technique but
// over outcomes instead of durations.
type window struct {
	mu      sync.Mutex
	buckets []bool
	cap     int
	pos     int
	full    bool
}

func newWindow(capacity int) *window {
	if capacity <= 0 {
		capacity = 100
	}
	return &window{buckets: make([]bool, capacity), cap: capacity}
}

func (w *window) record(isError bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buckets[w.pos] = isError
	w.pos = (w.pos + 1) % w.cap
	if w.pos == 0 {
		w.full = true
	}
}

func (w *window) errorRate() (rate float64, total int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	total = w.pos
	if w.full {
		total = w.cap
	}
	if total == 0 {
		return 0, 0
	}
	errs := 0
	for i := 0; i < total; i++ {
		if w.buckets[i] {
			errs++
		}
	}
	return float64(errs) / float64(total), total
}

func (w *window) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buckets = make([]bool, w.cap)
	w.pos = 0
	w.full = false
}

// Config holds breaker construction knobs, mirroring config.CircuitBreakerConfig.
type Config struct {
	ErrorThreshold      float64
	RecoveryTimeout     time.Duration
	MinRequests         int
	HalfOpenMaxRequests int
	WindowSize          int
}

// Breaker wraps one provider's state machine.
type Breaker struct {
	provider string
	cfg      Config
	window   *window
	cb       *gobreaker.TwoStepCircuitBreaker
}

// New builds a Breaker for provider.
func New(provider string, cfg Config) *Breaker {
	b := &Breaker{provider: provider, cfg: cfg, window: newWindow(cfg.WindowSize)}

	settings := gobreaker.Settings{
		Name:        provider,
		MaxRequests: uint32(cfg.HalfOpenMaxRequests),
		Timeout:     cfg.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			rate, total := b.window.errorRate()
			if total < cfg.MinRequests {
				return false
			}
			return rate >= cfg.ErrorThreshold
		},
	}
	b.cb = gobreaker.NewTwoStepCircuitBreaker(settings)
	return b
}

// Allow reports whether a call may proceed right now, returning a done
// closure that must be invoked with the outcome once the call finishes. When
// the breaker is open, Allow returns an OpenError and a nil done.
func (b *Breaker) Allow() (done func(success bool), err error) {
	step, err := b.cb.Allow()
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &OpenError{Provider: b.provider, State: b.State()}
		}
		return nil, err
	}
	return func(success bool) {
		b.window.record(!success)
		step(success)
	}, nil
}

// State reports the current externally-visible state.
func (b *Breaker) State() State {
	switch b.cb.State() {
	case gobreaker.StateClosed:
		return Closed
	case gobreaker.StateOpen:
		return Open
	default:
		return HalfOpen
	}
}

// ErrorRate reports the current rolling-window error rate and sample count.
func (b *Breaker) ErrorRate() (rate float64, samples int) {
	return b.window.errorRate()
}

// Stats summarizes one provider's breaker for reporting purposes, mirroring
// the breaker stats block in loader.py's get_api_health_report.
type Stats struct {
	State      State
	ErrorRate  float64
	SampleSize int
}

// Stats snapshots the breaker's current state and rolling error rate.
func (b *Breaker) Stats() Stats {
	rate, samples := b.window.errorRate()
	return Stats{State: b.State(), ErrorRate: rate, SampleSize: samples}
}

// Reset clears the rolling window and returns the underlying breaker to
// Closed by rebuilding it fresh.
func (b *Breaker) Reset() {
	b.window.reset()
	settings := gobreaker.Settings{
		Name:        b.provider,
		MaxRequests: uint32(b.cfg.HalfOpenMaxRequests),
		Timeout:     b.cfg.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			rate, total := b.window.errorRate()
			if total < b.cfg.MinRequests {
				return false
			}
			return rate >= b.cfg.ErrorThreshold
		},
	}
	b.cb = gobreaker.NewTwoStepCircuitBreaker(settings)
}

// Registry owns one Breaker per provider, created lazily.
type Registry struct {
	mu       sync.Mutex
	cfg      Config
	breakers map[string]*Breaker
}

// NewRegistry builds an empty Registry sharing one Config across providers.
func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg, breakers: make(map[string]*Breaker)}
}

// For returns (creating if needed) the Breaker for provider.
func (r *Registry) For(provider string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[provider]; ok {
		return b
	}
	b := New(provider, r.cfg)
	r.breakers[provider] = b
	return b
}

// ResetAll clears every known provider's breaker state.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.breakers {
		b.Reset()
	}
}
