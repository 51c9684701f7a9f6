// Package gate bounds per-provider concurrent outbound requests with a
// channel semaphore, grounded on the upstream qos_router.py
// QoSSemaphoreRouter and the teacher's httpclient pool semaphore idiom.
package gate

import (
	"context"
	"sync"
)

// DefaultLimits mirrors QoSSemaphoreRouter.DEFAULT_LIMITS.
var DefaultLimits = map[string]int{
	"fmp":     3,
	"polygon": 10,
	"fred":    1,
}

const defaultLimit = 5

// Stats reports one provider's slot usage.
type Stats struct {
	Limit           int
	Active          int
	Queued          int
	MaxConcurrentSeen int
	TotalRequests   int64
}

type providerGate struct {
	mu      sync.Mutex
	limit   int
	slots   chan struct{}
	active  int
	queued  int
	peak    int
	total   int64
}

// Manager owns one semaphore per provider, created lazily on first use.
type Manager struct {
	mu        sync.Mutex
	providers map[string]*providerGate
}

// NewManager builds an empty Manager; provider semaphores are created lazily
// on first Acquire.
func NewManager() *Manager {
	return &Manager{providers: make(map[string]*providerGate)}
}

func (m *Manager) gateFor(provider string) *providerGate {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.providers[provider]; ok {
		return g
	}
	limit, ok := DefaultLimits[provider]
	if !ok {
		limit = defaultLimit
	}
	g := &providerGate{limit: limit, slots: make(chan struct{}, limit)}
	m.providers[provider] = g
	return g
}

// Acquire blocks until a slot for provider is available (or ctx is done),
// then returns a release closure the caller must defer. This is the Go
// analog of the upstream QoSContext's __aenter__/__aexit__ pair.
func (m *Manager) Acquire(ctx context.Context, provider string) (func(), error) {
	g := m.gateFor(provider)

	g.mu.Lock()
	g.queued++
	g.total++
	g.mu.Unlock()

	select {
	case g.slots <- struct{}{}:
	case <-ctx.Done():
		g.mu.Lock()
		g.queued--
		g.mu.Unlock()
		return nil, ctx.Err()
	}

	g.mu.Lock()
	g.queued--
	g.active++
	if g.active > g.peak {
		g.peak = g.active
	}
	g.mu.Unlock()

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		g.mu.Lock()
		g.active--
		g.mu.Unlock()
		<-g.slots
	}
	return release, nil
}

// GetLimit returns the current slot limit for provider.
func (m *Manager) GetLimit(provider string) int {
	return m.gateFor(provider).limit
}

// SetLimit creates a fresh semaphore with a new capacity for provider;
// existing waiters on the old semaphore are unaffected, matching the
// upstream set_limit contract exactly.
func (m *Manager) SetLimit(provider string, limit int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[provider] = &providerGate{limit: limit, slots: make(chan struct{}, limit)}
}

// GetAvailableSlots reports how many slots are free for provider right now.
func (m *Manager) GetAvailableSlots(provider string) int {
	g := m.gateFor(provider)
	return g.limit - len(g.slots)
}

// IsAvailable reports whether at least one slot is free for provider.
func (m *Manager) IsAvailable(provider string) bool {
	return m.GetAvailableSlots(provider) > 0
}

// GetStats snapshots usage counters for provider.
func (m *Manager) GetStats(provider string) Stats {
	g := m.gateFor(provider)
	g.mu.Lock()
	defer g.mu.Unlock()
	return Stats{
		Limit:             g.limit,
		Active:            g.active,
		Queued:            g.queued,
		MaxConcurrentSeen: g.peak,
		TotalRequests:     g.total,
	}
}
