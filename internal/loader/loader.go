// Package loader is the resilience orchestrator: it drives cache, gate,
// breaker, retry, and health for every outbound provider call, grounded on
// the upstream loader.py _fetch_with_resilience and the teacher's
// guards.ProviderGuard.Execute composition shape.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Maeshowe/Nexus-Core/internal/breaker"
	"github.com/Maeshowe/Nexus-Core/internal/cachestore"
	"github.com/Maeshowe/Nexus-Core/internal/config"
	"github.com/Maeshowe/Nexus-Core/internal/gate"
	"github.com/Maeshowe/Nexus-Core/internal/health"
	"github.com/Maeshowe/Nexus-Core/internal/jsonvalue"
	"github.com/Maeshowe/Nexus-Core/internal/obsmetrics"
	"github.com/Maeshowe/Nexus-Core/internal/provideradapter"
	"github.com/Maeshowe/Nexus-Core/internal/registry"
	"github.com/Maeshowe/Nexus-Core/internal/retry"
	"github.com/Maeshowe/Nexus-Core/internal/transport"
)

const defaultRequestTimeout = 30 * time.Second

// ReadOnlyError is returned when a cache miss occurs while the loader is in
// config.ReadOnly mode, which forbids reaching the network.
type ReadOnlyError struct {
	Provider string
	Endpoint string
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("cache miss for %s/%s while in read-only mode", e.Provider, e.Endpoint)
}

// Result is returned from Fetch.
type Result struct {
	Data             jsonvalue.Value
	FromCache        bool
	RetriesPerformed int
	RequestID        string
}

// Stats holds the loader's own cumulative counters, mirroring loader.py's
// DataLoaderStats dataclass.
type Stats struct {
	TotalRequests            int64
	CacheHits                int64
	CacheMisses              int64
	CircuitBreakerRejections int64
	ReadOnlyRejections       int64
	Errors                   int64
}

type atomicStats struct {
	totalRequests            int64
	cacheHits                int64
	cacheMisses              int64
	circuitBreakerRejections int64
	readOnlyRejections       int64
	errors                   int64
}

func (s *atomicStats) snapshot() Stats {
	return Stats{
		TotalRequests:            atomic.LoadInt64(&s.totalRequests),
		CacheHits:                atomic.LoadInt64(&s.cacheHits),
		CacheMisses:              atomic.LoadInt64(&s.cacheMisses),
		CircuitBreakerRejections: atomic.LoadInt64(&s.circuitBreakerRejections),
		ReadOnlyRejections:       atomic.LoadInt64(&s.readOnlyRejections),
		Errors:                   atomic.LoadInt64(&s.errors),
	}
}

// ProviderHealthReport bundles one provider's health, breaker, and gate
// snapshots, mirroring the per-provider block of loader.py's
// get_api_health_report.
type ProviderHealthReport struct {
	Health  health.Metrics
	Breaker breaker.Stats
	Gate    gate.Stats
}

// APIHealthReport is the composite report returned by GetAPIHealthReport,
// matching loader.py:get_api_health_report's shape: a timestamp, the
// current operating mode, the fleet-wide overall status, a per-provider
// breakdown, and the loader's own cumulative counters.
type APIHealthReport struct {
	Timestamp     time.Time
	OperatingMode config.OperatingMode
	OverallStatus health.Status
	Providers     map[string]ProviderHealthReport
	Stats         Stats
}

// Loader orchestrates resilient fetches across every registered provider.
type Loader struct {
	mu sync.RWMutex

	mode config.OperatingMode

	adapters map[string]provideradapter.Adapter
	timeouts map[string]time.Duration

	client  *transport.Client
	cache   *cachestore.Store
	gates   *gate.Manager
	breaker *breaker.Registry
	retry   *retry.Driver
	health  *health.Registry
	metrics *obsmetrics.Registry

	stats atomicStats

	logger zerolog.Logger
}

// New builds a Loader wired with the given dependencies. Callers register
// provider adapters with RegisterAdapter after construction.
func New(cfg config.Config, logger zerolog.Logger) *Loader {
	l := &Loader{
		mode:     cfg.OperatingMode,
		adapters: make(map[string]provideradapter.Adapter),
		client:   transport.New(defaultRequestTimeout),
		cache:    cachestore.New(cfg.Cache.BaseDir, cfg.Cache.TTLDays, cfg.Cache.Enabled),
		gates:    gate.NewManager(),
		breaker: breaker.NewRegistry(breaker.Config{
			ErrorThreshold:      cfg.CircuitBreaker.ErrorThreshold,
			RecoveryTimeout:     cfg.CircuitBreaker.RecoveryTimeout,
			MinRequests:         cfg.CircuitBreaker.MinRequests,
			HalfOpenMaxRequests: cfg.CircuitBreaker.HalfOpenMaxRequests,
			WindowSize:          cfg.CircuitBreaker.WindowSize,
		}),
		retry: retry.New(retry.Config{
			MaxRetries:      cfg.Retry.MaxRetries,
			BaseDelay:       cfg.Retry.BaseDelay,
			MaxDelay:        cfg.Retry.MaxDelay,
			ExponentialBase: cfg.Retry.ExponentialBase,
			Jitter:          cfg.Retry.Jitter,
			JitterFactor:    cfg.Retry.JitterFactor,
		}),
		health: health.NewRegistry(cfg.CircuitBreaker.WindowSize),
		logger: logger,
	}

	l.timeouts = map[string]time.Duration{
		"fmp":     cfg.FMP.Timeout,
		"polygon": cfg.Polygon.Timeout,
		"fred":    cfg.FRED.Timeout,
	}
	for provider, pc := range map[string]config.ProviderConfig{"fmp": cfg.FMP, "polygon": cfg.Polygon, "fred": cfg.FRED} {
		if pc.MaxConcurrency > 0 {
			l.gates.SetLimit(provider, pc.MaxConcurrency)
		}
	}

	return l
}

// SetMetrics wires a Prometheus registry into the loader; every Fetch call
// afterward observes cache hits/misses, breaker state, fetch duration, and
// active concurrency slots against it.
func (l *Loader) SetMetrics(m *obsmetrics.Registry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.metrics = m
}

// RegisterAdapter wires one provider's adapter into the loader.
func (l *Loader) RegisterAdapter(a provideradapter.Adapter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.adapters[a.Name()] = a
}

// SetOperatingMode switches between Live and ReadOnly.
func (l *Loader) SetOperatingMode(mode config.OperatingMode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mode = mode
}

func (l *Loader) operatingMode() config.OperatingMode {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.mode
}

func (l *Loader) adapterFor(provider string) (provideradapter.Adapter, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider %q", provider)
	}
	return a, nil
}

func (l *Loader) requestTimeout(provider string) time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if d, ok := l.timeouts[provider]; ok && d > 0 {
		return d
	}
	return defaultRequestTimeout
}

func (l *Loader) metricsRegistry() *obsmetrics.Registry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.metrics
}

func breakerStateValue(s breaker.State) float64 {
	switch s {
	case breaker.Closed:
		return 0
	case breaker.HalfOpen:
		return 1
	default:
		return 2
	}
}

// Fetch resolves one endpoint call through the full resilience pipeline:
// cache check, read-only gate, circuit breaker, concurrency gate (held for
// the full retry loop), retry-with-backoff, then breaker/health/cache
// recording of the outcome. It implements the upstream's
// _fetch_with_resilience step for step.
func (l *Loader) Fetch(ctx context.Context, provider, endpointName string, params map[string]string, useCache bool) (Result, error) {
	requestID := uuid.NewString()
	log := l.logger.With().Str("request_id", requestID).Str("provider", provider).Str("endpoint", endpointName).Logger()

	atomic.AddInt64(&l.stats.totalRequests, 1)

	hm := l.health.For(provider)
	metrics := l.metricsRegistry()

	adapter, err := l.adapterFor(provider)
	if err != nil {
		return Result{RequestID: requestID}, err
	}

	ep, err := provideradapter.ValidateEndpoint(adapter.Registry(), endpointName, params)
	if err != nil {
		return Result{RequestID: requestID}, err
	}

	cacheKey := provideradapter.CacheKey(provider, endpointName, params)

	if useCache {
		if val, ok := l.cache.Get(provider, cacheKey, false); ok {
			hm.RecordCacheHit()
			atomic.AddInt64(&l.stats.cacheHits, 1)
			if metrics != nil {
				metrics.CacheHits.WithLabelValues(provider).Inc()
			}
			log.Debug().Msg("cache hit")
			return Result{Data: val, FromCache: true, RequestID: requestID}, nil
		}
	}
	hm.RecordCacheMiss()
	atomic.AddInt64(&l.stats.cacheMisses, 1)
	if metrics != nil {
		metrics.CacheMisses.WithLabelValues(provider).Inc()
	}

	if l.operatingMode() == config.ReadOnly {
		atomic.AddInt64(&l.stats.readOnlyRejections, 1)
		return Result{RequestID: requestID}, &ReadOnlyError{Provider: provider, Endpoint: endpointName}
	}

	br := l.breaker.For(provider)
	done, err := br.Allow()
	if err != nil {
		var openErr *breaker.OpenError
		if errors.As(err, &openErr) {
			atomic.AddInt64(&l.stats.circuitBreakerRejections, 1)
		}
		if metrics != nil {
			metrics.BreakerState.WithLabelValues(provider).Set(breakerStateValue(br.State()))
		}
		log.Warn().Err(err).Msg("circuit breaker rejected request")
		return Result{RequestID: requestID}, err
	}

	release, err := l.gates.Acquire(ctx, provider)
	if err != nil {
		return Result{RequestID: requestID}, err
	}
	if metrics != nil {
		metrics.ActiveSlots.WithLabelValues(provider).Set(float64(l.gates.GetStats(provider).Active))
	}
	defer func() {
		release()
		if metrics != nil {
			metrics.ActiveSlots.WithLabelValues(provider).Set(float64(l.gates.GetStats(provider).Active))
		}
	}()

	var response *transport.Response
	start := time.Now()
	timeout := l.requestTimeout(provider)

	retryResult, fetchErr := l.retry.Execute(ctx, func(ctx context.Context) error {
		url := adapter.BuildURL(ep, params)
		query := adapter.BuildQuery(ep, params)
		resp, err := l.client.Perform(ctx, "GET", url, query, nil, nil, timeout)
		response = resp
		return err
	})

	latency := time.Since(start)
	success := fetchErr == nil
	done(success)
	hm.RecordAPICall(success, latency)

	if metrics != nil {
		metrics.FetchDuration.WithLabelValues(provider, endpointName).Observe(latency.Seconds())
		metrics.BreakerState.WithLabelValues(provider).Set(breakerStateValue(br.State()))
		if retryResult.RetriesPerformed > 0 {
			metrics.RetriesPerformed.WithLabelValues(provider).Add(float64(retryResult.RetriesPerformed))
		}
	}

	if fetchErr != nil {
		atomic.AddInt64(&l.stats.errors, 1)
		if metrics != nil {
			metrics.FetchErrors.WithLabelValues(provider).Inc()
		}
		log.Error().Err(fetchErr).Int("retries", retryResult.RetriesPerformed).Msg("fetch failed")
		return Result{RequestID: requestID, RetriesPerformed: retryResult.RetriesPerformed}, fetchErr
	}

	value, err := adapter.Normalize(response.Body)
	if err != nil {
		return Result{RequestID: requestID, RetriesPerformed: retryResult.RetriesPerformed}, fmt.Errorf("normalize response: %w", err)
	}

	if useCache {
		if err := l.cache.Set(provider, cacheKey, value, 0); err != nil {
			log.Warn().Err(err).Msg("failed to write cache entry")
		}
	}

	return Result{
		Data:             value,
		FromCache:        false,
		RetriesPerformed: retryResult.RetriesPerformed,
		RequestID:        requestID,
	}, nil
}

// GetAPIHealthReport assembles the full composite report for every known
// provider: health metrics, breaker stats, gate stats, overall fleet
// status, and the loader's own cumulative counters, mirroring
// loader.py:get_api_health_report.
func (l *Loader) GetAPIHealthReport() APIHealthReport {
	l.mu.RLock()
	providerNames := make([]string, 0, len(l.adapters))
	for name := range l.adapters {
		providerNames = append(providerNames, name)
	}
	mode := l.mode
	l.mu.RUnlock()

	providers := make(map[string]ProviderHealthReport, len(providerNames))
	for _, name := range providerNames {
		providers[name] = ProviderHealthReport{
			Health:  l.health.For(name).Report(),
			Breaker: l.breaker.For(name).Stats(),
			Gate:    l.gates.GetStats(name),
		}
	}

	return APIHealthReport{
		Timestamp:     time.Now(),
		OperatingMode: mode,
		OverallStatus: l.health.OverallStatus(),
		Providers:     providers,
		Stats:         l.stats.snapshot(),
	}
}

// GetSupportedEndpoints lists every endpoint name registered for provider.
func (l *Loader) GetSupportedEndpoints(provider string) ([]string, error) {
	adapter, err := l.adapterFor(provider)
	if err != nil {
		return nil, err
	}
	return adapter.Registry().Names(), nil
}

// ResetCircuitBreaker clears every provider's breaker state.
func (l *Loader) ResetCircuitBreaker() {
	l.breaker.ResetAll()
}

// ResetHealthMonitor clears every provider's health state.
func (l *Loader) ResetHealthMonitor() {
	l.health.ResetAll()
}

// BreakerState reports one provider's current circuit state.
func (l *Loader) BreakerState(provider string) breaker.State {
	return l.breaker.For(provider).State()
}

// CacheStats reports one provider's on-disk cache statistics.
func (l *Loader) CacheStats(provider string) (cachestore.Stats, error) {
	return l.cache.StatsFor(provider)
}

// EndpointDescriptor exposes one endpoint's full metadata for a provider.
func (l *Loader) EndpointDescriptor(provider, name string) (registry.Endpoint, error) {
	adapter, err := l.adapterFor(provider)
	if err != nil {
		return registry.Endpoint{}, err
	}
	return adapter.Registry().Get(name)
}
