package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileProviderConfig is the YAML-facing shape for one provider's settings.
type FileProviderConfig struct {
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	MaxConcurrency int     `yaml:"max_concurrency"`
	TimeoutSecs    float64 `yaml:"timeout_secs"`
}

// FileCacheConfig is the YAML-facing shape for cache settings.
type FileCacheConfig struct {
	BaseDir string `yaml:"base_dir"`
	TTLDays int    `yaml:"ttl_days"`
	Enabled bool   `yaml:"enabled"`
}

// FileCircuitConfig is the YAML-facing shape for breaker settings.
type FileCircuitConfig struct {
	ErrorThreshold      float64 `yaml:"error_threshold"`
	RecoveryTimeoutSecs float64 `yaml:"recovery_timeout_secs"`
	MinRequests         int     `yaml:"min_requests"`
	HalfOpenMaxRequests int     `yaml:"half_open_max_requests"`
	WindowSize          int     `yaml:"window_size"`
}

// FileRetryConfig is the YAML-facing shape for retry settings.
type FileRetryConfig struct {
	MaxRetries      int     `yaml:"max_retries"`
	BaseDelaySecs   float64 `yaml:"base_delay_secs"`
	MaxDelaySecs    float64 `yaml:"max_delay_secs"`
	ExponentialBase float64 `yaml:"exponential_base"`
	Jitter          bool    `yaml:"jitter"`
	JitterFactor    float64 `yaml:"jitter_factor"`
}

// FileConfig is the top-level YAML document shape, mirroring the teacher's
// ProvidersConfig{Providers, Global} layout.
type FileConfig struct {
	Providers map[string]FileProviderConfig `yaml:"providers"`
	Cache     FileCacheConfig               `yaml:"cache"`
	Circuit   FileCircuitConfig             `yaml:"circuit_breaker"`
	Retry     FileRetryConfig               `yaml:"retry"`
	Mode      string                        `yaml:"operating_mode"`
	LogLevel  string                        `yaml:"log_level"`
}

// FromYAML loads a Config from a YAML file on disk.
func FromYAML(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	providerCfg := func(name string, defBaseURL string, defConcurrency int) ProviderConfig {
		p, ok := fc.Providers[name]
		if !ok {
			return ProviderConfig{BaseURL: defBaseURL, MaxConcurrency: defConcurrency, Timeout: 30 * time.Second}
		}
		baseURL := p.BaseURL
		if baseURL == "" {
			baseURL = defBaseURL
		}
		concurrency := p.MaxConcurrency
		if concurrency <= 0 {
			concurrency = defConcurrency
		}
		timeout := 30 * time.Second
		if p.TimeoutSecs > 0 {
			timeout = time.Duration(p.TimeoutSecs * float64(time.Second))
		}
		return ProviderConfig{
			APIKey:         p.APIKey,
			BaseURL:        baseURL,
			MaxConcurrency: concurrency,
			Timeout:        timeout,
		}
	}

	mode := OperatingMode(fc.Mode)
	if mode != Live && mode != ReadOnly {
		mode = Live
	}

	cfg := Config{
		FMP:     providerCfg("fmp", fmpBaseURL, fmpMaxConcurrency),
		Polygon: providerCfg("polygon", polygonBaseURL, polygonMaxConcurrency),
		FRED:    providerCfg("fred", fredBaseURL, fredMaxConcurrency),
		Cache: CacheConfig{
			BaseDir: orDefault(fc.Cache.BaseDir, "./data/cache"),
			TTLDays: orDefaultInt(fc.Cache.TTLDays, 7),
			Enabled: fc.Cache.Enabled,
		},
		CircuitBreaker: CircuitBreakerConfig{
			ErrorThreshold:      orDefaultFloat(fc.Circuit.ErrorThreshold, 0.2),
			RecoveryTimeout:     secsOrDefault(fc.Circuit.RecoveryTimeoutSecs, 60*time.Second),
			MinRequests:         orDefaultInt(fc.Circuit.MinRequests, 10),
			HalfOpenMaxRequests: orDefaultInt(fc.Circuit.HalfOpenMaxRequests, 3),
			WindowSize:          orDefaultInt(fc.Circuit.WindowSize, 100),
		},
		Retry: RetryConfig{
			MaxRetries:      orDefaultInt(fc.Retry.MaxRetries, 3),
			BaseDelay:       secsOrDefault(fc.Retry.BaseDelaySecs, time.Second),
			MaxDelay:        secsOrDefault(fc.Retry.MaxDelaySecs, 60*time.Second),
			ExponentialBase: orDefaultFloat(fc.Retry.ExponentialBase, 2.0),
			Jitter:          fc.Retry.Jitter,
			JitterFactor:    orDefaultFloat(fc.Retry.JitterFactor, 0.5),
		},
		OperatingMode: mode,
		LogLevel:      orDefault(fc.LogLevel, "INFO"),
	}

	return cfg, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func secsOrDefault(secs float64, def time.Duration) time.Duration {
	if secs == 0 {
		return def
	}
	return time.Duration(secs * float64(time.Second))
}
