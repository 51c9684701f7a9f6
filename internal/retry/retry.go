// Package retry implements exponential backoff with jitter, grounded
// line-for-line on the upstream retry.py.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/Maeshowe/Nexus-Core/internal/transport"
)

// Config holds retry-driver construction knobs, mirroring config.RetryConfig.
type Config struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
	Jitter          bool
	JitterFactor    float64
}

// ExhaustedError is returned once every retry attempt has failed.
type ExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.LastErr)
}
func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// nonRetryableStatus mirrors the upstream's NON_RETRYABLE_STATUS_CODES.
var nonRetryableStatus = map[int]bool{400: true, 401: true, 403: true, 404: true}

// Driver executes a function with retry-on-failure semantics.
type Driver struct {
	cfg  Config
	rand *rand.Rand
}

// New builds a Driver from cfg.
func New(cfg Config) *Driver {
	return &Driver{cfg: cfg, rand: rand.New(rand.NewSource(1))}
}

// Result is returned by Execute, reporting how many retries actually fired.
type Result struct {
	RetriesPerformed int
}

// Execute runs fn, retrying on retryable errors up to cfg.MaxRetries times.
// RetriesPerformed increments on every retried attempt, even when the call
// eventually succeeds.
func (d *Driver) Execute(ctx context.Context, fn func(ctx context.Context) error) (Result, error) {
	var lastErr error
	attempts := 0

	for attempts <= d.cfg.MaxRetries {
		if err := ctx.Err(); err != nil {
			return Result{RetriesPerformed: attempts}, err
		}

		err := fn(ctx)
		if err == nil {
			return Result{RetriesPerformed: attempts}, nil
		}
		lastErr = err
		attempts++

		if !d.isRetryable(err) {
			return Result{RetriesPerformed: attempts - 1}, err
		}
		if attempts > d.cfg.MaxRetries {
			break
		}

		delay := d.backoff(attempts-1, err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{RetriesPerformed: attempts - 1}, ctx.Err()
		case <-timer.C:
		}
	}

	return Result{RetriesPerformed: attempts - 1}, &ExhaustedError{Attempts: attempts, LastErr: lastErr}
}

// isRetryable mirrors the upstream's retryable-exception allow-list: timeouts,
// connection errors, server errors and rate limits are retryable; 4xx client
// errors in the non-retryable set are not.
func (d *Driver) isRetryable(err error) bool {
	var clientErr *transport.ClientError
	if errors.As(err, &clientErr) {
		return !nonRetryableStatus[clientErr.Status]
	}

	var timeoutErr *transport.TimeoutError
	var connErr *transport.ConnectionError
	var serverErr *transport.ServerError
	var rateLimitErr *transport.RateLimitError
	switch {
	case errors.As(err, &timeoutErr),
		errors.As(err, &connErr),
		errors.As(err, &serverErr),
		errors.As(err, &rateLimitErr):
		return true
	}
	return false
}

// backoff computes baseDelay * exponentialBase^attempt, clamped to maxDelay,
// then jittered into [1-jitterFactor, 1+jitterFactor] and clamped to a 0.1s
// floor, matching the upstream's calculate_delay.
func (d *Driver) backoff(attempt int, err error) time.Duration {
	var rateLimitErr *transport.RateLimitError
	if errors.As(err, &rateLimitErr) && rateLimitErr.RetryAfter > 0 {
		return rateLimitErr.RetryAfter
	}

	raw := float64(d.cfg.BaseDelay) * math.Pow(d.cfg.ExponentialBase, float64(attempt))
	if raw > float64(d.cfg.MaxDelay) {
		raw = float64(d.cfg.MaxDelay)
	}

	if d.cfg.Jitter {
		factor := d.cfg.JitterFactor
		jitterMul := 1 - factor + d.rand.Float64()*2*factor
		raw *= jitterMul
	}

	floor := float64(100 * time.Millisecond)
	if raw < floor {
		raw = floor
	}
	return time.Duration(raw)
}
