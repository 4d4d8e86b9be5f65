// Package retry provides exponential-backoff retries with an optional
// per-key circuit breaker for protecting shared downstream dependencies.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Config holds backoff parameters for Do.
type Config struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the delay before the second attempt.
	BaseDelay time.Duration

	// MaxDelay caps the exponential component of the delay.
	MaxDelay time.Duration

	// Multiplier is applied to the delay after each failed attempt.
	Multiplier float64

	// Jitter adds uniform(0, Jitter) to every delay.
	Jitter time.Duration
}

// DefaultConfig returns the retry defaults used for LLM calls.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   750 * time.Millisecond,
		MaxDelay:    6 * time.Second,
		Multiplier:  2.0,
		Jitter:      350 * time.Millisecond,
	}
}

// Options configures one Do invocation.
type Options struct {
	// Name identifies the operation in log entries.
	Name string

	Config Config

	Logger *zap.Logger

	// Breaker and BreakerKey are optional; when set, calls are gated by
	// the circuit for BreakerKey.
	Breaker    *Breaker
	BreakerKey string

	// Fatal, when set, reports errors that must not be retried. A fatal
	// error is returned immediately and does not count as a breaker
	// failure: the downstream answered, it just said no.
	Fatal func(error) bool

	// sleep and randFloat are injection points for tests.
	sleep     func(context.Context, time.Duration) error
	randFloat func() float64
}

// Delay returns the backoff delay applied after the given failed attempt
// (1-indexed), excluding jitter.
func (c Config) Delay(attempt int) time.Duration {
	d := time.Duration(float64(c.BaseDelay) * math.Pow(c.Multiplier, float64(attempt-1)))
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// Do runs op with bounded retries and exponential backoff. It returns the
// first successful result, a *BreakerOpenError when the circuit for
// opts.BreakerKey is open, or the last error once attempts are exhausted.
// Any success resets the breaker failure count for the key.
func Do[T any](ctx context.Context, opts Options, op func(context.Context) (T, error)) (T, error) {
	var zero T

	cfg := opts.Config
	if cfg.MaxAttempts < 1 {
		return zero, fmt.Errorf("retry: max attempts must be >= 1, got %d", cfg.MaxAttempts)
	}
	if cfg.Multiplier < 1 {
		return zero, fmt.Errorf("retry: multiplier must be >= 1, got %g", cfg.Multiplier)
	}
	if opts.Breaker != nil && opts.BreakerKey == "" {
		return zero, fmt.Errorf("retry: breaker key required when breaker is set")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sleep := opts.sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	randFloat := opts.randFloat
	if randFloat == nil {
		randFloat = rand.Float64
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if opts.Breaker != nil && !opts.Breaker.Allow(opts.BreakerKey) {
			retryAfter := opts.Breaker.CooldownRemaining(opts.BreakerKey)
			logger.Warn("circuit open, short-circuiting call",
				zap.String("operation", opts.Name),
				zap.String("breaker_key", opts.BreakerKey),
				zap.Duration("retry_after", retryAfter))
			return zero, &BreakerOpenError{Key: opts.BreakerKey, RetryAfter: retryAfter, Last: lastErr}
		}

		result, err := op(ctx)
		if err == nil {
			if opts.Breaker != nil {
				opts.Breaker.RecordSuccess(opts.BreakerKey)
			}
			return result, nil
		}
		lastErr = err

		if opts.Fatal != nil && opts.Fatal(err) {
			logger.Warn("non-retryable error",
				zap.String("operation", opts.Name),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return zero, err
		}

		opened := false
		if opts.Breaker != nil {
			opened = opts.Breaker.RecordFailure(opts.BreakerKey)
		}
		logger.Warn("retryable error",
			zap.String("operation", opts.Name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Bool("breaker_opened", opened),
			zap.Error(err))

		if opened {
			retryAfter := opts.Breaker.CooldownRemaining(opts.BreakerKey)
			return zero, &BreakerOpenError{Key: opts.BreakerKey, RetryAfter: retryAfter, Last: err}
		}
		if attempt >= cfg.MaxAttempts {
			break
		}

		delay := cfg.Delay(attempt)
		if cfg.Jitter > 0 {
			delay += time.Duration(randFloat() * float64(cfg.Jitter))
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

// sleepCtx waits for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
