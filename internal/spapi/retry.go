package spapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/sellerops/amazon-connector/internal/metrics"
)

// Retry defaults. The delay cap is deliberately high because getOrders
// refills at one token a minute; a tight cap would just burn attempts.
const (
	defaultMaxRetries  = 5
	defaultBaseDelay   = 1 * time.Second
	defaultMaxDelay    = 5 * time.Minute
	defaultJitterRange = 0.25
)

// categoryMultiplier stretches backoff for categories where hammering the
// endpoint makes things worse.
func categoryMultiplier(c Category) float64 {
	switch c {
	case CategoryRateLimit:
		return 3.0
	case CategoryAuthentication, CategoryServiceUnavailable:
		return 2.0
	case CategoryNetwork:
		return 1.5
	default:
		return 1.0
	}
}

// RetryPolicy wraps a single call in categorized exponential backoff with
// symmetric jitter. Validation errors and open-breaker errors fail
// immediately without consuming an attempt.
type RetryPolicy struct {
	maxRetries  int
	baseDelay   time.Duration
	maxDelay    time.Duration
	jitterRange float64

	randFunc  func() float64 // uniform [0, 1)
	sleepFunc func(context.Context, time.Duration) error
	log       *slog.Logger
}

// RetryOption configures a RetryPolicy.
type RetryOption func(*RetryPolicy)

// WithMaxRetries sets the attempt budget.
func WithMaxRetries(n int) RetryOption {
	return func(p *RetryPolicy) {
		p.maxRetries = n
	}
}

// WithBaseDelay sets the first-attempt backoff delay.
func WithBaseDelay(d time.Duration) RetryOption {
	return func(p *RetryPolicy) {
		p.baseDelay = d
	}
}

// WithMaxDelay caps any single backoff delay.
func WithMaxDelay(d time.Duration) RetryOption {
	return func(p *RetryPolicy) {
		p.maxDelay = d
	}
}

// WithRandFunc overrides the jitter source for testing.
func WithRandFunc(f func() float64) RetryOption {
	return func(p *RetryPolicy) {
		p.randFunc = f
	}
}

// WithSleepFunc overrides the sleep implementation for testing.
func WithSleepFunc(f func(context.Context, time.Duration) error) RetryOption {
	return func(p *RetryPolicy) {
		p.sleepFunc = f
	}
}

// WithRetryLogger sets the logger.
func WithRetryLogger(l *slog.Logger) RetryOption {
	return func(p *RetryPolicy) {
		p.log = l
	}
}

// NewRetryPolicy creates a RetryPolicy with the package defaults.
func NewRetryPolicy(opts ...RetryOption) *RetryPolicy {
	p := &RetryPolicy{
		maxRetries:  defaultMaxRetries,
		baseDelay:   defaultBaseDelay,
		maxDelay:    defaultMaxDelay,
		jitterRange: defaultJitterRange,
		randFunc:    rand.Float64,
		sleepFunc:   sleepContext,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute runs call, retrying retryable failures with categorized backoff
// until the attempt budget is exhausted. The returned error carries the last
// classified category.
func (p *RetryPolicy) Execute(ctx context.Context, op string, call func() error) error {
	var lastErr error

	for attempt := 0; attempt < p.maxRetries; attempt++ {
		err := call()
		if err == nil {
			if attempt > 0 {
				p.log.Info("call succeeded after retry", "op", op, "attempt", attempt+1)
			}
			return nil
		}
		lastErr = err

		// Open breaker: upstream is unhealthy, stop trying for now.
		if errors.Is(err, ErrCircuitOpen) {
			return err
		}
		// Dead refresh token is fatal to the session, never retried here.
		if errors.Is(err, ErrReconnectRequired) {
			return err
		}

		category := Classify(err)
		if category == CategoryValidation {
			return err
		}

		if attempt == p.maxRetries-1 {
			break
		}

		delay := p.delay(attempt, category)
		metrics.RetriesTotal.WithLabelValues(string(category)).Inc()

		p.log.Warn("retrying after backoff",
			"op", op,
			"attempt", attempt+1,
			"category", string(category),
			"delay", delay,
			"error", err,
		)

		if err := p.sleepFunc(ctx, delay); err != nil {
			return fmt.Errorf("%s: backoff interrupted: %w", op, err)
		}
	}

	metrics.RetriesExhaustedTotal.WithLabelValues(string(Classify(lastErr))).Inc()
	return fmt.Errorf("%s: retries exhausted after %d attempts: %w", op, p.maxRetries, lastErr)
}

// delay computes the backoff for 0-indexed attempt k:
// base*2^k capped, jittered symmetrically, scaled by category, re-capped.
func (p *RetryPolicy) delay(attempt int, category Category) time.Duration {
	base := float64(p.baseDelay) * float64(uint64(1)<<uint(attempt))
	if base > float64(p.maxDelay) {
		base = float64(p.maxDelay)
	}

	jitter := base * p.jitterRange * (2*p.randFunc() - 1)
	d := (base + jitter) * categoryMultiplier(category)

	if d > float64(p.maxDelay) {
		d = float64(p.maxDelay)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}
