package spapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sellerops/amazon-connector/internal/metrics"
)

// Priority scales how long a caller is willing to wait for a token.
// High-priority callers shave their deficit wait, low-priority callers pad
// it, which nudges contended buckets toward serving probes and recovery
// calls first.
type Priority string

// Acquire priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

func (p Priority) waitFactor() float64 {
	switch p {
	case PriorityHigh:
		return 0.9
	case PriorityLow:
		return 1.2
	default:
		return 1.0
	}
}

// TokenBucket gates request rate for one endpoint class with burst support.
// Amazon publishes per-operation rates (getOrders 0.0167 rps burst 20,
// getOrderItems 0.5 rps burst 30); one bucket instance per endpoint class is
// shared by every worker targeting that endpoint.
//
// Tokens refill lazily on acquire: tokens = min(capacity, tokens +
// elapsed*rate). A caller that finds the bucket empty sleeps out the deficit
// while holding the lock, so the refill produced by its own sleep cannot be
// stolen by a concurrent acquirer.
type TokenBucket struct {
	endpoint string

	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	lastUpdate time.Time

	nowFunc   func() time.Time
	sleepFunc func(context.Context, time.Duration) error
}

// TokenBucketOption configures a TokenBucket.
type TokenBucketOption func(*TokenBucket)

// WithBucketNowFunc overrides the time source for testing.
func WithBucketNowFunc(f func() time.Time) TokenBucketOption {
	return func(b *TokenBucket) {
		b.nowFunc = f
	}
}

// WithBucketSleepFunc overrides the sleep implementation for testing.
func WithBucketSleepFunc(f func(context.Context, time.Duration) error) TokenBucketOption {
	return func(b *TokenBucket) {
		b.sleepFunc = f
	}
}

// NewTokenBucket creates a full bucket for the named endpoint class.
// refillRate is tokens per second, capacity is the burst allowance.
func NewTokenBucket(
	endpoint string,
	refillRate float64,
	capacity float64,
	opts ...TokenBucketOption,
) (*TokenBucket, error) {
	if refillRate <= 0 {
		return nil, fmt.Errorf("token bucket %s: refill rate must be > 0, got %v", endpoint, refillRate)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("token bucket %s: capacity must be > 0, got %v", endpoint, capacity)
	}

	b := &TokenBucket{
		endpoint:   endpoint,
		tokens:     capacity,
		capacity:   capacity,
		refillRate: refillRate,
		nowFunc:    time.Now,
		sleepFunc:  sleepContext,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lastUpdate = b.nowFunc()
	return b, nil
}

// Acquire blocks until a token is available, then consumes it. The wait for
// an empty bucket is the token deficit divided by the refill rate, scaled by
// priority. Returns the context error if canceled while waiting.
func (b *TokenBucket) Acquire(ctx context.Context, p Priority) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()

	if b.tokens >= 1.0 {
		b.tokens--
		return nil
	}

	wait := time.Duration((1.0 - b.tokens) / b.refillRate * p.waitFactor() * float64(time.Second))
	metrics.RateLimitWaitSeconds.WithLabelValues(b.endpoint).Observe(wait.Seconds())

	if err := b.sleepFunc(ctx, wait); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	// The sleep produced the missing refill and this caller consumes it.
	b.tokens = 0
	b.lastUpdate = b.nowFunc()
	return nil
}

// WaitEstimate returns the wait a normal-priority acquire would face now.
func (b *TokenBucket) WaitEstimate() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()
	if b.tokens >= 1.0 {
		return 0
	}
	return time.Duration((1.0 - b.tokens) / b.refillRate * float64(time.Second))
}

// Tokens returns the current token count, after refill.
func (b *TokenBucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()
	return b.tokens
}

func (b *TokenBucket) refillLocked() {
	now := b.nowFunc()
	elapsed := now.Sub(b.lastUpdate).Seconds()
	if elapsed < 0 {
		// Clock skew; never drain the bucket below what it holds.
		elapsed = 0
	}
	b.tokens = min(b.capacity, b.tokens+elapsed*b.refillRate)
	b.lastUpdate = now
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
