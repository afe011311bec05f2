package spapi

import (
	"sync"
	"time"

	"github.com/sellerops/amazon-connector/internal/metrics"
)

// BreakerState is the circuit breaker state machine position.
type BreakerState int

// Breaker states.
const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// CircuitBreaker fails fast when an upstream endpoint class is unhealthy.
// One instance guards each endpoint class and is shared by all workers
// targeting it, so one worker's failures protect the rest.
//
// Only infrastructure failures count toward the threshold: the caller must
// not record validation (4xx bad request) errors.
type CircuitBreaker struct {
	endpoint string

	mu               sync.Mutex
	state            BreakerState
	failureCount     int
	lastFailureTime  time.Time
	probeInFlight    bool
	failureThreshold int
	recoveryTimeout  time.Duration

	nowFunc func() time.Time
}

// BreakerOption configures a CircuitBreaker.
type BreakerOption func(*CircuitBreaker)

// WithBreakerNowFunc overrides the time source for testing.
func WithBreakerNowFunc(f func() time.Time) BreakerOption {
	return func(cb *CircuitBreaker) {
		cb.nowFunc = f
	}
}

// NewCircuitBreaker creates a closed breaker for the named endpoint class.
func NewCircuitBreaker(
	endpoint string,
	failureThreshold int,
	recoveryTimeout time.Duration,
	opts ...BreakerOption,
) *CircuitBreaker {
	cb := &CircuitBreaker{
		endpoint:         endpoint,
		state:            StateClosed,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		nowFunc:          time.Now,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// Allow reports whether a call may proceed. While open it returns
// ErrCircuitOpen until the recovery timeout elapses, then admits exactly one
// probe; further callers keep failing fast until the probe resolves.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if cb.nowFunc().Sub(cb.lastFailureTime) > cb.recoveryTimeout {
			cb.setStateLocked(StateHalfOpen)
			cb.probeInFlight = true
			return nil
		}
		return ErrCircuitOpen
	default: // StateHalfOpen
		if cb.probeInFlight {
			return ErrCircuitOpen
		}
		cb.probeInFlight = true
		return nil
	}
}

// RecordSuccess notes a successful call. A successful probe closes the
// breaker and resets the failure count; that is the only transition that
// clears it.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		// Transition into CLOSED is the only place the count resets.
		cb.setStateLocked(StateClosed)
		cb.failureCount = 0
		cb.probeInFlight = false
	case StateClosed, StateOpen:
		// Counting is windowed by the trip/recover cycle, not by
		// interleaved successes.
	}
}

// RecordFailure notes a breaker-countable failure (timeout, 5xx, persistent
// throttling). A failed probe reopens the breaker and restarts the recovery
// window.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.nowFunc()

	switch cb.state {
	case StateHalfOpen:
		cb.setStateLocked(StateOpen)
		cb.lastFailureTime = now
		cb.probeInFlight = false
	case StateClosed:
		cb.failureCount++
		cb.lastFailureTime = now
		if cb.failureCount >= cb.failureThreshold {
			cb.setStateLocked(StateOpen)
		}
	case StateOpen:
		cb.lastFailureTime = now
	}
}

// CancelProbe releases the half-open probe slot when an admitted call exits
// without an upstream outcome (rate-limit acquire canceled, token fetch
// failed, request construction failed). The breaker stays HALF_OPEN with the
// slot free, so the next caller is admitted as a fresh probe.
func (cb *CircuitBreaker) CancelProbe() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.probeInFlight = false
	}
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// FailureCount returns the current consecutive failure count.
func (cb *CircuitBreaker) FailureCount() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failureCount
}

func (cb *CircuitBreaker) setStateLocked(s BreakerState) {
	cb.state = s
	metrics.BreakerState.WithLabelValues(cb.endpoint).Set(float64(s))
}
