package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CircuitState represents the state of the model circuit breaker.
type CircuitState int

const (
	StateClosed   CircuitState = iota // healthy — calls flow
	StateOpen                         // unhealthy — calls blocked
	StateHalfOpen                     // probing — one call allowed
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the breaker is rejecting calls.
var ErrCircuitOpen = fmt.Errorf("language model circuit open")

// CircuitBreaker guards the model provider: consecutive failures trip it
// open so a flapping provider degrades fast instead of hanging every
// request until its timeout.
type CircuitBreaker struct {
	mu sync.Mutex

	state       CircuitState
	failures    int
	lastFailure time.Time
	openedAt    time.Time

	failureThreshold      int
	recoveryProbeInterval time.Duration
}

// NewCircuitBreaker creates a circuit breaker with the given thresholds.
func NewCircuitBreaker(failureThreshold int, recoveryProbeInterval time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:                 StateClosed,
		failureThreshold:      failureThreshold,
		recoveryProbeInterval: recoveryProbeInterval,
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// currentState transitions OPEN to HALF_OPEN once the probe interval has
// elapsed. Must be called with mu held.
func (cb *CircuitBreaker) currentState() CircuitState {
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.recoveryProbeInterval {
		cb.state = StateHalfOpen
	}
	return cb.state
}

// Allow returns true if a call should be allowed through.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentState() {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		return false
	}
	return false
}

// RecordSuccess records a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.state = StateClosed
		cb.failures = 0
	case StateClosed:
		cb.failures = 0
	}
}

// RecordFailure records a failed call.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.failureThreshold {
			cb.state = StateOpen
			cb.openedAt = time.Now()
		}
	case StateHalfOpen:
		cb.state = StateOpen
		cb.openedAt = time.Now()
	}
}

// BreakerClient wraps a Client with a circuit breaker shared by both
// operations; a provider that fails Interpret is not given Explain traffic
// either.
type BreakerClient struct {
	inner   Client
	breaker *CircuitBreaker
}

// NewBreakerClient wraps inner with the given breaker.
func NewBreakerClient(inner Client, breaker *CircuitBreaker) *BreakerClient {
	return &BreakerClient{inner: inner, breaker: breaker}
}

func (b *BreakerClient) Interpret(ctx context.Context, question, userContext string) (string, error) {
	return b.guard(func() (string, error) {
		return b.inner.Interpret(ctx, question, userContext)
	})
}

func (b *BreakerClient) Explain(ctx context.Context, question, dataJSON string) (string, error) {
	return b.guard(func() (string, error) {
		return b.inner.Explain(ctx, question, dataJSON)
	})
}

func (b *BreakerClient) Complete(ctx context.Context, system, user string) (string, error) {
	return b.guard(func() (string, error) {
		return b.inner.Complete(ctx, system, user)
	})
}

func (b *BreakerClient) guard(call func() (string, error)) (string, error) {
	if !b.breaker.Allow() {
		return "", ErrCircuitOpen
	}
	text, err := call()
	if err != nil {
		b.breaker.RecordFailure()
		return "", err
	}
	b.breaker.RecordSuccess()
	return text, nil
}
