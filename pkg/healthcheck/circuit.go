package healthcheck

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Execute while the circuit rejects calls
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name
func (s CircuitBreakerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CircuitBreakerConfig holds configuration for circuit breaker
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit
	FailureThreshold int
	// SuccessThreshold is the number of half-open successes that closes it again
	SuccessThreshold int
	// Timeout is how long the circuit stays open before probing
	Timeout time.Duration
	// OnStateChange is called with the lock held; it must not call back into the breaker
	OnStateChange func(name string, from, to CircuitBreakerState)
}

// CircuitBreakerStatus is a snapshot of a breaker
type CircuitBreakerStatus struct {
	Name                string              `json:"name"`
	State               CircuitBreakerState `json:"state"`
	ConsecutiveFailures int                 `json:"consecutive_failures"`
	TotalRequests       int64               `json:"total_requests"`
	TotalFailures       int64               `json:"total_failures"`
	TotalRejections     int64               `json:"total_rejections"`
	NextAttempt         *time.Time          `json:"next_attempt,omitempty"`
}

// CircuitBreaker stops calling a failing dependency for a while
type CircuitBreaker struct {
	name        string
	config      CircuitBreakerConfig
	state       CircuitBreakerState
	failures    int
	successes   int
	probing     bool
	nextAttempt time.Time
	requests    int64
	totalFails  int64
	rejections  int64
	now         func() time.Time
	mu          sync.Mutex
}

// NewCircuitBreaker creates a breaker, filling unset config values
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &CircuitBreaker{name: name, config: config, now: time.Now}
}

// Execute runs fn unless the circuit is open. Only one probe runs while
// half-open; concurrent calls are rejected until it finishes. Context
// cancellation by the caller does not count as a dependency failure.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if !cb.acquire() {
		return ErrCircuitOpen
	}

	err := fn(ctx)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false
	switch {
	case err == nil:
		cb.onSuccess()
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
	default:
		cb.onFailure()
	}
	return err
}

func (cb *CircuitBreaker) acquire() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.requests++

	switch cb.state {
	case StateOpen:
		if cb.now().Before(cb.nextAttempt) {
			cb.rejections++
			return false
		}
		cb.setState(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if cb.probing {
			cb.rejections++
			return false
		}
		cb.probing = true
	}
	return true
}

func (cb *CircuitBreaker) onSuccess() {
	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.setState(StateClosed)
		}
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.totalFails++
	cb.failures++
	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		cb.setState(StateOpen)
	}
}

func (cb *CircuitBreaker) setState(state CircuitBreakerState) {
	if cb.state == state {
		return
	}
	from := cb.state
	cb.state = state
	cb.successes = 0

	switch state {
	case StateOpen:
		cb.nextAttempt = cb.now().Add(cb.config.Timeout)
	case StateClosed:
		cb.failures = 0
	}

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.name, from, state)
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Status returns a snapshot for health reporting
func (cb *CircuitBreaker) Status() CircuitBreakerStatus {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	status := CircuitBreakerStatus{
		Name:                cb.name,
		State:               cb.state,
		ConsecutiveFailures: cb.failures,
		TotalRequests:       cb.requests,
		TotalFailures:       cb.totalFails,
		TotalRejections:     cb.rejections,
	}
	if cb.state == StateOpen {
		next := cb.nextAttempt
		status.NextAttempt = &next
	}
	return status
}

// Reset closes the circuit and clears the failure count
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false
	cb.setState(StateClosed)
	cb.failures = 0
}
