// internal/errors/service.go - retry and circuit breaking for page fetches
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// Service retries transient fetch failures and trips a circuit breaker per
// operation after repeated failures.
type Service struct {
	retryConfig     RetryConfig
	breakerConfig   CircuitBreakerConfig
	circuitBreakers map[string]*CircuitBreaker
	verbose         bool
	now             func() time.Time
	sleep           func(ctx context.Context, d time.Duration) error
	mu              sync.RWMutex
}

// RetryConfig defines retry behavior
type RetryConfig struct {
	MaxRetries    int           `yaml:"max_retries" json:"max_retries"`
	BaseDelay     time.Duration `yaml:"base_delay" json:"base_delay"`
	BackoffFactor float64       `yaml:"backoff_factor" json:"backoff_factor"`
	MaxDelay      time.Duration `yaml:"max_delay" json:"max_delay"`
}

// CircuitBreakerConfig configures circuit breaker behavior. MaxFailures of
// zero disables the breaker.
type CircuitBreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures" json:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout" json:"reset_timeout"`
}

// DefaultRetryConfig returns the retry policy used when none is configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    2,
		BaseDelay:     500 * time.Millisecond,
		BackoffFactor: 2.0,
		MaxDelay:      10 * time.Second,
	}
}

// DefaultCircuitBreakerConfig opens after 5 consecutive failures for a minute.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{MaxFailures: 5, ResetTimeout: time.Minute}
}

// NewService creates a service with the given policies.
func NewService(retry RetryConfig, breaker CircuitBreakerConfig) *Service {
	if retry.BackoffFactor < 1 {
		retry.BackoffFactor = 1
	}
	if retry.MaxDelay <= 0 {
		retry.MaxDelay = DefaultRetryConfig().MaxDelay
	}
	return &Service{
		retryConfig:     retry,
		breakerConfig:   breaker,
		circuitBreakers: make(map[string]*CircuitBreaker),
		now:             time.Now,
		sleep:           sleepContext,
	}
}

// WithVerbose enables technical error details
func (s *Service) WithVerbose(verbose bool) *Service {
	s.verbose = verbose
	return s
}

// ExecuteWithRetry runs operation until it succeeds, fails with a
// non-retryable error or runs out of attempts. operationName keys the
// circuit breaker; an open breaker fails fast with a fetch error.
func (s *Service) ExecuteWithRetry(ctx context.Context, operation func() error, operationName string) error {
	cb := s.getOrCreateCircuitBreaker(operationName)

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= s.retryConfig.MaxRetries; attempt++ {
		if cb != nil && !cb.CanExecute() {
			if lastErr != nil {
				break
			}
			return Fetch(ErrCircuitOpen, "circuit open for %s", operationName)
		}

		attempts++
		err := operation()
		if err == nil {
			if cb != nil {
				cb.RecordSuccess()
			}
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		if cb != nil {
			cb.RecordFailure()
		}
		if attempt == s.retryConfig.MaxRetries {
			break
		}

		if err := s.sleep(ctx, s.calculateDelay(attempt)); err != nil {
			return lastErr
		}
	}

	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("operation %s failed after %d attempts: %w", operationName, attempts, lastErr)
}

// ErrCircuitOpen is the cause of a fetch refused by an open breaker.
var ErrCircuitOpen = stderrors.New("circuit breaker is open")

// IsRetryable reports whether err is a transient fetch failure. Causes may
// veto a retry by implementing Retryable() bool; cancellation never retries.
func IsRetryable(err error) bool {
	if err == nil || CodeOf(err) != CodeFetchFailed {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, ErrCircuitOpen) {
		return false
	}
	var r interface{ Retryable() bool }
	if stderrors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

// calculateDelay computes exponential backoff delay
func (s *Service) calculateDelay(attempt int) time.Duration {
	delay := time.Duration(float64(s.retryConfig.BaseDelay) * math.Pow(s.retryConfig.BackoffFactor, float64(attempt)))
	if delay > s.retryConfig.MaxDelay {
		delay = s.retryConfig.MaxDelay
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// getOrCreateCircuitBreaker returns nil when breaking is disabled.
func (s *Service) getOrCreateCircuitBreaker(operationName string) *CircuitBreaker {
	if s.breakerConfig.MaxFailures <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cb, exists := s.circuitBreakers[operationName]; exists {
		return cb
	}
	cb := &CircuitBreaker{
		name:         operationName,
		maxFailures:  s.breakerConfig.MaxFailures,
		resetTimeout: s.breakerConfig.ResetTimeout,
		state:        CircuitClosed,
		now:          s.now,
	}
	s.circuitBreakers[operationName] = cb
	return cb
}

// GetExitCode maps err to a process exit status.
func (s *Service) GetExitCode(err error) int {
	return ExitCode(err)
}

// FormatErrorForCLI renders err, with details in verbose mode.
func (s *Service) FormatErrorForCLI(err error) string {
	return FormatForCLI(err, s.verbose)
}

// GetCircuitBreakerStats returns statistics for all circuit breakers
func (s *Service) GetCircuitBreakerStats() []CircuitBreakerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make([]CircuitBreakerStats, 0, len(s.circuitBreakers))
	for _, cb := range s.circuitBreakers {
		stats = append(stats, cb.GetStats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

// ResetCircuitBreaker closes the named breaker.
func (s *Service) ResetCircuitBreaker(operationName string) error {
	s.mu.RLock()
	cb, ok := s.circuitBreakers[operationName]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("circuit breaker not found for operation: %s", operationName)
	}
	cb.RecordSuccess()
	return nil
}

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	CircuitClosed CircuitBreakerState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker implements circuit breaker pattern for error recovery
type CircuitBreaker struct {
	name            string
	maxFailures     int
	resetTimeout    time.Duration
	state           CircuitBreakerState
	failures        int
	lastFailureTime time.Time
	nextAttemptTime time.Time
	now             func() time.Time
	mu              sync.Mutex
}

// CircuitBreakerStats is a snapshot of one breaker.
type CircuitBreakerStats struct {
	Name            string    `json:"name"`
	State           string    `json:"state"`
	Failures        int       `json:"failures"`
	LastFailureTime time.Time `json:"last_failure_time"`
	NextAttemptTime time.Time `json:"next_attempt_time"`
}

// CanExecute checks if operation can be executed
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		return true
	case CircuitOpen:
		if cb.now().After(cb.nextAttemptTime) {
			cb.state = CircuitHalfOpen
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess records successful execution
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = CircuitClosed
}

// RecordFailure records failed execution. A failure while half-open
// reopens the breaker immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = cb.now()

	if cb.state == CircuitHalfOpen || cb.failures >= cb.maxFailures {
		cb.state = CircuitOpen
		cb.nextAttemptTime = cb.lastFailureTime.Add(cb.resetTimeout)
	}
}

// GetState returns current circuit breaker state
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// GetStats returns circuit breaker statistics
func (cb *CircuitBreaker) GetStats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerStats{
		Name:            cb.name,
		State:           cb.state.String(),
		Failures:        cb.failures,
		LastFailureTime: cb.lastFailureTime,
		NextAttemptTime: cb.nextAttemptTime,
	}
}
