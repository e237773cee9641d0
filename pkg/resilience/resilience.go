package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"meetdesk-backend/pkg/logger"
)

// CircuitBreakerState represents the state of the circuit breaker
type CircuitBreakerState string

const (
	CircuitBreakerClosed   CircuitBreakerState = "closed"
	CircuitBreakerHalfOpen CircuitBreakerState = "half_open"
	CircuitBreakerOpen     CircuitBreakerState = "open"
)

// ErrCircuitOpen is returned while the breaker rejects calls
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Observer receives the outcome of every guarded operation
type Observer interface {
	RecordStorageRequest(operation, status string)
}

// Config holds circuit breaker settings
type Config struct {
	// MaxFailures opens the circuit after this many consecutive failures
	MaxFailures int
	// ResetTimeout is how long the circuit stays open before a trial call
	ResetTimeout time.Duration
	// Timeout bounds a single attempt
	Timeout time.Duration
	// MaxAttempts includes the first try
	MaxAttempts int
	// Backoff is multiplied by the attempt number between retries
	Backoff time.Duration
}

// DefaultConfig returns default circuit breaker settings
func DefaultConfig() Config {
	return Config{
		MaxFailures:  3,
		ResetTimeout: 10 * time.Second,
		Timeout:      10 * time.Second,
		MaxAttempts:  3,
		Backoff:      100 * time.Millisecond,
	}
}

// CircuitBreaker wraps calls to a flaky dependency with retry, timeout and a circuit breaker
type CircuitBreaker struct {
	name     string
	config   Config
	observer Observer
	now      func() time.Time

	mu                  sync.Mutex
	state               CircuitBreakerState
	consecutiveFailures int
	openedAt            time.Time
}

// NewCircuitBreaker creates a new circuit breaker; observer may be nil
func NewCircuitBreaker(name string, config Config, observer Observer) *CircuitBreaker {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	return &CircuitBreaker{
		name:     name,
		config:   config,
		observer: observer,
		now:      time.Now,
		state:    CircuitBreakerClosed,
	}
}

// Execute runs fn with retry, timeout, and circuit breaker
func (b *CircuitBreaker) Execute(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= b.config.MaxAttempts; attempt++ {
		if !b.allow() {
			b.record(operation, "circuit_breaker_open")
			logger.Error("Circuit breaker is OPEN - request blocked",
				zap.String("dependency", b.name),
				zap.String("operation", operation))
			return fmt.Errorf("%s %s: %w", b.name, operation, ErrCircuitOpen)
		}

		attemptCtx := ctx
		cancel := func() {}
		if b.config.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, b.config.Timeout)
		}
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			b.onSuccess()
			b.record(operation, "success")
			return nil
		}
		lastErr = err
		b.onFailure(operation)
		b.record(operation, ClassifyError(err))

		if attempt == b.config.MaxAttempts {
			break
		}
		backoff := time.Duration(attempt) * b.config.Backoff
		logger.Warn("Operation failed, backing off",
			zap.String("dependency", b.name),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("%s %s failed after %d attempts: %w", b.name, operation, b.config.MaxAttempts, lastErr)
}

// State returns the current circuit breaker state
func (b *CircuitBreaker) State() CircuitBreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *CircuitBreaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitBreakerOpen && b.now().Sub(b.openedAt) >= b.config.ResetTimeout {
		b.state = CircuitBreakerHalfOpen
		logger.Warn("Circuit breaker HALF-OPEN - allowing trial request", zap.String("dependency", b.name))
	}
	return b.state != CircuitBreakerOpen
}

func (b *CircuitBreaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != CircuitBreakerClosed {
		logger.Info("Circuit breaker CLOSED - dependency recovered", zap.String("dependency", b.name))
	}
	b.state = CircuitBreakerClosed
	b.consecutiveFailures = 0
}

func (b *CircuitBreaker) onFailure(operation string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	if b.state == CircuitBreakerHalfOpen || b.consecutiveFailures >= b.config.MaxFailures {
		if b.state != CircuitBreakerOpen {
			logger.Error("Circuit breaker OPEN - too many consecutive failures",
				zap.String("dependency", b.name),
				zap.String("operation", operation),
				zap.Int("consecutive_failures", b.consecutiveFailures))
		}
		b.state = CircuitBreakerOpen
		b.openedAt = b.now()
	}
}

func (b *CircuitBreaker) record(operation, status string) {
	if b.observer != nil {
		b.observer.RecordStorageRequest(operation, status)
	}
}

// ClassifyError classifies errors for metrics labels
func ClassifyError(err error) string {
	if err == nil {
		return "success"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	errMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline exceeded"):
		return "timeout"
	case strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "network unreachable"):
		return "network"
	case strings.Contains(errMsg, "no such host") || strings.Contains(errMsg, "dns"):
		return "dns"
	case strings.Contains(errMsg, "not found") || strings.Contains(errMsg, "does not exist"):
		return "not_found"
	case strings.Contains(errMsg, "permission denied") || strings.Contains(errMsg, "access denied"):
		return "permission"
	default:
		return "unknown"
	}
}
