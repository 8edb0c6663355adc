// Package resilience protects external collaborators (graph store, LLM
// provider, embedding service) from cascading failure. It wraps
// sony/gobreaker's state machine with the percentage-of-failures semantics
// the rest of the stack expects, and adds the small retry-with-backoff
// helper used for TransientStoreError (spec.md §7).
package resilience

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sony/gobreaker"
)

// State mirrors gobreaker's state names in sparky's own vocabulary so
// callers never need to import gobreaker directly.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// Breaker wraps a gobreaker.CircuitBreaker configured for a failure-rate
// threshold, rather than a bare consecutive-failure count. Counts
// accumulate from the last state change; they are not cleared on a timer
// while the circuit is closed.
type Breaker struct {
	name             string
	failureThreshold float64
	resetTimeout     time.Duration
	cb               *gobreaker.CircuitBreaker
}

// NewCircuitBreaker builds a breaker named for the collaborator it guards
// (e.g. "graphstore", "llm", "embedding"). failureThreshold is the fraction
// of requests, in [0,1], that must fail, counted since the last state change
// and over at least 5 requests, before the circuit opens.
func NewCircuitBreaker(name string, failureThreshold float64, resetTimeout time.Duration) *Breaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     resetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= failureThreshold
		},
	}

	return &Breaker{
		name:             name,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		cb:               gobreaker.NewCircuitBreaker(settings),
	}
}

// Call executes fn through the breaker. When the circuit is open, fn is
// never invoked and Call fails fast with a descriptive error.
func (b *Breaker) Call(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("circuit breaker is open for %s", b.name)
	}
	return err
}

// CallContext is Call's context-aware counterpart; fn must itself respect
// ctx cancellation (spec.md §5: no operation suspends unboundedly).
func (b *Breaker) CallContext(ctx context.Context, fn func(context.Context) error) error {
	return b.Call(func() error {
		return fn(ctx)
	})
}

func (b *Breaker) GetName() string                    { return b.name }
func (b *Breaker) GetFailureThreshold() float64        { return b.failureThreshold }
func (b *Breaker) GetResetTimeout() time.Duration      { return b.resetTimeout }
func (b *Breaker) GetState() State {
	switch b.cb.State() {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

func (b *Breaker) GetFailureRate() float64 {
	counts := b.cb.Counts()
	if counts.Requests == 0 {
		return 0.0
	}
	return float64(counts.TotalFailures) / float64(counts.Requests)
}

func (b *Breaker) GetFailures() int64 {
	return int64(b.cb.Counts().ConsecutiveFailures)
}

// RetryWithBackoff retries fn up to maxAttempts times with exponential
// backoff, stopping early if ctx is cancelled or the error is not
// retryable. This backs spec.md §7's TransientStoreError handling.
func RetryWithBackoff(ctx context.Context, maxAttempts int, base time.Duration, isRetryable func(error) bool, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if isRetryable != nil && !isRetryable(lastErr) {
			return lastErr
		}
		if attempt == maxAttempts-1 {
			break
		}
		backoff := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}
