package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"rental-portal/internal/logger"
)

// ErrCircuitOpen is returned while the breaker refuses calls.
var ErrCircuitOpen = errors.New("search circuit breaker open")

// Remover is the part of SearchClient the breaker guards.
type Remover interface {
	RemoveDocuments(ctx context.Context, ids []string) error
}

// CircuitBreaker stops calling an unavailable search backend so deletions
// don't wait on its timeouts.
type CircuitBreaker struct {
	next             Remover
	failureThreshold int
	resetTimeout     time.Duration
	now              func() time.Time

	mutex               sync.Mutex
	consecutiveFailures int
	isOpen              bool
	lastFailureTime     time.Time
}

// NewCircuitBreaker opens after failureThreshold consecutive failures and
// lets one call through again after resetTimeout.
func NewCircuitBreaker(next Remover, failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	return &CircuitBreaker{
		next:             next,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
	}
}

func (cb *CircuitBreaker) RemoveDocuments(ctx context.Context, ids []string) error {
	if !cb.CanProceed() {
		return ErrCircuitOpen
	}
	err := cb.next.RemoveDocuments(ctx, ids)
	if err != nil {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return nil
}

// RecordSuccess records a successful call
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.consecutiveFailures = 0
}

// RecordFailure records a failed call
func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.consecutiveFailures++
	cb.lastFailureTime = cb.now()

	if !cb.isOpen && cb.consecutiveFailures >= cb.failureThreshold {
		cb.isOpen = true
		logger.Warn().
			Int("consecutive_failures", cb.consecutiveFailures).
			Dur("reset_timeout", cb.resetTimeout).
			Msg("search circuit breaker open")
	}
}

// CanProceed checks if calls are allowed
func (cb *CircuitBreaker) CanProceed() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if !cb.isOpen {
		return true
	}

	// Half-open: allow one attempt; a failure reopens immediately.
	if cb.now().Sub(cb.lastFailureTime) > cb.resetTimeout {
		cb.isOpen = false
		cb.consecutiveFailures = cb.failureThreshold - 1
		return true
	}

	return false
}

// GetStatus returns current circuit breaker status
func (cb *CircuitBreaker) GetStatus() (isOpen bool, consecutiveFailures int) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.isOpen, cb.consecutiveFailures
}
