package retry

import (
	"fmt"
	"sync"
	"time"
)

// Breaker defaults shared by all LLM call sites.
const (
	DefaultFailureThreshold = 3
	DefaultRecoveryTime     = 45 * time.Second
)

// BreakerOpenError is returned when a call is short-circuited because the
// circuit for its key is open. RetryAfter is how long until the breaker
// allows a probe through.
type BreakerOpenError struct {
	Key        string
	RetryAfter time.Duration
	Last       error
}

func (e *BreakerOpenError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("circuit breaker open for %q, retry after %.2fs", e.Key, e.RetryAfter.Seconds())
	}
	return fmt.Sprintf("circuit breaker open for %q, retry later", e.Key)
}

func (e *BreakerOpenError) Unwrap() error { return e.Last }

type breakerState struct {
	failures int
	openedAt time.Time
}

// Breaker is an in-process circuit breaker with per-key state and a fixed
// recovery window. One instance is shared process-wide; keys isolate
// logical flows so failures in one flow do not trip another.
type Breaker struct {
	mu               sync.Mutex
	failureThreshold int
	recoveryTime     time.Duration
	states           map[string]*breakerState

	now func() time.Time
}

// NewBreaker creates a Breaker. Non-positive arguments fall back to the
// package defaults.
func NewBreaker(failureThreshold int, recoveryTime time.Duration) *Breaker {
	if failureThreshold < 1 {
		failureThreshold = DefaultFailureThreshold
	}
	if recoveryTime <= 0 {
		recoveryTime = DefaultRecoveryTime
	}
	return &Breaker{
		failureThreshold: failureThreshold,
		recoveryTime:     recoveryTime,
		states:           make(map[string]*breakerState),
		now:              time.Now,
	}
}

// Allow reports whether a call for key may proceed. Once the recovery
// window has elapsed the key is reset and a probe call passes through.
func (b *Breaker) Allow(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.states[key]
	if !ok || state.failures < b.failureThreshold {
		return true
	}
	if b.now().Sub(state.openedAt) >= b.recoveryTime {
		delete(b.states, key)
		return true
	}
	return false
}

// RecordFailure counts a failure against key and reports whether the
// circuit is now open.
func (b *Breaker) RecordFailure(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.states[key]
	if !ok {
		state = &breakerState{}
		b.states[key] = state
	}
	state.failures++
	if state.failures >= b.failureThreshold && state.openedAt.IsZero() {
		state.openedAt = b.now()
		return true
	}
	return !state.openedAt.IsZero()
}

// RecordSuccess resets the failure count for key.
func (b *Breaker) RecordSuccess(key string) {
	b.Reset(key)
}

// Reset clears all breaker state for key.
func (b *Breaker) Reset(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.states, key)
}

// CooldownRemaining returns how long until the breaker for key allows a
// probe. Zero means calls are allowed; an elapsed window also resets the
// key.
func (b *Breaker) CooldownRemaining(key string) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.states[key]
	if !ok || state.openedAt.IsZero() {
		return 0
	}
	remaining := b.recoveryTime - b.now().Sub(state.openedAt)
	if remaining <= 0 {
		delete(b.states, key)
		return 0
	}
	return remaining
}
