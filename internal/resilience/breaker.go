package resilience

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/verdantio/grow-core/internal/infrastructure/metrics"
)

// BreakerStatus is the externally visible circuit state.
type BreakerStatus string

// Circuit states.
const (
	StatusClosed   BreakerStatus = "closed"
	StatusOpen     BreakerStatus = "open"
	StatusHalfOpen BreakerStatus = "half_open"
)

// BreakerSnapshot is a read-only view of one adapter's circuit breaker.
type BreakerSnapshot struct {
	Status              BreakerStatus `json:"status"`
	ConsecutiveFailures uint32        `json:"consecutive_failures"`
	LastFailureAt       time.Time     `json:"last_failure_at,omitempty"`
	OpenedUntil         time.Time     `json:"opened_until,omitempty"`
}

// breakerEntry pairs a gobreaker instance with the state gobreaker does
// not expose: the cooldown deadline, the last failure time, and the
// consecutive-failure streak (gobreaker clears its Counts on every state
// transition, so an open breaker would otherwise report zero failures).
type breakerEntry struct {
	cb *gobreaker.CircuitBreaker

	mu                  sync.Mutex
	consecutiveFailures uint32
	lastFailureAt       time.Time
	openedUntil         time.Time
}

func (e *breakerEntry) recordFailure(now time.Time) {
	e.mu.Lock()
	e.consecutiveFailures++
	e.lastFailureAt = now
	e.mu.Unlock()
}

func (e *breakerEntry) recordSuccess() {
	e.mu.Lock()
	e.consecutiveFailures = 0
	e.mu.Unlock()
}

func (e *breakerEntry) recordOpened(until time.Time) {
	e.mu.Lock()
	e.openedUntil = until
	e.mu.Unlock()
}

// entry returns the breaker for an adapter name, creating it lazily on
// first use.
func (w *Wrapper) entry(name string) *breakerEntry {
	w.mu.Lock()
	defer w.mu.Unlock()

	if e, ok := w.breakers[name]; ok {
		return e
	}

	e := &breakerEntry{}
	e.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: name,
		// Exactly one trial call is admitted while half-open.
		MaxRequests: 1,
		Timeout:     w.cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(w.threshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			w.onStateChange(e, name, from, to)
		},
	})
	w.breakers[name] = e
	return e
}

func (w *Wrapper) onStateChange(e *breakerEntry, name string, from, to gobreaker.State) {
	switch to {
	case gobreaker.StateOpen:
		until := time.Now().Add(w.cooldown)
		e.recordOpened(until)
		w.metrics.SetBreakerState(name, metrics.BreakerOpen)
		w.logger.Warn("circuit breaker opened",
			"adapter", name, "from", stateToStatus(from), "open_until", until)
	case gobreaker.StateHalfOpen:
		w.metrics.SetBreakerState(name, metrics.BreakerHalfOpen)
		w.logger.Info("circuit breaker half-open, admitting one trial call", "adapter", name)
	case gobreaker.StateClosed:
		w.metrics.SetBreakerState(name, metrics.BreakerClosed)
		w.logger.Info("circuit breaker closed", "adapter", name)
	}
}

// Snapshot returns the current breaker state for an adapter, and whether a
// breaker exists yet. Breakers are created lazily, so an adapter that has
// never made a call reports no snapshot.
func (w *Wrapper) Snapshot(name string) (BreakerSnapshot, bool) {
	w.mu.Lock()
	e, ok := w.breakers[name]
	w.mu.Unlock()
	if !ok {
		return BreakerSnapshot{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return BreakerSnapshot{
		Status:              stateToStatus(e.cb.State()),
		ConsecutiveFailures: e.consecutiveFailures,
		LastFailureAt:       e.lastFailureAt,
		OpenedUntil:         e.openedUntil,
	}, true
}

func stateToStatus(s gobreaker.State) BreakerStatus {
	switch s {
	case gobreaker.StateOpen:
		return StatusOpen
	case gobreaker.StateHalfOpen:
		return StatusHalfOpen
	default:
		return StatusClosed
	}
}
