package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/verdantio/grow-core/internal/controller"
	"github.com/verdantio/grow-core/internal/infrastructure/config"
	"github.com/verdantio/grow-core/internal/infrastructure/metrics"
)

// Logger defines the logging interface used by the Wrapper.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// RetryConfig bounds one wrapped operation. It is supplied per call site,
// not globally, so cheap probes and expensive connects can differ.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BaseDelay is the wait before the first retry.
	BaseDelay time.Duration

	// BackoffMultiplier grows the wait per attempt
	// (wait = BaseDelay * BackoffMultiplier^attempt).
	BackoffMultiplier float64

	// Timeout bounds each individual attempt. Every retry gets a fresh
	// timeout window.
	Timeout time.Duration
}

// RetryDefaults builds the default RetryConfig from loaded configuration.
func RetryDefaults(c config.ResilienceConfig) RetryConfig {
	return RetryConfig{
		MaxRetries:        c.MaxRetries,
		BaseDelay:         c.BaseDelay(),
		BackoffMultiplier: c.BackoffMultiplier,
		Timeout:           c.RetryTimeout(),
	}
}

// Wrapper executes outbound vendor calls under a per-attempt timeout, a
// classified exponential-backoff retry policy, and a per-adapter circuit
// breaker.
//
// Breakers are keyed by adapter name and created lazily on first use. All
// state is in-memory; a process restart starts every breaker closed.
type Wrapper struct {
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	breakers map[string]*breakerEntry

	metrics *metrics.Metrics
	logger  Logger
}

// Option customises a Wrapper.
type Option func(*Wrapper)

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Wrapper) { w.metrics = m }
}

// WithLogger attaches a logger.
func WithLogger(l Logger) Option {
	return func(w *Wrapper) { w.logger = l }
}

// New creates a Wrapper.
//
// Parameters:
//   - threshold: Consecutive failures that trip a breaker open
//   - cooldown: How long an open breaker rejects calls before half-open
//   - opts: Optional metrics and logging
//
// Returns:
//   - *Wrapper: Ready for use; breakers are created on demand
func New(threshold int, cooldown time.Duration, opts ...Option) *Wrapper {
	if threshold < 1 {
		threshold = 1
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	w := &Wrapper{
		threshold: threshold,
		cooldown:  cooldown,
		breakers:  make(map[string]*breakerEntry),
		logger:    noopLogger{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Do runs fn under the adapter's circuit breaker with retry and timeout.
//
// fn receives a context bounded by rc.Timeout; each retry gets a fresh
// window. Transient failures (network, timeout, or adapter-marked via
// Transient) are retried up to rc.MaxRetries with exponential backoff;
// everything else fails on the first attempt. When the breaker is open the
// call fails immediately with controller.ErrCircuitOpen and no network I/O
// happens.
//
// Parameters:
//   - ctx: Caller's context; cancellation stops retries between attempts
//   - adapter: Breaker key and metrics label, normally the adapter name
//   - op: Operation name for logging
//   - rc: Retry policy for this call site
//   - fn: The network operation
//
// Returns:
//   - error: nil, a classified taxonomy error, or ErrCircuitOpen
func (w *Wrapper) Do(ctx context.Context, adapter, op string, rc RetryConfig, fn func(context.Context) error) error {
	e := w.entry(adapter)
	log := w.logger
	callID := uuid.NewString()[:8]
	start := time.Now()

	_, err := e.cb.Execute(func() (any, error) {
		return nil, w.attempt(ctx, adapter, rc, fn)
	})

	outcome := "success"
	switch {
	case err == nil:
		e.recordSuccess()
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		// Rejected without any I/O; the streak is untouched.
		outcome = "circuit_open"
		err = fmt.Errorf("%w: adapter %s", controller.ErrCircuitOpen, adapter)
	default:
		outcome = "failure"
		e.recordFailure(time.Now())
	}

	w.metrics.ObserveRequest(adapter, outcome, time.Since(start).Seconds())
	log.Debug("vendor call finished",
		"adapter", adapter, "op", op, "call_id", callID,
		"outcome", outcome, "duration_ms", time.Since(start).Milliseconds())
	return err
}

// attempt runs the retry loop for one breaker-admitted call.
func (w *Wrapper) attempt(ctx context.Context, adapter string, rc RetryConfig, fn func(context.Context) error) error {
	operation := func() error {
		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if rc.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, rc.Timeout)
		}
		defer cancel()

		err := fn(attemptCtx)
		if err == nil {
			return nil
		}

		err = Classify(err)
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = rc.BaseDelay
	bo.Multiplier = rc.BackoffMultiplier
	// Delays follow baseDelay * multiplier^attempt exactly, no jitter.
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	notify := func(err error, wait time.Duration) {
		w.metrics.ObserveRetry(adapter)
		w.logger.Debug("retrying vendor call", "adapter", adapter, "error", err.Error(), "wait", wait.String())
	}

	return backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(rc.MaxRetries)), ctx),
		notify)
}
