package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/verdantio/grow-core/internal/controller"
)

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:        maxRetries,
		BaseDelay:         time.Millisecond,
		BackoffMultiplier: 2.0,
		Timeout:           time.Second,
	}
}

func TestDoSuccess(t *testing.T) {
	w := New(3, time.Minute)

	calls := 0
	err := w.Do(context.Background(), "vendor", "read", fastRetry(3), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	w := New(10, time.Minute)

	calls := 0
	err := w.Do(context.Background(), "vendor", "read", fastRetry(3), func(context.Context) error {
		calls++
		if calls < 3 {
			return Transient(errors.New("flaky upstream"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (two retries then success)", calls)
	}
}

func TestDoPermanentErrorNotRetried(t *testing.T) {
	w := New(10, time.Minute)

	calls := 0
	authErr := controller.ErrAuthenticationFailed
	err := w.Do(context.Background(), "vendor", "connect", fastRetry(5), func(context.Context) error {
		calls++
		return authErr
	})
	if !errors.Is(err, controller.ErrAuthenticationFailed) {
		t.Fatalf("Do() error = %v, want ErrAuthenticationFailed", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want exactly 1 for a non-transient error", calls)
	}
}

func TestDoRetriesExhausted(t *testing.T) {
	w := New(100, time.Minute)

	calls := 0
	err := w.Do(context.Background(), "vendor", "read", fastRetry(2), func(context.Context) error {
		calls++
		return Transient(errors.New("still down"))
	})
	if err == nil {
		t.Fatal("Do() should fail after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (initial + 2 retries)", calls)
	}
}

func TestDoPerAttemptTimeout(t *testing.T) {
	w := New(10, time.Minute)

	rc := RetryConfig{
		MaxRetries:        0,
		BaseDelay:         time.Millisecond,
		BackoffMultiplier: 2.0,
		Timeout:           20 * time.Millisecond,
	}

	err := w.Do(context.Background(), "vendor", "read", rc, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, controller.ErrNetworkTimeout) {
		t.Fatalf("Do() error = %v, want ErrNetworkTimeout", err)
	}
}

func TestBreakerTripAndRecovery(t *testing.T) {
	const threshold = 2
	cooldown := 50 * time.Millisecond
	w := New(threshold, cooldown)
	rc := fastRetry(0)
	ctx := context.Background()

	boom := errors.New("gateway on fire")

	// Trip the breaker with consecutive failures.
	for i := 0; i < threshold; i++ {
		if err := w.Do(ctx, "vendor", "read", rc, func(context.Context) error { return boom }); err == nil {
			t.Fatal("expected failure")
		}
	}

	snap, ok := w.Snapshot("vendor")
	if !ok || snap.Status != StatusOpen {
		t.Fatalf("breaker status = %v (ok=%v), want open", snap.Status, ok)
	}
	if snap.OpenedUntil.IsZero() || snap.LastFailureAt.IsZero() {
		t.Error("open breaker should carry OpenedUntil and LastFailureAt")
	}

	// While open: immediate CircuitOpen, zero network calls.
	calls := 0
	err := w.Do(ctx, "vendor", "read", rc, func(context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, controller.ErrCircuitOpen) {
		t.Fatalf("Do() while open error = %v, want ErrCircuitOpen", err)
	}
	if calls != 0 {
		t.Errorf("calls while open = %d, want 0", calls)
	}

	// After the cooldown a single trial call is admitted; success closes.
	time.Sleep(cooldown + 20*time.Millisecond)

	err = w.Do(ctx, "vendor", "read", rc, func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("trial call error = %v", err)
	}
	if calls != 1 {
		t.Errorf("trial calls = %d, want 1", calls)
	}

	snap, _ = w.Snapshot("vendor")
	if snap.Status != StatusClosed {
		t.Errorf("status after trial success = %v, want closed", snap.Status)
	}
	if snap.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0 after reset", snap.ConsecutiveFailures)
	}
}

// The failure streak must survive the closed-to-open transition even
// though gobreaker resets its own counts there, and breaker rejections
// (no I/O) must not inflate it.
func TestSnapshotFailureStreakWhileOpen(t *testing.T) {
	const threshold = 3
	w := New(threshold, time.Minute)
	rc := fastRetry(0)
	ctx := context.Background()
	boom := errors.New("gateway on fire")

	for i := 0; i < threshold; i++ {
		_ = w.Do(ctx, "vendor", "read", rc, func(context.Context) error { return boom })
	}

	snap, ok := w.Snapshot("vendor")
	if !ok || snap.Status != StatusOpen {
		t.Fatalf("breaker status = %v (ok=%v), want open", snap.Status, ok)
	}
	if snap.ConsecutiveFailures != threshold {
		t.Errorf("ConsecutiveFailures = %d, want %d while open", snap.ConsecutiveFailures, threshold)
	}

	// A rejected call while open performs no I/O and leaves the streak.
	_ = w.Do(ctx, "vendor", "read", rc, func(context.Context) error { return nil })
	snap, _ = w.Snapshot("vendor")
	if snap.ConsecutiveFailures != threshold {
		t.Errorf("ConsecutiveFailures = %d after open rejection, want %d", snap.ConsecutiveFailures, threshold)
	}
}

func TestBreakerReopensOnTrialFailure(t *testing.T) {
	cooldown := 40 * time.Millisecond
	w := New(1, cooldown)
	rc := fastRetry(0)
	ctx := context.Background()
	boom := errors.New("still broken")

	_ = w.Do(ctx, "vendor", "read", rc, func(context.Context) error { return boom })

	time.Sleep(cooldown + 10*time.Millisecond)

	// Trial call fails: breaker reopens with a fresh cooldown.
	_ = w.Do(ctx, "vendor", "read", rc, func(context.Context) error { return boom })

	snap, _ := w.Snapshot("vendor")
	if snap.Status != StatusOpen {
		t.Fatalf("status after failed trial = %v, want open", snap.Status)
	}

	if err := w.Do(ctx, "vendor", "read", rc, func(context.Context) error { return nil }); !errors.Is(err, controller.ErrCircuitOpen) {
		t.Errorf("Do() error = %v, want ErrCircuitOpen after reopen", err)
	}
}

func TestBreakersAreKeyedPerAdapter(t *testing.T) {
	w := New(1, time.Minute)
	rc := fastRetry(0)
	ctx := context.Background()

	_ = w.Do(ctx, "flaky-vendor", "read", rc, func(context.Context) error {
		return errors.New("down")
	})

	// A different adapter is unaffected by flaky-vendor's open breaker.
	if err := w.Do(ctx, "healthy-vendor", "read", rc, func(context.Context) error { return nil }); err != nil {
		t.Errorf("healthy adapter tripped by foreign breaker: %v", err)
	}
}

func TestSnapshotUnknownAdapter(t *testing.T) {
	w := New(3, time.Minute)
	if _, ok := w.Snapshot("never-called"); ok {
		t.Error("Snapshot() for unused adapter should report no breaker")
	}
}

func TestDoParentContextCancelStopsRetries(t *testing.T) {
	w := New(10, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	rc := RetryConfig{
		MaxRetries:        50,
		BaseDelay:         10 * time.Millisecond,
		BackoffMultiplier: 1.0,
		Timeout:           time.Second,
	}
	err := w.Do(ctx, "vendor", "read", rc, func(context.Context) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return Transient(errors.New("down"))
	})
	if err == nil {
		t.Fatal("Do() should fail once the caller cancels")
	}
	if calls > 3 {
		t.Errorf("calls = %d, retries should stop promptly after cancel", calls)
	}
}
