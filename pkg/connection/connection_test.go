package connection

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoffBase(t *testing.T) {
	var b Backoff

	expected := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1 * time.Second,
		1 * time.Second, // Should stay at max
	}
	for i, exp := range expected {
		if got := b.Base(i + 1); got != exp {
			t.Errorf("Base(%d) = %v, want %v", i+1, got, exp)
		}
	}
	if got := b.Base(0); got != InitialBackoff {
		t.Errorf("Base(0) = %v, want %v", got, InitialBackoff)
	}
	if got := b.Base(200); got != MaxBackoff {
		t.Errorf("Base(200) = %v, want %v", got, MaxBackoff)
	}
}

func TestBackoffJitter(t *testing.T) {
	b := DefaultBackoff()

	if got := b.Delay(1, 0); got != InitialBackoff {
		t.Errorf("Delay(1, 0) = %v, want %v", got, InitialBackoff)
	}
	upper := time.Duration(float64(InitialBackoff) * (1 + JitterFactor))
	for _, u := range []float64{0.1, 0.5, 0.999} {
		got := b.Delay(1, u)
		if got <= InitialBackoff || got > upper {
			t.Errorf("Delay(1, %v) = %v out of range (%v, %v]", u, got, InitialBackoff, upper)
		}
	}

	var noJitter Backoff
	if got := noJitter.Delay(1, 0.9); got != InitialBackoff {
		t.Errorf("Delay without jitter = %v, want %v", got, InitialBackoff)
	}
}

func TestBackoffNormalization(t *testing.T) {
	b := Backoff{
		Initial:    2 * time.Second,
		Max:        time.Second,
		Multiplier: 0.5,
		Jitter:     -1,
	}.normalized()

	if b.Max != 2*time.Second {
		t.Errorf("Max = %v, want clamp to initial", b.Max)
	}
	if b.Multiplier != BackoffMultiplier {
		t.Errorf("Multiplier = %v, want %v", b.Multiplier, BackoffMultiplier)
	}
	if b.Jitter != 0 {
		t.Errorf("Jitter = %v, want 0", b.Jitter)
	}
}

func fastBackoff() Backoff {
	return Backoff{Initial: time.Millisecond, Max: 2 * time.Millisecond}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{Backoff: fastBackoff()}, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryPermanent(t *testing.T) {
	errVersion := errors.New("unsupported version")
	calls := 0
	err := Retry(context.Background(), RetryConfig{Backoff: fastBackoff()}, func(ctx context.Context) error {
		calls++
		return Permanent(errVersion)
	})
	if !errors.Is(err, errVersion) {
		t.Errorf("Retry() = %v, want wrapped errVersion", err)
	}
	if !IsPermanent(err) {
		t.Error("IsPermanent() = false")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryMaxAttempts(t *testing.T) {
	errRefused := errors.New("connection refused")
	calls := 0
	err := Retry(context.Background(), RetryConfig{Backoff: fastBackoff(), MaxAttempts: 4}, func(ctx context.Context) error {
		calls++
		return errRefused
	})
	if !errors.Is(err, errRefused) {
		t.Errorf("Retry() = %v, want wrapped errRefused", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
}

func TestRetryContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	errRefused := errors.New("connection refused")
	err := Retry(ctx, RetryConfig{Backoff: fastBackoff()}, func(ctx context.Context) error {
		return errRefused
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Retry() = %v, want DeadlineExceeded", err)
	}
	if !errors.Is(err, errRefused) {
		t.Errorf("Retry() = %v, want wrapped last error", err)
	}
}

func TestRetryCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, RetryConfig{}, func(ctx context.Context) error {
		calls++
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() = %v, want Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestPermanentNil(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}
