package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// ConnectFunc makes a single connection attempt.
type ConnectFunc func(ctx context.Context) error

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so that Retry returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// RetryConfig configures Retry.
type RetryConfig struct {
	// Backoff is the delay schedule.
	Backoff Backoff

	// MaxAttempts bounds the number of attempts. Zero means until ctx is done.
	MaxAttempts int

	// Logger for retry diagnostics. Nil disables logging.
	Logger *slog.Logger
}

// Retry calls fn until it succeeds, returns a permanent error, runs out of
// attempts, or ctx is done. The returned error wraps the last attempt's
// error, and ctx.Err() when the context ended the retries.
func Retry(ctx context.Context, cfg RetryConfig, fn ConnectFunc) error {
	seed := cfg.Backoff.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	var lastErr error
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if IsPermanent(err) {
			return err
		}
		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts {
			return fmt.Errorf("connect failed after %d attempts: %w", attempt, lastErr)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ctx.Err(), lastErr)
		}

		delay := cfg.Backoff.Delay(attempt, rng.Float64())
		if cfg.Logger != nil {
			cfg.Logger.Debug("connect attempt failed, retrying",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("error", err.Error()))
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", ctx.Err(), lastErr)
		case <-timer.C:
		}
	}
}
