package observe

import (
	"context"
	"time"
)

// TimeBase is the reference clock sample windows are timed against.
// It must be independent of the observed clocks.
type TimeBase interface {
	// Now returns the current time. Differences between readings are used
	// as the measured window length.
	Now() time.Time

	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemTimeBase uses the host monotonic clock.
type SystemTimeBase struct{}

// Now returns time.Now.
func (SystemTimeBase) Now() time.Time { return time.Now() }

// Sleep waits for d or until ctx is done.
func (SystemTimeBase) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
