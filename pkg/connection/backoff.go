package connection

import (
	"math"
	"time"
)

// Backoff defaults for probe connect retries.
const (
	// InitialBackoff is the delay after the first failed attempt.
	InitialBackoff = 100 * time.Millisecond

	// MaxBackoff is the maximum delay between attempts.
	MaxBackoff = 1 * time.Second

	// BackoffMultiplier is the factor by which backoff increases.
	BackoffMultiplier = 2.0

	// JitterFactor is the maximum jitter as a fraction of base delay.
	JitterFactor = 0.25
)

// Backoff describes the delay schedule between connect attempts.
// Zero fields take the package defaults; a zero Backoff is the default
// schedule without jitter.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64

	// Seed for the jitter source. Zero seeds from the wall clock.
	Seed int64
}

// DefaultBackoff returns the default schedule with jitter.
func DefaultBackoff() Backoff {
	return Backoff{Jitter: JitterFactor}
}

func (b Backoff) normalized() Backoff {
	if b.Initial <= 0 {
		b.Initial = InitialBackoff
	}
	if b.Max <= 0 {
		b.Max = MaxBackoff
	}
	if b.Max < b.Initial {
		b.Max = b.Initial
	}
	if b.Multiplier <= 1 {
		b.Multiplier = BackoffMultiplier
	}
	if b.Jitter < 0 {
		b.Jitter = 0
	}
	return b
}

// Base returns the delay before jitter after the given failed attempt
// (1-based).
func (b Backoff) Base(attempt int) time.Duration {
	b = b.normalized()
	if attempt < 1 {
		attempt = 1
	}
	d := float64(b.Initial) * math.Pow(b.Multiplier, float64(attempt-1))
	if d >= float64(b.Max) {
		return b.Max
	}
	return time.Duration(d)
}

// Delay returns Base(attempt) plus jitter, where u is a uniform sample
// in [0, 1).
func (b Backoff) Delay(attempt int, u float64) time.Duration {
	base := b.Base(attempt)
	jitter := b.normalized().Jitter
	if jitter == 0 {
		return base
	}
	return base + time.Duration(float64(base)*jitter*u)
}
