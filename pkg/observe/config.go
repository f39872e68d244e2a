package observe

import (
	"fmt"
	"log/slog"
	"time"

	clog "github.com/imxrt-tools/ccmobs-go/pkg/log"
	"github.com/imxrt-tools/ccmobs-go/pkg/registry"
)

// Measurement defaults.
const (
	// DefaultSettle is the wait after routing a root before sampling.
	DefaultSettle = 100 * time.Millisecond

	// MinSettle is the shortest settle delay applied.
	MinSettle = 20 * time.Millisecond

	// DefaultWindow is the nominal sample window.
	DefaultWindow = 100 * time.Millisecond

	// DefaultSamples is the number of windows per root.
	DefaultSamples = 5

	// DefaultDivider is the observation divider programmed into the slice.
	DefaultDivider = 8

	// DefaultConnectTimeout bounds connection establishment.
	DefaultConnectTimeout = 5 * time.Second

	// DefaultIOTimeout bounds every probe operation.
	DefaultIOTimeout = 2 * time.Second

	// DefaultCeilingHz is the highest frequency any root can run at.
	// Readings above it are implausible.
	DefaultCeilingHz = 3_200_000_000
)

// Config configures a measurement run.
type Config struct {
	// Settle is the delay after selection before the counter is trusted.
	// Values below MinSettle are raised to MinSettle.
	Settle time.Duration

	// Window is the nominal length of one sample window.
	Window time.Duration

	// Samples is the number of windows measured per root.
	Samples int

	// Divider is the observation divider (1..256).
	Divider uint32

	// CeilingHz bounds plausible results. Wrap risk is judged against it
	// only for roots without a rated maximum.
	CeilingHz uint64

	// ConnectTimeout bounds Connect. Zero disables the bound.
	ConnectTimeout time.Duration

	// IOTimeout bounds each probe operation. Zero disables the bound.
	IOTimeout time.Duration

	// TimeBase times settle delays and sample windows.
	// Defaults to SystemTimeBase.
	TimeBase TimeBase

	// RunID identifies the run in trace events. Generated when empty.
	RunID string

	// Trace receives protocol and probe events. If nil, tracing is disabled.
	Trace clog.Logger

	// Recorder receives samples and finished rows. Optional.
	Recorder Recorder

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with conservative defaults.
func DefaultConfig() Config {
	return Config{
		Settle:         DefaultSettle,
		Window:         DefaultWindow,
		Samples:        DefaultSamples,
		Divider:        DefaultDivider,
		CeilingHz:      DefaultCeilingHz,
		ConnectTimeout: DefaultConnectTimeout,
		IOTimeout:      DefaultIOTimeout,
	}
}

// Validate checks the timing parameters.
func (c *Config) Validate() error {
	switch {
	case c.Window <= 0:
		return c.invalid("window must be positive, got %v", c.Window)
	case c.Samples < 1:
		return c.invalid("samples must be at least 1, got %d", c.Samples)
	case c.Divider < 1 || c.Divider > registry.MaxDivider:
		return c.invalid("divider must be 1..%d, got %d", registry.MaxDivider, c.Divider)
	case c.Settle < 0:
		return c.invalid("settle must not be negative, got %v", c.Settle)
	case c.ConnectTimeout < 0 || c.IOTimeout < 0:
		return c.invalid("timeouts must not be negative")
	}
	return nil
}

func (c *Config) invalid(format string, args ...any) error {
	return &ConfigurationError{Err: fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)}
}

// normalized returns a copy with defaults filled in.
func (c Config) normalized() Config {
	if c.Settle < MinSettle {
		c.Settle = MinSettle
	}
	if c.CeilingHz == 0 {
		c.CeilingHz = DefaultCeilingHz
	}
	if c.TimeBase == nil {
		c.TimeBase = SystemTimeBase{}
	}
	return c
}
