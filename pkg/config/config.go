package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/imxrt-tools/ccmobs-go/pkg/observe"
	"github.com/imxrt-tools/ccmobs-go/pkg/probe/sim"
	"github.com/imxrt-tools/ccmobs-go/pkg/registry"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// DefaultMaxAttempts is the number of remote connect attempts.
const DefaultMaxAttempts = 3

// Config is a complete run configuration.
type Config struct {
	Probe   ProbeConfig   `yaml:"probe"`
	Observe ObserveConfig `yaml:"observe"`
	Sim     SimConfig     `yaml:"sim"`
}

// ProbeConfig selects and bounds the probe connection.
type ProbeConfig struct {
	// Address of a remote probe server ("host:port").
	Address string `yaml:"address"`

	// Discover browses mDNS for a probe server serving the variant.
	Discover bool `yaml:"discover"`

	// Sim measures a simulated target.
	Sim bool `yaml:"sim"`

	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// IOTimeout bounds every probe operation.
	IOTimeout time.Duration `yaml:"io_timeout"`

	// MaxAttempts is the number of remote connect attempts.
	MaxAttempts int `yaml:"max_attempts"`
}

// ObserveConfig holds the measurement parameters.
type ObserveConfig struct {
	Variant   string        `yaml:"variant"`
	Roots     []string      `yaml:"roots"`
	Settle    time.Duration `yaml:"settle"`
	Window    time.Duration `yaml:"window"`
	Samples   int           `yaml:"samples"`
	Divider   uint32        `yaml:"divider"`
	CeilingHz uint64        `yaml:"ceiling_hz"`
}

// SimConfig configures the simulated target.
type SimConfig struct {
	// JitterPPM bounds the per-read frequency deviation.
	JitterPPM float64 `yaml:"jitter_ppm"`

	// Seed seeds the jitter source. Zero picks a time-based seed.
	Seed int64 `yaml:"seed"`

	// Frequencies overrides root frequencies by registry name.
	Frequencies map[string]uint64 `yaml:"frequencies"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Probe: ProbeConfig{
			ConnectTimeout: observe.DefaultConnectTimeout,
			IOTimeout:      observe.DefaultIOTimeout,
			MaxAttempts:    DefaultMaxAttempts,
		},
		Observe: ObserveConfig{
			Settle:    observe.DefaultSettle,
			Window:    observe.DefaultWindow,
			Samples:   observe.DefaultSamples,
			Divider:   observe.DefaultDivider,
			CeilingHz: observe.DefaultCeilingHz,
		},
	}
}

// LoadError reports a configuration file that could not be used.
type LoadError struct {
	File    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.File != "" {
		msg = e.File + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error { return e.Cause }

// Parse decodes YAML over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, &LoadError{Message: "failed to parse YAML", Cause: err}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, &LoadError{Message: "validation failed", Cause: err}
	}
	return cfg, nil
}

// Load reads and parses a configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}

	cfg, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
		}
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges. The variant and root names are resolved
// later, against the registry, so that errors list the valid names.
func (c *Config) Validate() error {
	switch {
	case c.Probe.sources() > 1:
		return invalid("probe: address, discover and sim are mutually exclusive")
	case c.Probe.ConnectTimeout < 0:
		return invalid("probe.connect_timeout must not be negative, got %v", c.Probe.ConnectTimeout)
	case c.Probe.IOTimeout < 0:
		return invalid("probe.io_timeout must not be negative, got %v", c.Probe.IOTimeout)
	case c.Probe.MaxAttempts < 1:
		return invalid("probe.max_attempts must be at least 1, got %d", c.Probe.MaxAttempts)
	case c.Observe.Settle < 0:
		return invalid("observe.settle must not be negative, got %v", c.Observe.Settle)
	case c.Observe.Window <= 0:
		return invalid("observe.window must be positive, got %v", c.Observe.Window)
	case c.Observe.Samples < 1:
		return invalid("observe.samples must be at least 1, got %d", c.Observe.Samples)
	case c.Observe.Divider < 1 || c.Observe.Divider > registry.MaxDivider:
		return invalid("observe.divider must be 1..%d, got %d", registry.MaxDivider, c.Observe.Divider)
	case c.Sim.JitterPPM < 0:
		return invalid("sim.jitter_ppm must not be negative, got %v", c.Sim.JitterPPM)
	}
	return nil
}

// sources counts the selected probe sources.
func (p *ProbeConfig) sources() int {
	n := 0
	for _, set := range []bool{p.Address != "", p.Discover, p.Sim} {
		if set {
			n++
		}
	}
	return n
}

// HasSource reports whether a probe source is selected.
func (p *ProbeConfig) HasSource() bool {
	return p.sources() > 0
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

// ObserveConfig converts the file values into a measurement Config.
// Run-scoped fields (TimeBase, Trace, Recorder, Logger) are left for the
// caller.
func (c *Config) ObserveConfig() observe.Config {
	cfg := observe.DefaultConfig()
	cfg.Settle = c.Observe.Settle
	cfg.Window = c.Observe.Window
	cfg.Samples = c.Observe.Samples
	cfg.Divider = c.Observe.Divider
	cfg.CeilingHz = c.Observe.CeilingHz
	cfg.ConnectTimeout = c.Probe.ConnectTimeout
	cfg.IOTimeout = c.Probe.IOTimeout
	return cfg
}

// SimTarget returns the simulated target configuration for reg.
func (c *Config) SimTarget(reg registry.Registry) sim.Config {
	seed := c.Sim.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return sim.Config{
		Registry:    reg,
		Frequencies: c.Sim.Frequencies,
		JitterPPM:   c.Sim.JitterPPM,
		Seed:        seed,
	}
}
