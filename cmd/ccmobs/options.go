package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/imxrt-tools/ccmobs-go/pkg/config"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

var errUsage = errors.New("usage error")

const usageHeader = `ccmobs - i.MX RT clock root frequency measurement

Usage:
  ccmobs [flags] <variant> [clock_root_name ...]

Flags:
`

// options holds the parsed command line.
type options struct {
	list        bool
	probe       string
	discover    bool
	sim         bool
	settle      time.Duration
	window      time.Duration
	samples     int
	divider     uint
	connTimeout time.Duration
	ioTimeout   time.Duration
	configFile  string
	format      format
	traceFile   string
	metricsFile string
	logLevel    string
	interactive bool

	variant string
	roots   []string

	// set records the flags given explicitly.
	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{set: make(map[string]bool)}
	defaults := config.Default()

	fs := flag.NewFlagSet("ccmobs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usageHeader)
		fs.PrintDefaults()
	}

	var formatName string
	fs.BoolVar(&opts.list, "list", false, "List the clock roots of the variant and exit")
	fs.StringVar(&opts.probe, "probe", "", "Remote probe server address (host:port)")
	fs.BoolVar(&opts.discover, "discover", false, "Find a probe server for the variant via mDNS")
	fs.BoolVar(&opts.sim, "sim", false, "Measure a simulated target")
	fs.DurationVar(&opts.settle, "settle", defaults.Observe.Settle, "Settle delay after selecting a root (min 20ms)")
	fs.DurationVar(&opts.window, "window", defaults.Observe.Window, "Sample window length")
	fs.IntVar(&opts.samples, "samples", defaults.Observe.Samples, "Samples per clock root")
	fs.UintVar(&opts.divider, "divider", uint(defaults.Observe.Divider), "Observation divider (1-256)")
	fs.DurationVar(&opts.connTimeout, "connect-timeout", defaults.Probe.ConnectTimeout, "Probe connect timeout")
	fs.DurationVar(&opts.ioTimeout, "io-timeout", defaults.Probe.IOTimeout, "Probe operation timeout")
	fs.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	fs.StringVar(&formatName, "format", string(formatTable), "Output format: table, json, csv")
	fs.StringVar(&opts.traceFile, "trace", "", "Write a trace capture (.ctrace) to this file")
	fs.StringVar(&opts.metricsFile, "metrics-textfile", "", "Write Prometheus metrics to this file")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	fs.BoolVar(&opts.interactive, "interactive", false, "Start an interactive shell")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	f, err := parseFormat(formatName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	opts.format = f

	if n := countTrue(opts.probe != "", opts.discover, opts.sim); n > 1 {
		return nil, fmt.Errorf("%w: -probe, -discover and -sim are mutually exclusive", errUsage)
	}

	if fs.NArg() > 0 {
		opts.variant = fs.Arg(0)
		opts.roots = fs.Args()[1:]
	}
	return opts, nil
}

// apply overrides file values with explicitly given flags.
func (o *options) apply(cfg *config.Config) {
	if o.probe != "" || o.discover || o.sim {
		cfg.Probe.Address = o.probe
		cfg.Probe.Discover = o.discover
		cfg.Probe.Sim = o.sim
	}
	if o.set["settle"] {
		cfg.Observe.Settle = o.settle
	}
	if o.set["window"] {
		cfg.Observe.Window = o.window
	}
	if o.set["samples"] {
		cfg.Observe.Samples = o.samples
	}
	if o.set["divider"] {
		cfg.Observe.Divider = uint32(min(o.divider, 1<<32-1))
	}
	if o.set["connect-timeout"] {
		cfg.Probe.ConnectTimeout = o.connTimeout
	}
	if o.set["io-timeout"] {
		cfg.Probe.IOTimeout = o.ioTimeout
	}
	if o.variant != "" {
		cfg.Observe.Variant = o.variant
	}
	if len(o.roots) > 0 {
		cfg.Observe.Roots = o.roots
	}
}

func countTrue(vals ...bool) int {
	n := 0
	for _, v := range vals {
		if v {
			n++
		}
	}
	return n
}

// newLogger creates the operational logger on w.
func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil, fmt.Errorf("%w: invalid log level %q (must be debug, info, warn or error)", errUsage, level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}
