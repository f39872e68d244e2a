package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/imxrt-tools/ccmobs-go/cmd/ccmobs/interactive"
	"github.com/imxrt-tools/ccmobs-go/pkg/config"
	"github.com/imxrt-tools/ccmobs-go/pkg/discovery"
	clog "github.com/imxrt-tools/ccmobs-go/pkg/log"
	"github.com/imxrt-tools/ccmobs-go/pkg/metrics"
	"github.com/imxrt-tools/ccmobs-go/pkg/observe"
	"github.com/imxrt-tools/ccmobs-go/pkg/probe"
	"github.com/imxrt-tools/ccmobs-go/pkg/registry"
)

// app is one invocation of the command.
type app struct {
	opts   *options
	cfg    config.Config
	reg    registry.Registry
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer

	// browser overrides mDNS discovery in tests.
	browser discovery.Browser
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return runWith(ctx, args, stdout, stderr, nil)
}

func runWith(ctx context.Context, args []string, stdout, stderr io.Writer, browser discovery.Browser) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return exitUsage
	}

	a := &app{opts: opts, stdout: stdout, stderr: stderr, browser: browser}
	if err := a.setup(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	if opts.list {
		for _, name := range a.reg.Names() {
			fmt.Fprintln(stdout, name)
		}
		return exitOK
	}

	if opts.interactive {
		return a.runInteractive(ctx)
	}
	return a.runOnce(ctx)
}

// setup loads the configuration and resolves the variant.
func (a *app) setup() error {
	logger, err := newLogger(a.opts.logLevel, a.stderr)
	if err != nil {
		return err
	}
	a.logger = logger

	a.cfg = config.Default()
	if a.opts.configFile != "" {
		if a.cfg, err = config.Load(a.opts.configFile); err != nil {
			return err
		}
	}
	a.opts.apply(&a.cfg)
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	if a.cfg.Observe.Variant == "" {
		return fmt.Errorf("%w: variant required", errUsage)
	}
	a.reg, err = observe.ResolveVariant(a.cfg.Observe.Variant)
	if err != nil {
		return err
	}
	a.logger.Debug("register map loaded", "variant", a.reg.Variant(), "revision", a.reg.Revision(), "probe", a.reg.ProbeTarget())

	if !a.opts.list && !a.cfg.Probe.HasSource() {
		return errNoProbe
	}
	return nil
}

// runOnce measures the configured roots and prints the result.
func (a *app) runOnce(ctx context.Context) int {
	runID := uuid.NewString()

	// Root names are checked before any probe I/O.
	if _, err := observe.NewRequest(a.reg, a.cfg.Observe.Roots); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return exitUsage
	}

	trace, closeTrace, err := a.openTrace()
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer closeTrace()

	var collector *metrics.Collector
	oc := a.observeConfig(runID, trace)
	if a.opts.metricsFile != "" {
		collector = metrics.NewCollector()
		oc.Recorder = collector
	}

	session, err := openSession(ctx, &a.cfg, a.reg, sessionDeps{runID: runID, trace: trace, logger: a.logger, browser: a.browser})
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		if errors.Is(err, errNoProbe) {
			return exitUsage
		}
		return exitFailure
	}
	defer closeSession(session)

	set, err := observe.Measure(ctx, session, a.reg, a.cfg.Observe.Roots, oc)
	if set != nil {
		if rerr := render(a.stdout, set, a.opts.format); rerr != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", rerr)
		}
	}
	if collector != nil {
		if werr := collector.WriteTextfile(a.opts.metricsFile); werr != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", werr)
		}
	}
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
	}
	return exitCode(set, err)
}

// runInteractive opens the probe once and hands it to the shell.
func (a *app) runInteractive(ctx context.Context) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	trace, closeTrace, err := a.openTrace()
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer closeTrace()

	runID := uuid.NewString()
	session, err := openSession(ctx, &a.cfg, a.reg, sessionDeps{runID: runID, trace: trace, logger: a.logger, browser: a.browser})
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer closeSession(session)

	shell, err := interactive.New(interactive.Config{
		Registry: a.reg,
		Runner:   &measurer{session: session, reg: a.reg},
		Observe:  a.observeConfig("", trace),
		Roots:    a.cfg.Observe.Roots,
		Render: func(w io.Writer, set *observe.MeasurementSet) error {
			return render(w, set, a.opts.format)
		},
		Out: a.stdout,
	})
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return exitFailure
	}
	if err := shell.Run(ctx, cancel); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return exitFailure
	}
	return exitOK
}

// observeConfig builds the measurement config for one run.
func (a *app) observeConfig(runID string, trace clog.Logger) observe.Config {
	oc := a.cfg.ObserveConfig()
	oc.RunID = runID
	oc.Trace = trace
	oc.Logger = a.logger
	return oc
}

// openTrace opens the trace capture. At debug level trace events are also
// written to the log.
func (a *app) openTrace() (clog.Logger, func(), error) {
	var loggers []clog.Logger
	closeFn := func() {}

	if a.opts.traceFile != "" {
		fl, err := clog.NewFileLogger(a.opts.traceFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open trace file: %w", err)
		}
		loggers = append(loggers, fl)
		closeFn = func() {
			if err := fl.Close(); err != nil {
				a.logger.Warn("trace file incomplete", "path", a.opts.traceFile, "error", err)
				return
			}
			a.logger.Debug("trace written", "path", a.opts.traceFile, "events", fl.Events())
		}
	}
	if a.logger.Enabled(context.Background(), slog.LevelDebug) {
		loggers = append(loggers, clog.NewSlogAdapter(a.logger))
	}

	switch len(loggers) {
	case 0:
		return nil, closeFn, nil
	case 1:
		return loggers[0], closeFn, nil
	default:
		return clog.NewMultiLogger(loggers...), closeFn, nil
	}
}

// exitCode maps a run outcome to the process exit status.
func exitCode(set *observe.MeasurementSet, err error) int {
	var cerr *observe.ConfigurationError
	switch {
	case errors.As(err, &cerr):
		return exitUsage
	case err != nil:
		return exitFailure
	case set == nil || set.Measured() == 0:
		return exitFailure
	default:
		return exitOK
	}
}

// measurer runs measurements on the shell's session.
type measurer struct {
	session probe.Session
	reg     registry.Registry
}

func (m *measurer) Measure(ctx context.Context, names []string, cfg observe.Config) (*observe.MeasurementSet, error) {
	cfg.RunID = uuid.NewString()
	return observe.Measure(ctx, m.session, m.reg, names, cfg)
}

var _ interactive.Runner = (*measurer)(nil)
