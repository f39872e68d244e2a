// Command ccmobs-probed serves a simulated i.MX RT target to ccmobs over
// the remote probe protocol.
//
// The server owns one target; the first client to complete the hello
// exchange holds it until it disconnects. The server is advertised via
// mDNS so that "ccmobs -discover" finds it.
//
// Usage:
//
//	ccmobs-probed [flags]
//
// Examples:
//
//	# Serve an imxrt1170 on the default port
//	ccmobs-probed -variant imxrt1170
//
//	# Serve an imxrt1180 with 50 ppm of frequency jitter, without mDNS
//	ccmobs-probed -variant imxrt1180 -jitter-ppm 50 -advertise=false
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/imxrt-tools/ccmobs-go/pkg/config"
	"github.com/imxrt-tools/ccmobs-go/pkg/discovery"
	"github.com/imxrt-tools/ccmobs-go/pkg/probe/remote"
	"github.com/imxrt-tools/ccmobs-go/pkg/probe/sim"
	"github.com/imxrt-tools/ccmobs-go/pkg/registry"
	"github.com/imxrt-tools/ccmobs-go/pkg/version"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr, nil)
	stop()
	os.Exit(code)
}

type options struct {
	listen     string
	variant    string
	configFile string
	advertise  bool
	iface      string
	jitterPPM  float64
	logLevel   string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}

	fs := flag.NewFlagSet("ccmobs-probed", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.listen, "listen", fmt.Sprintf(":%d", discovery.DefaultPort), "Listen address")
	fs.StringVar(&opts.variant, "variant", string(registry.IMXRT1170), "MCU variant to simulate")
	fs.StringVar(&opts.configFile, "config", "", "YAML configuration file (sim section)")
	fs.BoolVar(&opts.advertise, "advertise", true, "Advertise the server via mDNS")
	fs.StringVar(&opts.iface, "interface", "", "Network interface for mDNS (default: all)")
	fs.Float64Var(&opts.jitterPPM, "jitter-ppm", -1, "Frequency jitter in ppm (default: config value)")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return opts, nil
}

func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}

// run serves until ctx is done. listening, if set, is called once the
// server accepts connections.
func run(ctx context.Context, args []string, stderr io.Writer, listening func(net.Addr)) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	logger, err := newLogger(opts.logLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	cfg := config.Default()
	if opts.configFile != "" {
		if cfg, err = config.Load(opts.configFile); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitUsage
		}
	}
	if opts.jitterPPM >= 0 {
		cfg.Sim.JitterPPM = opts.jitterPPM
	}

	variant, err := registry.ParseVariant(opts.variant)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	reg, err := registry.ForVariant(variant)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	simCfg := cfg.SimTarget(reg)
	simCfg.NoCallLog = true
	simCfg.Logger = logger
	target, err := sim.NewTarget(simCfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	srv, err := remote.NewServer(remote.ServerConfig{
		Session: target,
		Address: opts.listen,
		Logger:  logger,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	if err := srv.Start(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer srv.Stop()

	logger.Info("serving simulated target",
		slog.String("variant", string(variant)),
		slog.Int("revision", reg.Revision()),
		slog.Float64("jitter_ppm", simCfg.JitterPPM))

	if opts.advertise {
		adv := discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{
			Interface: opts.iface,
			TTL:       discovery.DefaultTTL,
		})
		info := &discovery.ProbeInfo{
			ID:       srv.ID(),
			Variant:  string(variant),
			Protocol: version.MustCurrent().Protocol(),
			Port:     uint16(srv.Port()),
		}
		if err := adv.Advertise(ctx, info); err != nil {
			logger.Warn("mDNS advertising failed", slog.String("error", err.Error()))
		} else {
			logger.Info("advertising", slog.String("instance", info.InstanceName()), slog.String("service", discovery.ServiceTypeProbe))
			defer adv.Stop()
		}
	}

	if listening != nil {
		listening(srv.Addr())
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return exitOK
}
