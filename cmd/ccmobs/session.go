package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/imxrt-tools/ccmobs-go/pkg/config"
	"github.com/imxrt-tools/ccmobs-go/pkg/discovery"
	clog "github.com/imxrt-tools/ccmobs-go/pkg/log"
	"github.com/imxrt-tools/ccmobs-go/pkg/probe"
	"github.com/imxrt-tools/ccmobs-go/pkg/probe/remote"
	"github.com/imxrt-tools/ccmobs-go/pkg/probe/sim"
	"github.com/imxrt-tools/ccmobs-go/pkg/registry"
)

var errNoProbe = errors.New("no probe selected (use -probe, -discover or -sim)")

// sessionDeps carries what the probe adapters need besides the config.
type sessionDeps struct {
	runID  string
	trace  clog.Logger
	logger *slog.Logger

	// browser finds probe servers for -discover.
	browser discovery.Browser
}

// openSession creates the probe session selected by cfg. The session is
// not connected yet.
func openSession(ctx context.Context, cfg *config.Config, reg registry.Registry, deps sessionDeps) (probe.Session, error) {
	switch {
	case cfg.Probe.Sim:
		sc := cfg.SimTarget(reg)
		sc.Logger = deps.logger
		return sim.NewTarget(sc)

	case cfg.Probe.Address != "":
		return newRemote(cfg, cfg.Probe.Address, deps), nil

	case cfg.Probe.Discover:
		browser := deps.browser
		if browser == nil {
			browser = discovery.NewMDNSBrowser(discovery.DefaultBrowserConfig())
		}
		defer browser.Stop()

		svc, err := browser.FindProbe(ctx,
			discovery.FilterByVariant(string(reg.Variant())),
			discovery.FilterCompatible(),
		)
		if err != nil {
			return nil, fmt.Errorf("discover probe server for %s: %w", reg.Variant(), err)
		}
		addr, err := svc.Address()
		if err != nil {
			return nil, fmt.Errorf("discover probe server for %s: %w", reg.Variant(), err)
		}
		if deps.logger != nil {
			deps.logger.Info("discovered probe server", "instance", svc.InstanceName, "addr", addr, "id", svc.ID)
		}
		return newRemote(cfg, addr, deps), nil

	default:
		return nil, errNoProbe
	}
}

func newRemote(cfg *config.Config, addr string, deps sessionDeps) *remote.Client {
	return remote.NewClient(remote.ClientConfig{
		Address:     addr,
		IOTimeout:   cfg.Probe.IOTimeout,
		MaxAttempts: cfg.Probe.MaxAttempts,
		Trace:       deps.trace,
		RunID:       deps.runID,
		Logger:      deps.logger,
	})
}

// closeSession closes s if it holds resources.
func closeSession(s probe.Session) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
