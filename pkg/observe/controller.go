package observe

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/imxrt-tools/ccmobs-go/pkg/probe"
	"github.com/imxrt-tools/ccmobs-go/pkg/registry"
)

// Controller routes clock roots into the observation peripheral.
// At most one root is selected at a time.
type Controller struct {
	port     port
	reg      registry.Registry
	layout   registry.Layout
	divider  uint32
	settle   time.Duration
	timeBase TimeBase
	logger   *slog.Logger

	mu       sync.Mutex
	selected *registry.Descriptor
}

// NewController creates a controller for the variant described by reg.
func NewController(session probe.Session, reg registry.Registry, cfg Config) *Controller {
	cfg = cfg.normalized()
	return &Controller{
		port:     port{session: session, timeout: cfg.IOTimeout},
		reg:      reg,
		layout:   reg.Layout(),
		divider:  cfg.Divider,
		settle:   cfg.Settle,
		timeBase: cfg.TimeBase,
		logger:   cfg.Logger,
	}
}

// Selected returns the currently selected root.
func (c *Controller) Selected() (registry.Descriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return registry.Descriptor{}, false
	}
	return *c.selected, true
}

// Select routes d into its slice and starts the slice counter. A previously
// selected root is released first.
func (c *Controller) Select(ctx context.Context, d registry.Descriptor) error {
	if err := c.validate(d); err != nil {
		return &ProbeError{Stage: StageSelect, Root: d.Name, Err: err}
	}

	if err := c.Release(ctx); err != nil {
		return err
	}

	control := c.layout.Control(d.Slice)
	ctrl := registry.ControlOff | registry.ControlReset |
		(c.divider-1)<<registry.DividerShift | d.Selector

	steps := []struct {
		addr  uint64
		value uint32
	}{
		{control, registry.ControlOff},
		{c.layout.ControlSet(d.Slice), registry.ControlReset},
		{control, ctrl},
		{c.layout.ControlClear(d.Slice), registry.ControlOff | registry.ControlReset},
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range steps {
		if err := c.port.write32(ctx, s.addr, s.value); err != nil {
			return &ProbeError{Stage: StageSelect, Root: d.Name, Err: err}
		}
	}
	// The slice may be running from here on; track it even if the flush fails.
	c.selected = &d

	if err := c.port.flush(ctx); err != nil {
		return &ProbeError{Stage: StageSelect, Root: d.Name, Err: err}
	}

	c.debugLog("controller: selected",
		"root", d.Name,
		"slice", d.Slice,
		"selector", d.Selector,
		"ctrl", fmt.Sprintf("0x%08X", ctrl))
	return nil
}

// Settle blocks for the settle delay.
func (c *Controller) Settle(ctx context.Context) error {
	root := ""
	if d, ok := c.Selected(); ok {
		root = d.Name
	}
	if err := c.timeBase.Sleep(ctx, c.settle); err != nil {
		return &ProbeError{Stage: StageSettle, Root: root, Err: err}
	}
	return nil
}

// Release turns the selected slice off. It is a no-op when nothing is
// selected.
func (c *Controller) Release(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selected == nil {
		return nil
	}
	d := *c.selected

	if err := c.port.write32(ctx, c.layout.Control(d.Slice), registry.ControlOff); err != nil {
		return &ProbeError{Stage: StageRelease, Root: d.Name, Err: err}
	}
	c.selected = nil

	if err := c.port.flush(ctx); err != nil {
		return &ProbeError{Stage: StageRelease, Root: d.Name, Err: err}
	}

	c.debugLog("controller: released", "root", d.Name, "slice", d.Slice)
	return nil
}

// validate checks d against the active register map.
func (c *Controller) validate(d registry.Descriptor) error {
	if !c.reg.Contains(d) {
		return fmt.Errorf("%w: %s is not a %s root", ErrUnsupportedRoot, d.Name, c.reg.Variant())
	}
	if d.Slice >= c.layout.Slices {
		return fmt.Errorf("%w: slice %d of %d", ErrUnsupportedRoot, d.Slice, c.layout.Slices)
	}
	if d.Selector > c.layout.MaxSelector() {
		return fmt.Errorf("%w: selector %d exceeds %d", ErrUnsupportedRoot, d.Selector, c.layout.MaxSelector())
	}
	return nil
}

// debugLog logs a debug message if logging is enabled.
func (c *Controller) debugLog(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
