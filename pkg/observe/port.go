package observe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imxrt-tools/ccmobs-go/pkg/probe"
)

// port applies the I/O bound to every probe operation.
type port struct {
	session probe.Session
	timeout time.Duration
}

func (p port) read32(ctx context.Context, addr uint64) (uint32, error) {
	ctx, cancel := p.bound(ctx)
	defer cancel()
	v, err := p.session.Read32(ctx, addr)
	return v, p.classify(ctx, probe.OpRead32, addr, err)
}

func (p port) write32(ctx context.Context, addr uint64, value uint32) error {
	ctx, cancel := p.bound(ctx)
	defer cancel()
	return p.classify(ctx, probe.OpWrite32, addr, p.session.Write32(ctx, addr, value))
}

func (p port) flush(ctx context.Context) error {
	ctx, cancel := p.bound(ctx)
	defer cancel()
	return p.classify(ctx, probe.OpFlush, 0, probe.Flush(ctx, p.session))
}

func (p port) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.timeout)
}

// classify turns an operation that hit the I/O bound into a session loss.
// A probe that stops answering cannot be trusted with the rest of the run.
func (p port) classify(ctx context.Context, op probe.Op, addr uint64, err error) error {
	if err == nil {
		return nil
	}
	if probe.IsSessionLost(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &probe.Error{Op: op, Addr: addr, Err: fmt.Errorf("%w: %w", probe.ErrSessionLost, probe.ErrTimeout)}
	}
	return err
}
