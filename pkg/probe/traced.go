package probe

import (
	"context"
	"time"

	"github.com/imxrt-tools/ccmobs-go/pkg/log"
)

// Traced wraps a Session and records one probe-layer event per operation.
type Traced struct {
	inner  Session
	logger log.Logger
	runID  string
	now    func() time.Time
}

// NewTraced wraps s. A nil logger disables tracing.
func NewTraced(s Session, logger log.Logger, runID string) *Traced {
	return &Traced{
		inner:  s,
		logger: log.OrNoop(logger),
		runID:  runID,
		now:    time.Now,
	}
}

// Unwrap returns the wrapped session.
func (t *Traced) Unwrap() Session { return t.inner }

func (t *Traced) Connect(ctx context.Context) error {
	start := t.now()
	err := t.inner.Connect(ctx)
	t.record(log.ProbeOpConnect, 0, 0, start, err)
	return err
}

func (t *Traced) Read32(ctx context.Context, addr uint64) (uint32, error) {
	start := t.now()
	v, err := t.inner.Read32(ctx, addr)
	t.record(log.ProbeOpRead32, addr, v, start, err)
	return v, err
}

func (t *Traced) Write32(ctx context.Context, addr uint64, value uint32) error {
	start := t.now()
	err := t.inner.Write32(ctx, addr, value)
	t.record(log.ProbeOpWrite32, addr, value, start, err)
	return err
}

// Flush flushes the wrapped session if it supports flushing.
func (t *Traced) Flush(ctx context.Context) error {
	if _, ok := t.inner.(Flusher); !ok {
		return nil
	}
	start := t.now()
	err := Flush(ctx, t.inner)
	t.record(log.ProbeOpFlush, 0, 0, start, err)
	return err
}

// Close closes the wrapped session if it is closable.
func (t *Traced) Close() error {
	if c, ok := t.inner.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (t *Traced) record(op log.ProbeOp, addr uint64, value uint32, start time.Time, err error) {
	end := t.now()
	if err != nil {
		t.logger.Log(log.Event{
			Timestamp: end,
			RunID:     t.runID,
			Layer:     log.LayerProbe,
			Category:  log.CategoryError,
			Error: &log.ErrorEventData{
				Layer:   log.LayerProbe,
				Message: err.Error(),
				Context: op.String(),
				Fatal:   IsSessionLost(err),
			},
		})
		return
	}
	t.logger.Log(log.Event{
		Timestamp: end,
		RunID:     t.runID,
		Layer:     log.LayerProbe,
		Category:  log.CategoryIO,
		Probe: &log.ProbeEvent{
			Op:       op,
			Address:  addr,
			Value:    value,
			Duration: end.Sub(start),
		},
	})
}

// Compile-time interface satisfaction checks.
var (
	_ Session = (*Traced)(nil)
	_ Flusher = (*Traced)(nil)
)
