package observe

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	clog "github.com/imxrt-tools/ccmobs-go/pkg/log"
	"github.com/imxrt-tools/ccmobs-go/pkg/probe"
	"github.com/imxrt-tools/ccmobs-go/pkg/registry"
)

// Aggregator drives the controller and sampler over a request.
type Aggregator struct {
	config     Config
	session    probe.Session
	reg        registry.Registry
	controller *Controller
	sampler    *Sampler
	trace      clog.Logger
}

// NewAggregator creates an aggregator for a connected session.
// When cfg.Trace is set, probe operations are traced as well.
func NewAggregator(session probe.Session, reg registry.Registry, cfg Config) *Aggregator {
	cfg = cfg.normalized()
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.Trace != nil {
		session = probe.NewTraced(session, cfg.Trace, cfg.RunID)
	}

	return &Aggregator{
		config:     cfg,
		session:    session,
		reg:        reg,
		controller: NewController(session, reg, cfg),
		sampler:    NewSampler(session, cfg),
		trace:      clog.OrNoop(cfg.Trace),
	}
}

// RunID returns the identifier used for this aggregator's runs.
func (a *Aggregator) RunID() string { return a.config.RunID }

// Run measures every root of req in order. Per-root failures are recorded
// on their rows. A fatal failure stops the run; the rows completed so far
// are returned together with a *RunError.
func (a *Aggregator) Run(ctx context.Context, req *Request) (*MeasurementSet, error) {
	set := &MeasurementSet{
		runID:   a.config.RunID,
		variant: a.reg.Variant(),
		rows:    make([]MeasurementRow, 0, req.Len()),
	}

	a.debugLog("run: start", "run_id", set.runID, "variant", set.variant, "roots", req.Len())

	for _, d := range req.Roots() {
		row, err := a.measureRoot(ctx, d)
		if err != nil {
			a.traceError(d, err, true)
			set.fatal = &RunError{Completed: len(set.rows), Err: err}
			a.debugLog("run: aborted", "root", d.Name, "completed", len(set.rows), "error", err)
			return set, set.fatal
		}
		set.rows = append(set.rows, row)
		if a.config.Recorder != nil {
			a.config.Recorder.RecordRow(set.variant, row)
		}
	}

	a.debugLog("run: done", "measured", set.Measured(), "failed", set.Failed())
	return set, nil
}

// measureRoot takes one root from IDLE to a terminal state. The returned
// error is non-nil only for fatal failures.
func (a *Aggregator) measureRoot(ctx context.Context, d registry.Descriptor) (MeasurementRow, error) {
	state := StateIdle
	to := func(next State, sample int, reason string) {
		a.transition(d, state, next, sample, reason)
		state = next
	}

	fail := func(err error) (MeasurementRow, error) {
		if isFatal(ctx, err) {
			return MeasurementRow{}, err
		}
		// Leave the slice off; the row keeps the original failure.
		if rerr := a.controller.Release(ctx); rerr != nil {
			if isFatal(ctx, rerr) {
				return MeasurementRow{}, rerr
			}
			a.warnLog("release after failure", "root", d.Name, "error", rerr)
		}
		a.traceError(d, err, false)
		to(StateFailed, 0, err.Error())
		return MeasurementRow{Root: d, State: StateFailed, Err: err}, nil
	}

	to(StateSelecting, 0, "")
	if err := a.controller.Select(ctx, d); err != nil {
		return fail(err)
	}

	to(StateSettling, 0, "")
	if err := a.controller.Settle(ctx); err != nil {
		return fail(err)
	}

	to(StateSampling, 1, "")
	m, err := a.sampler.Measure(ctx, d, func(s Sample) {
		a.traceSample(d, s)
		if a.config.Recorder != nil {
			a.config.Recorder.RecordSample(a.reg.Variant(), d, s)
		}
		if s.Index < a.config.Samples {
			to(StateSampling, s.Index+1, "")
		}
	})
	if err != nil {
		return fail(err)
	}

	if err := a.controller.Release(ctx); err != nil {
		if isFatal(ctx, err) {
			return MeasurementRow{}, err
		}
		a.warnLog("release after measurement", "root", d.Name, "error", err)
	}

	to(StateDone, 0, "")
	return MeasurementRow{Root: d, State: StateDone, Measurement: m}, nil
}

// transition records a state change.
func (a *Aggregator) transition(d registry.Descriptor, from, to State, sample int, reason string) {
	a.trace.Log(clog.Event{
		Timestamp: time.Now(),
		RunID:     a.config.RunID,
		Layer:     clog.LayerObserve,
		Category:  clog.CategoryState,
		Variant:   string(a.reg.Variant()),
		Root:      d.Name,
		StateChange: &clog.StateChangeEvent{
			OldState: from.String(),
			NewState: to.String(),
			Sample:   sample,
			Reason:   reason,
		},
	})
	if sample > 0 {
		a.debugLog("root: state", "root", d.Name, "from", from, "to", to, "sample", sample)
	} else {
		a.debugLog("root: state", "root", d.Name, "from", from, "to", to)
	}
}

func (a *Aggregator) traceSample(d registry.Descriptor, s Sample) {
	a.trace.Log(clog.Event{
		Timestamp: time.Now(),
		RunID:     a.config.RunID,
		Layer:     clog.LayerObserve,
		Category:  clog.CategorySample,
		Variant:   string(a.reg.Variant()),
		Root:      d.Name,
		Sample: &clog.SampleEvent{
			Index:       s.Index,
			Start:       s.Start,
			End:         s.End,
			Delta:       s.Delta,
			Elapsed:     s.Elapsed,
			FrequencyHz: s.Hz,
		},
	})
}

func (a *Aggregator) traceError(d registry.Descriptor, err error, fatal bool) {
	where := ""
	var perr *ProbeError
	var merr *MeasurementError
	switch {
	case errors.As(err, &perr):
		where = string(perr.Stage)
	case errors.As(err, &merr):
		where = string(merr.Kind)
	}
	a.trace.Log(clog.Event{
		Timestamp: time.Now(),
		RunID:     a.config.RunID,
		Layer:     clog.LayerObserve,
		Category:  clog.CategoryError,
		Variant:   string(a.reg.Variant()),
		Root:      d.Name,
		Error: &clog.ErrorEventData{
			Layer:   clog.LayerObserve,
			Message: err.Error(),
			Context: where,
			Fatal:   fatal,
		},
	})
}

// debugLog logs a debug message if logging is enabled.
func (a *Aggregator) debugLog(msg string, args ...any) {
	if a.config.Logger != nil {
		a.config.Logger.Debug(msg, args...)
	}
}

func (a *Aggregator) warnLog(msg string, args ...any) {
	if a.config.Logger != nil {
		a.config.Logger.Warn(msg, args...)
	}
}

// Measure validates the run, connects the session and runs it.
// Configuration errors are returned before the session is touched.
func Measure(ctx context.Context, session probe.Session, reg registry.Registry, names []string, cfg Config) (*MeasurementSet, error) {
	req, err := NewRequest(reg, names)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		var cerr *ConfigurationError
		if errors.As(err, &cerr) {
			cerr.Variant = reg.Variant()
		}
		return nil, err
	}

	agg := NewAggregator(session, reg, cfg)

	connectCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := agg.session.Connect(connectCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = &probe.Error{Op: probe.OpConnect, Err: errors.Join(probe.ErrTimeout, err)}
		}
		perr := &ProbeError{Stage: StageConnect, Err: err}
		set := &MeasurementSet{
			runID:   agg.RunID(),
			variant: reg.Variant(),
			fatal:   &RunError{Err: perr},
		}
		return set, set.fatal
	}

	return agg.Run(ctx, req)
}
