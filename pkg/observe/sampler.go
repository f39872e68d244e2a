package observe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/imxrt-tools/ccmobs-go/pkg/probe"
	"github.com/imxrt-tools/ccmobs-go/pkg/registry"
)

// Sample is one timed counter window.
type Sample struct {
	// Index is the 1-based sample number.
	Index int

	// Start and End are the raw counter readings.
	Start uint32
	End   uint32

	// Delta is the wrap-corrected count.
	Delta uint64

	// Elapsed is the window length measured on the time base.
	Elapsed time.Duration

	// Hz is the computed frequency.
	Hz uint64
}

// Sampler times counter windows of a selected, settled root.
type Sampler struct {
	port      port
	window    time.Duration
	samples   int
	divider   uint32
	ceilingHz uint64
	timeBase  TimeBase
	logger    *slog.Logger
}

// NewSampler creates a sampler.
func NewSampler(session probe.Session, cfg Config) *Sampler {
	cfg = cfg.normalized()
	return &Sampler{
		port:      port{session: session, timeout: cfg.IOTimeout},
		window:    cfg.Window,
		samples:   cfg.Samples,
		divider:   cfg.Divider,
		ceilingHz: cfg.CeilingHz,
		timeBase:  cfg.TimeBase,
		logger:    cfg.Logger,
	}
}

// Measure takes the configured number of samples of d. onSample, if not
// nil, is called after every successful sample. The first failing sample
// ends the measurement.
func (s *Sampler) Measure(ctx context.Context, d registry.Descriptor, onSample func(Sample)) (FrequencyMeasurement, error) {
	var m FrequencyMeasurement
	for i := 1; i <= s.samples; i++ {
		sample, err := s.Sample(ctx, d, i)
		if err != nil {
			return FrequencyMeasurement{}, err
		}
		m.add(sample.Hz)
		if onSample != nil {
			onSample(sample)
		}
	}
	return m, nil
}

// Sample times one window of d.
func (s *Sampler) Sample(ctx context.Context, d registry.Descriptor, index int) (Sample, error) {
	start, err := s.port.read32(ctx, d.CounterAddress)
	if err != nil {
		return Sample{}, &ProbeError{Stage: StageSample, Root: d.Name, Err: err}
	}
	t0 := s.timeBase.Now()

	if err := s.timeBase.Sleep(ctx, s.window); err != nil {
		return Sample{}, &ProbeError{Stage: StageSample, Root: d.Name, Err: err}
	}

	end, err := s.port.read32(ctx, d.CounterAddress)
	if err != nil {
		return Sample{}, &ProbeError{Stage: StageSample, Root: d.Name, Err: err}
	}
	t1 := s.timeBase.Now()

	sample := Sample{
		Index:   index,
		Start:   start,
		End:     end,
		Delta:   WrapDelta(start, end, d.CounterWidth),
		Elapsed: t1.Sub(t0),
	}

	if sample.Elapsed <= 0 {
		return Sample{}, &MeasurementError{Root: d.Name, Sample: index, Kind: KindZeroWindow}
	}

	prescale := uint64(s.divider) * uint64(d.FixedDivider)
	if mayWrap(wrapCeiling(d, s.ceilingHz), prescale, sample.Elapsed, d.CounterWidth) {
		return Sample{}, &MeasurementError{
			Root:   d.Name,
			Sample: index,
			Kind:   KindUnreliable,
			Detail: fmt.Sprintf("%v window may span a %d-bit counter wrap", sample.Elapsed, d.CounterWidth),
		}
	}

	hz, ok := scaleToHz(sample.Delta, prescale, sample.Elapsed)
	if !ok || hz > s.ceilingHz {
		return Sample{}, &MeasurementError{
			Root:   d.Name,
			Sample: index,
			Kind:   KindImplausible,
			Detail: fmt.Sprintf("%d counts in %v exceed %d Hz", sample.Delta, sample.Elapsed, s.ceilingHz),
		}
	}
	sample.Hz = hz

	if s.logger != nil {
		s.logger.Debug("sampler: window",
			"root", d.Name,
			"sample", index,
			"delta", sample.Delta,
			"elapsed", sample.Elapsed,
			"hz", hz)
	}
	return sample, nil
}
