package observe_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	clog "github.com/imxrt-tools/ccmobs-go/pkg/log"
	"github.com/imxrt-tools/ccmobs-go/pkg/observe"
	"github.com/imxrt-tools/ccmobs-go/pkg/probe"
	"github.com/imxrt-tools/ccmobs-go/pkg/probe/mocks"
	"github.com/imxrt-tools/ccmobs-go/pkg/probe/sim"
	"github.com/imxrt-tools/ccmobs-go/pkg/registry"
)

type rig struct {
	target *sim.Target
	clock  *sim.VirtualClock
	reg    registry.Registry
	config observe.Config
}

func newRig(t *testing.T, simCfg sim.Config) *rig {
	t.Helper()
	reg, err := registry.ForVariant(registry.IMXRT1170)
	require.NoError(t, err)

	clock := sim.NewVirtualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	simCfg.Registry = reg
	simCfg.Clock = clock
	target, err := sim.NewTarget(simCfg)
	require.NoError(t, err)

	cfg := observe.DefaultConfig()
	cfg.TimeBase = clock
	cfg.RunID = "test-run"

	return &rig{target: target, clock: clock, reg: reg, config: cfg}
}

func (r *rig) measure(t *testing.T, names ...string) (*observe.MeasurementSet, error) {
	t.Helper()
	return observe.Measure(context.Background(), r.target, r.reg, names, r.config)
}

func rowNames(set *observe.MeasurementSet) []string {
	var names []string
	for _, row := range set.Rows() {
		names = append(names, row.Name())
	}
	return names
}

// sampleRecorder captures recorder callbacks.
type sampleRecorder struct {
	samples map[string][]observe.Sample
	rows    []observe.MeasurementRow
}

func newSampleRecorder() *sampleRecorder {
	return &sampleRecorder{samples: make(map[string][]observe.Sample)}
}

func (r *sampleRecorder) RecordSample(_ registry.Variant, root registry.Descriptor, s observe.Sample) {
	r.samples[root.Name] = append(r.samples[root.Name], s)
}

func (r *sampleRecorder) RecordRow(_ registry.Variant, row observe.MeasurementRow) {
	r.rows = append(r.rows, row)
}

func TestDefaultSelectionMeasuresEveryRootInOrder(t *testing.T) {
	r := newRig(t, sim.Config{})

	set, err := r.measure(t)
	require.NoError(t, err)
	assert.Nil(t, set.Fatal())

	assert.Equal(t, r.reg.Names(), rowNames(set))
	assert.Equal(t, "BUS_CLK_LPSR_CLK_ROOT", set.Rows()[0].Name())
	assert.Equal(t, "OSC_RC_400M", set.Rows()[set.Len()-1].Name())
	assert.Equal(t, len(r.reg.All()), set.Measured())
	assert.Equal(t, "test-run", set.RunID())
	assert.Equal(t, registry.IMXRT1170, set.Variant())

	for _, row := range set.Rows() {
		assert.Equal(t, observe.StateDone, row.State, row.Name())
		assert.Equal(t, row.Root.NominalHz, row.Measurement.Current, row.Name())
		assert.Equal(t, observe.DefaultSamples, row.Measurement.Samples)
	}
}

func TestSubsetKeepsOrderAndRegistryCasing(t *testing.T) {
	r := newRig(t, sim.Config{})

	set, err := r.measure(t, "bus_clk_root", "enet1_clk_root")
	require.NoError(t, err)

	assert.Equal(t, []string{"BUS_CLK_ROOT", "ENET1_CLK_ROOT"}, rowNames(set))
	rows := set.Rows()
	assert.Equal(t, uint64(240_000_000), rows[0].Measurement.Current)
	assert.Equal(t, uint64(50_000_000), rows[1].Measurement.Current)
}

func TestOrderPreservedForAnySubset(t *testing.T) {
	r := newRig(t, sim.Config{})
	r.config.Samples = 1

	subsets := [][]string{
		{"osc_24m_out", "m7_clk_root"},
		{"ENET_TIMER3", "enet_timer1", "Enet_Timer2"},
		{"bus", "bus"},
		{"osc_rc_400m", "m4", "bus_clk_lpsr", "m7_systick"},
	}
	for _, names := range subsets {
		set, err := r.measure(t, names...)
		require.NoError(t, err)
		require.Equal(t, len(names), set.Len())
		for i, row := range set.Rows() {
			want, err := r.reg.Lookup(names[i])
			require.NoError(t, err)
			assert.Equal(t, want.Name, row.Name())
		}
	}
}

func TestUnknownRootIsConfigurationErrorWithoutProbeIO(t *testing.T) {
	r := newRig(t, sim.Config{})

	set, err := r.measure(t, "not_a_root")
	assert.Nil(t, set)

	var cerr *observe.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, registry.ErrNotFound)
	assert.Equal(t, "not_a_root", cerr.Name)
	assert.Equal(t, r.reg.Names(), cerr.Valid)
	assert.Contains(t, err.Error(), "BUS_CLK_ROOT")

	assert.Zero(t, r.target.CallCount())
}

func TestInvalidConfigIsConfigurationErrorWithoutProbeIO(t *testing.T) {
	r := newRig(t, sim.Config{})
	r.config.Samples = 0

	_, err := r.measure(t)
	var cerr *observe.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, observe.ErrInvalidConfig)
	assert.Equal(t, registry.IMXRT1170, cerr.Variant)
	assert.Zero(t, r.target.CallCount())
}

func TestReadFailureIsolatedToRow(t *testing.T) {
	r := newRig(t, sim.Config{})
	// Sample 1 reads the counter twice; the third read starts sample 2.
	r.target.InjectFault(sim.Fault{Op: probe.OpRead32, Root: "ENET1_CLK_ROOT", After: 2})

	set, err := r.measure(t, "bus", "enet1", "m7")
	require.NoError(t, err)
	assert.Nil(t, set.Fatal())

	rows := set.Rows()
	require.Len(t, rows, 3)
	assert.True(t, rows[0].OK())
	assert.True(t, rows[2].OK())
	assert.Equal(t, observe.StateFailed, rows[1].State)
	assert.Equal(t, 2, set.Measured())
	assert.Equal(t, 1, set.Failed())

	var perr *observe.ProbeError
	require.ErrorAs(t, rows[1].Err, &perr)
	assert.Equal(t, observe.StageSample, perr.Stage)
	assert.Equal(t, "ENET1_CLK_ROOT", perr.Root)
	assert.False(t, perr.Fatal())
	assert.ErrorIs(t, rows[1].Err, sim.ErrInjected)

	// The failed root's slice was switched off before the next root.
	enet, err := r.reg.Lookup("enet1")
	require.NoError(t, err)
	_, running := r.target.Selected(enet.Slice)
	assert.False(t, running)
}

func TestSessionLossAbortsRun(t *testing.T) {
	r := newRig(t, sim.Config{})
	r.target.InjectFault(sim.Fault{Op: probe.OpRead32, Root: "ENET1_CLK_ROOT", After: 1, Disconnect: true})

	set, err := r.measure(t, "bus", "enet1", "m7")
	require.Error(t, err)

	var rerr *observe.RunError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 1, rerr.Completed)
	assert.True(t, probe.IsSessionLost(err))

	require.NotNil(t, set)
	assert.Equal(t, []string{"BUS_CLK_ROOT"}, rowNames(set))
	assert.True(t, set.Rows()[0].OK())
	assert.Equal(t, err, set.Fatal())
}

func TestWriteFailureDuringSelectIsolatedToRow(t *testing.T) {
	r := newRig(t, sim.Config{})
	m4, err := r.reg.Lookup("m4")
	require.NoError(t, err)
	r.target.InjectFault(sim.Fault{Op: probe.OpWrite32, Addr: r.reg.Layout().ControlSet(m4.Slice)})

	set, err := r.measure(t, "m4", "bus")
	require.NoError(t, err)

	rows := set.Rows()
	require.Len(t, rows, 2)
	var perr *observe.ProbeError
	require.ErrorAs(t, rows[0].Err, &perr)
	assert.Equal(t, observe.StageSelect, perr.Stage)
	assert.True(t, rows[1].OK())
}

func TestMinMaxBoundEverySample(t *testing.T) {
	r := newRig(t, sim.Config{JitterPPM: 2000, Seed: 42})
	rec := newSampleRecorder()
	r.config.Recorder = rec
	r.config.Samples = 8

	set, err := r.measure(t, "bus", "m7", "enet_25m")
	require.NoError(t, err)

	require.Len(t, rec.rows, 3)
	for _, row := range set.Rows() {
		samples := rec.samples[row.Name()]
		require.Len(t, samples, 8)

		m := row.Measurement
		for _, s := range samples {
			assert.LessOrEqual(t, m.Min, s.Hz)
			assert.GreaterOrEqual(t, m.Max, s.Hz)
		}
		assert.Equal(t, samples[len(samples)-1].Hz, m.Current)
		assert.Equal(t, m.Max-m.Min, m.Spread())
		assert.Greater(t, m.Spread(), uint64(0), "jitter should spread %s", row.Name())
	}
}

func TestReplayIsIdempotent(t *testing.T) {
	run := func() []observe.MeasurementRow {
		r := newRig(t, sim.Config{JitterPPM: 1000, Seed: 99, StartCount: 0xFFF00000})
		r.target.InjectFault(sim.Fault{Op: probe.OpRead32, Root: "ENET2_CLK_ROOT", After: 3})
		set, err := r.measure(t)
		require.NoError(t, err)
		return set.Rows()
	}

	assert.Equal(t, run(), run())
}

func TestCounterWrapDuringWindow(t *testing.T) {
	// Reset preloads the counter just below the wrap point.
	r := newRig(t, sim.Config{StartCount: 0xFFFFFFFF - 8_000_000})
	rec := newSampleRecorder()
	r.config.Recorder = rec
	r.config.Settle = observe.MinSettle

	set, err := r.measure(t, "m7")
	require.NoError(t, err)
	require.True(t, set.Rows()[0].OK())

	wrapped := false
	for _, s := range rec.samples["M7_CLK_ROOT"] {
		if s.End < s.Start {
			wrapped = true
		}
	}
	assert.True(t, wrapped, "expected at least one window across the wrap")
	assert.Equal(t, uint64(996_000_000), set.Rows()[0].Measurement.Current)
	assert.Equal(t, uint64(996_000_000), set.Rows()[0].Measurement.Min)
}

func TestUnreliableWindow(t *testing.T) {
	r := newRig(t, sim.Config{})
	// 240 MHz undivided wraps a 32-bit counter in under 18s.
	r.config.Window = 20 * time.Second
	r.config.Divider = 1
	r.config.Samples = 1

	set, err := r.measure(t, "bus")
	require.NoError(t, err)

	var merr *observe.MeasurementError
	require.ErrorAs(t, set.Rows()[0].Err, &merr)
	assert.Equal(t, observe.KindUnreliable, merr.Kind)
	assert.Equal(t, 1, merr.Sample)
}

func TestLongWindowOnSlowRoots(t *testing.T) {
	r := newRig(t, sim.Config{})
	r.config.Window = 15 * time.Second
	r.config.Samples = 2

	set, err := r.measure(t, "m7_systick", "osc_24m_out")
	require.NoError(t, err)

	for _, row := range set.Rows() {
		require.True(t, row.OK(), "%s: %v", row.Name(), row.Err)
		assert.Equal(t, row.Root.NominalHz, row.Measurement.Current, row.Name())
	}
}

func TestImplausibleFrequency(t *testing.T) {
	r := newRig(t, sim.Config{Frequencies: map[string]uint64{"BUS_CLK_ROOT": 5_000_000_000}})

	set, err := r.measure(t, "bus", "m4")
	require.NoError(t, err)

	rows := set.Rows()
	var merr *observe.MeasurementError
	require.ErrorAs(t, rows[0].Err, &merr)
	assert.Equal(t, observe.KindImplausible, merr.Kind)
	assert.True(t, rows[1].OK())
}

// frozenTimeBase never advances.
type frozenTimeBase struct{ now time.Time }

func (f frozenTimeBase) Now() time.Time { return f.now }

func (f frozenTimeBase) Sleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func TestZeroWindow(t *testing.T) {
	r := newRig(t, sim.Config{})
	r.config.TimeBase = frozenTimeBase{now: time.Unix(0, 0)}

	set, err := r.measure(t, "bus")
	require.NoError(t, err)

	var merr *observe.MeasurementError
	require.ErrorAs(t, set.Rows()[0].Err, &merr)
	assert.Equal(t, observe.KindZeroWindow, merr.Kind)
}

func TestCancelledContextAbortsRun(t *testing.T) {
	r := newRig(t, sim.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.target.Connect(ctx))

	req, err := observe.NewRequest(r.reg, []string{"bus", "m7"})
	require.NoError(t, err)

	agg := observe.NewAggregator(r.target, r.reg, r.config)
	cancel()

	set, err := agg.Run(ctx, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, set.Len())
}

func TestTraceEvents(t *testing.T) {
	r := newRig(t, sim.Config{})
	trace := &captureTrace{}
	r.config.Trace = trace
	r.config.Samples = 2

	_, err := r.measure(t, "bus")
	require.NoError(t, err)

	var states []string
	samples := 0
	probeOps := 0
	for _, e := range trace.events {
		assert.Equal(t, "test-run", e.RunID)
		switch {
		case e.StateChange != nil:
			states = append(states, e.StateChange.NewState)
			assert.Equal(t, "BUS_CLK_ROOT", e.Root)
			assert.Equal(t, "imxrt1170", e.Variant)
		case e.Sample != nil:
			samples++
			assert.Equal(t, uint64(240_000_000), e.Sample.FrequencyHz)
		case e.Probe != nil:
			probeOps++
		}
	}

	assert.Equal(t, []string{"SELECTING", "SETTLING", "SAMPLING", "SAMPLING", "DONE"}, states)
	assert.Equal(t, 2, samples)
	// connect, 4 writes, flush, 4 reads, release write, flush
	assert.Equal(t, 12, probeOps)
}

type captureTrace struct {
	events []clog.Event
}

func (c *captureTrace) Log(e clog.Event) { c.events = append(c.events, e) }

func TestResolveVariant(t *testing.T) {
	reg, err := observe.ResolveVariant("IMXRT1180")
	require.NoError(t, err)
	assert.Equal(t, registry.IMXRT1180, reg.Variant())

	_, err = observe.ResolveVariant("imxrt1064")
	var cerr *observe.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.True(t, errors.Is(err, registry.ErrUnknownVariant))
	assert.Equal(t, []string{"imxrt1170", "imxrt1180"}, cerr.Valid)
	assert.Equal(t, `unknown variant "imxrt1064" (valid: imxrt1170, imxrt1180)`, err.Error())
}

func TestConnectTimeout(t *testing.T) {
	reg, err := registry.ForVariant(registry.IMXRT1170)
	require.NoError(t, err)

	session := mocks.NewMockSession(t)
	session.EXPECT().Connect(mock.Anything).RunAndReturn(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	cfg := observe.DefaultConfig()
	cfg.ConnectTimeout = 10 * time.Millisecond

	set, err := observe.Measure(context.Background(), session, reg, []string{"bus"}, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, probe.ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var rerr *observe.RunError
	require.ErrorAs(t, err, &rerr)
	var perr *observe.ProbeError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, observe.StageConnect, perr.Stage)

	require.NotNil(t, set)
	assert.Equal(t, err, set.Fatal())
	assert.Zero(t, set.Len())
}
