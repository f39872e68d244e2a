package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/bits"
	"math/rand"
	"sync"
	"time"

	"github.com/imxrt-tools/ccmobs-go/pkg/probe"
	"github.com/imxrt-tools/ccmobs-go/pkg/registry"
)

// Config configures a simulated target.
type Config struct {
	// Registry is the register map of the simulated variant. Required.
	Registry registry.Registry

	// Clock drives the slice counters. Defaults to SystemClock.
	Clock Clock

	// Frequencies overrides root frequencies by registry name.
	// Roots not listed run at their nominal frequency.
	Frequencies map[string]uint64

	// JitterPPM bounds the per-read frequency deviation in parts per million.
	JitterPPM float64

	// Seed seeds the jitter source. Equal seeds give equal readings for
	// equal operation sequences.
	Seed int64

	// StartCount is the counter value after a slice reset.
	StartCount uint32

	// Latency advances a VirtualClock on every operation.
	Latency time.Duration

	// NoCallLog disables the call log for long-running targets.
	NoCallLog bool

	// Logger is used for debug logging. If nil, logging is disabled.
	Logger *slog.Logger
}

// Call is one recorded operation.
type Call struct {
	Op    probe.Op
	Addr  uint64
	Value uint32
	Err   error
}

// sliceState is the model of one CCM_OBS slice.
type sliceState struct {
	ctrl    uint32
	count   uint64
	rem     uint64
	since   time.Time
	running bool
}

// Target is a simulated target implementing probe.Session.
// It is safe for concurrent use.
type Target struct {
	config Config
	layout registry.Layout
	bySel  map[uint32]registry.Descriptor

	mu     sync.Mutex
	rng    *rand.Rand
	slices []sliceState
	mem    map[uint64]uint32
	calls  []Call
	faults []*armedFault
	conn   bool
	lost   bool
}

// NewTarget creates a simulated target.
func NewTarget(cfg Config) (*Target, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("sim: registry is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.JitterPPM < 0 {
		return nil, fmt.Errorf("sim: negative jitter %v ppm", cfg.JitterPPM)
	}

	layout := cfg.Registry.Layout()
	t := &Target{
		config: cfg,
		layout: layout,
		bySel:  make(map[uint32]registry.Descriptor),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		slices: make([]sliceState, layout.Slices),
		mem:    make(map[uint64]uint32),
	}
	for _, d := range cfg.Registry.All() {
		t.bySel[d.Selector] = d
	}
	for i := range t.slices {
		t.slices[i].ctrl = registry.ControlOff
	}
	return t, nil
}

// InjectFault arms a fault.
func (t *Target) InjectFault(f Fault) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.faults = append(t.faults, &armedFault{Fault: f})
}

// Disconnect drops the session. Every later operation fails with
// probe.ErrSessionLost.
func (t *Target) Disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lost = true
	t.conn = false
}

// Calls returns a copy of the call log.
func (t *Target) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Call, len(t.calls))
	copy(out, t.calls)
	return out
}

// CallCount returns the number of recorded operations.
func (t *Target) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

// Selected returns the root currently routed to a slice and whether the
// slice counter is running.
func (t *Target) Selected(slice uint32) (registry.Descriptor, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(slice) >= len(t.slices) {
		return registry.Descriptor{}, false
	}
	s := t.slices[slice]
	d, ok := t.bySel[s.ctrl&t.layout.MaxSelector()]
	return d, ok && s.running
}

// Connect attaches to the simulated target.
func (t *Target) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.begin(ctx, probe.OpConnect, 0, false); err != nil {
		t.record(probe.OpConnect, 0, 0, err)
		return err
	}
	t.conn = true
	t.record(probe.OpConnect, 0, 0, nil)
	t.debugLog("sim: connected", "variant", t.config.Registry.Variant())
	return nil
}

// Read32 reads a simulated register.
func (t *Target) Read32(ctx context.Context, addr uint64) (uint32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.begin(ctx, probe.OpRead32, addr, true); err != nil {
		t.record(probe.OpRead32, addr, 0, err)
		return 0, err
	}

	v := t.read(addr)
	t.record(probe.OpRead32, addr, v, nil)
	return v, nil
}

// Write32 writes a simulated register.
func (t *Target) Write32(ctx context.Context, addr uint64, value uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.begin(ctx, probe.OpWrite32, addr, true); err != nil {
		t.record(probe.OpWrite32, addr, value, err)
		return err
	}

	t.write(addr, value)
	t.record(probe.OpWrite32, addr, value, nil)
	return nil
}

// Flush completes immediately; simulated writes land synchronously.
func (t *Target) Flush(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	err := t.begin(ctx, probe.OpFlush, 0, true)
	t.record(probe.OpFlush, 0, 0, err)
	return err
}

// Close detaches from the target.
func (t *Target) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conn = false
	return nil
}

// begin performs the common checks of an operation. Must hold mu.
func (t *Target) begin(ctx context.Context, op probe.Op, addr uint64, needConn bool) error {
	if err := ctx.Err(); err != nil {
		return &probe.Error{Op: op, Addr: addr, Err: err}
	}
	if t.lost {
		return &probe.Error{Op: op, Addr: addr, Err: probe.ErrSessionLost}
	}
	if needConn && !t.conn {
		return &probe.Error{Op: op, Addr: addr, Err: probe.ErrNotConnected}
	}
	if vc, ok := t.config.Clock.(*VirtualClock); ok {
		vc.Advance(t.config.Latency)
	}

	for _, f := range t.faults {
		if !t.matches(f, op, addr) {
			continue
		}
		if err := f.check(); err != nil {
			if f.Disconnect {
				t.lost = true
				t.conn = false
			}
			t.debugLog("sim: injected fault", "op", op, "addr", fmt.Sprintf("0x%08X", addr), "error", err)
			return &probe.Error{Op: op, Addr: addr, Err: err}
		}
	}
	return nil
}

// matches reports whether a fault applies to an operation. Must hold mu.
func (t *Target) matches(f *armedFault, op probe.Op, addr uint64) bool {
	if f.Op != op {
		return false
	}
	if f.Addr != 0 && f.Addr != addr {
		return false
	}
	if f.Root == "" {
		return true
	}
	slice, _, ok := t.layout.SliceOf(addr)
	if !ok {
		return false
	}
	d, ok := t.bySel[t.slices[slice].ctrl&t.layout.MaxSelector()]
	return ok && d.Name == f.Root
}

// read returns a register value. Must hold mu.
func (t *Target) read(addr uint64) uint32 {
	slice, off, ok := t.layout.SliceOf(addr)
	if !ok {
		return t.mem[addr]
	}
	s := &t.slices[slice]
	switch off {
	case registry.OffsetControl, registry.OffsetControlSet, registry.OffsetControlClear:
		return s.ctrl
	case t.layout.CounterOffset:
		t.advance(s)
		width := uint(32)
		if d, ok := t.bySel[s.ctrl&t.layout.MaxSelector()]; ok {
			width = d.CounterWidth
		}
		return uint32(s.count & (uint64(1)<<width - 1))
	default:
		return t.mem[addr]
	}
}

// write applies a register write. Must hold mu.
func (t *Target) write(addr uint64, value uint32) {
	slice, off, ok := t.layout.SliceOf(addr)
	if !ok {
		t.mem[addr] = value
		return
	}
	s := &t.slices[slice]
	switch off {
	case registry.OffsetControl:
		t.setControl(s, value)
	case registry.OffsetControlSet:
		t.setControl(s, s.ctrl|value)
	case registry.OffsetControlClear:
		t.setControl(s, s.ctrl&^value)
	default:
		t.mem[addr] = value
	}
}

// setControl updates a slice control register. Must hold mu.
func (t *Target) setControl(s *sliceState, ctrl uint32) {
	t.advance(s)
	s.ctrl = ctrl
	if ctrl&registry.ControlReset != 0 {
		s.count = uint64(t.config.StartCount)
		s.rem = 0
	}
	running := ctrl&(registry.ControlOff|registry.ControlReset) == 0
	if running && !s.running {
		s.since = t.config.Clock.Now()
	}
	s.running = running
}

// advance accumulates counts since the last update. Must hold mu.
func (t *Target) advance(s *sliceState) {
	if !s.running {
		return
	}
	now := t.config.Clock.Now()
	elapsed := now.Sub(s.since)
	s.since = now
	if elapsed <= 0 {
		return
	}

	d, ok := t.bySel[s.ctrl&t.layout.MaxSelector()]
	if !ok {
		return
	}
	hz := t.frequency(d)
	if t.config.JitterPPM > 0 {
		dev := float64(hz) * t.config.JitterPPM * (2*t.rng.Float64() - 1) / 1e6
		hz = uint64(int64(hz) + int64(dev))
	}

	// counts = hz * elapsed / (div * 1s), carrying the remainder so that
	// splitting a window into several reads loses nothing.
	div := uint64((s.ctrl&registry.DividerMask)>>registry.DividerShift+1) * uint64(d.FixedDivider)
	den := div * uint64(time.Second)
	hi, lo := bits.Mul64(hz, uint64(elapsed))
	lo, carry := bits.Add64(lo, s.rem, 0)
	hi += carry
	if hi >= den {
		// More than 2^64 counts; only the low counter bits are observable.
		hi %= den
	}
	q, r := bits.Div64(hi, lo, den)
	s.count += q
	s.rem = r
}

// frequency returns the simulated frequency of a root.
func (t *Target) frequency(d registry.Descriptor) uint64 {
	if hz, ok := t.config.Frequencies[d.Name]; ok {
		return hz
	}
	return d.NominalHz
}

// record appends to the call log. Must hold mu.
func (t *Target) record(op probe.Op, addr uint64, value uint32, err error) {
	if t.config.NoCallLog {
		return
	}
	t.calls = append(t.calls, Call{Op: op, Addr: addr, Value: value, Err: err})
}

// debugLog logs a debug message if logging is enabled.
func (t *Target) debugLog(msg string, args ...any) {
	if t.config.Logger != nil {
		t.config.Logger.Debug(msg, args...)
	}
}

// Compile-time interface satisfaction checks.
var (
	_ probe.Session = (*Target)(nil)
	_ probe.Flusher = (*Target)(nil)
)
