package registry

import (
	"cmp"
	"embed"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed manifests/*.yaml
var manifestFS embed.FS

// Registry errors.
var (
	ErrUnknownVariant  = errors.New("unknown MCU variant")
	ErrNotFound        = errors.New("clock root not found")
	ErrInvalidManifest = errors.New("invalid register manifest")
)

// Name suffixes a user may leave out when naming a root.
const (
	suffixClkRoot = "_CLK_ROOT"
	suffixOut     = "_OUT"
)

// Variant identifies a supported i.MX RT silicon family.
type Variant string

const (
	// IMXRT1170 is the i.MX RT1170 family.
	IMXRT1170 Variant = "imxrt1170"

	// IMXRT1180 is the i.MX RT1180 family.
	IMXRT1180 Variant = "imxrt1180"
)

// Variants returns all supported variants in a stable order.
func Variants() []Variant {
	return []Variant{IMXRT1170, IMXRT1180}
}

// ParseVariant parses a variant name, ignoring case.
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Variants() {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnknownVariant, s, variantList())
}

func variantList() string {
	names := make([]string, 0, len(Variants()))
	for _, v := range Variants() {
		names = append(names, string(v))
	}
	return strings.Join(names, ", ")
}

// Descriptor describes one observable clock root.
type Descriptor struct {
	// Name is the reference manual name, e.g. "BUS_CLK_ROOT".
	Name string

	// Selector is the mux selector code routed to the observation slice.
	Selector uint32

	// Slice is the CCM_OBS slice that observes this root.
	Slice uint32

	// CounterAddress is the address of the slice counter register.
	CounterAddress uint64

	// CounterWidth is the counter width in bits.
	CounterWidth uint

	// FixedDivider is a divider applied ahead of the observation mux.
	// 1 means the root is routed undivided.
	FixedDivider uint32

	// MaxHz is the highest frequency this root is expected to run at.
	// Zero means no per-root bound is known.
	MaxHz uint64

	// NominalHz is the frequency a freshly booted part runs this root at.
	// It is informational and used by the simulated target.
	NominalHz uint64
}

// String returns the root name.
func (d Descriptor) String() string {
	return d.Name
}

// Layout is the CCM_OBS register layout of a variant.
type Layout struct {
	// Base is the address of slice 0.
	Base uint64

	// SliceStride is the distance between consecutive slices.
	SliceStride uint64

	// Slices is the number of implemented slices.
	Slices uint32

	// SelectorBits is the width of the root select field.
	SelectorBits uint

	// CounterOffset is the counter register offset within a slice.
	CounterOffset uint64
}

// Slice register offsets. SET and CLR are the usual set/clear aliases of
// the control register.
const (
	OffsetControl      = 0x00
	OffsetControlSet   = 0x04
	OffsetControlClear = 0x08
)

// Control register fields.
const (
	// ControlOff gates the slice counter off.
	ControlOff uint32 = 1 << 24

	// ControlReset holds the slice counter in reset.
	ControlReset uint32 = 1 << 15

	// DividerShift positions the observation divider field. The field holds
	// the divider minus one.
	DividerShift = 16

	// DividerMask covers the observation divider field.
	DividerMask uint32 = 0xFF << DividerShift

	// MaxDivider is the largest observation divider the field encodes.
	MaxDivider = 256
)

// SliceBase returns the address of the given slice.
func (l Layout) SliceBase(slice uint32) uint64 {
	return l.Base + uint64(slice)*l.SliceStride
}

// Control returns the control register of a slice.
func (l Layout) Control(slice uint32) uint64 {
	return l.SliceBase(slice) + OffsetControl
}

// ControlSet returns the control SET alias of a slice.
func (l Layout) ControlSet(slice uint32) uint64 {
	return l.SliceBase(slice) + OffsetControlSet
}

// ControlClear returns the control CLR alias of a slice.
func (l Layout) ControlClear(slice uint32) uint64 {
	return l.SliceBase(slice) + OffsetControlClear
}

// Counter returns the counter register of a slice.
func (l Layout) Counter(slice uint32) uint64 {
	return l.SliceBase(slice) + l.CounterOffset
}

// SliceOf returns the slice an address falls in and its offset within the
// slice. ok is false for addresses outside the peripheral.
func (l Layout) SliceOf(addr uint64) (slice uint32, offset uint64, ok bool) {
	if addr < l.Base || l.SliceStride == 0 {
		return 0, 0, false
	}
	n := (addr - l.Base) / l.SliceStride
	if n >= uint64(l.Slices) {
		return 0, 0, false
	}
	return uint32(n), (addr - l.Base) % l.SliceStride, true
}

// MaxSelector returns the largest selector code the select field holds.
func (l Layout) MaxSelector() uint32 {
	return uint32(1)<<l.SelectorBits - 1
}

// Registry resolves clock root names for one variant.
type Registry interface {
	// Variant returns the variant this registry describes.
	Variant() Variant

	// Lookup resolves a root by name. Matching ignores case and tolerates
	// a missing _CLK_ROOT or _OUT suffix. Returns ErrNotFound otherwise.
	Lookup(name string) (Descriptor, error)

	// All returns every root in canonical (name) order.
	All() []Descriptor

	// Names returns every root name in canonical (name) order.
	Names() []string

	// Layout returns the peripheral register layout.
	Layout() Layout

	// Revision returns the register manifest revision.
	Revision() int

	// ProbeTarget returns the debug probe target name of the variant.
	ProbeTarget() string

	// Contains reports whether d is one of this registry's roots.
	Contains(d Descriptor) bool
}

// manifest is the YAML form of a variant register map.
type manifest struct {
	Variant       string     `yaml:"variant"`
	Description   string     `yaml:"description"`
	Revision      int        `yaml:"revision"`
	ProbeTarget   string     `yaml:"probe_target"`
	Base          uint64     `yaml:"base"`
	SliceStride   uint64     `yaml:"slice_stride"`
	Slices        uint32     `yaml:"slices"`
	SelectorBits  uint       `yaml:"selector_bits"`
	CounterOffset uint64     `yaml:"counter_offset"`
	CounterWidth  uint       `yaml:"counter_width"`
	Roots         []rootSpec `yaml:"roots"`
}

type rootSpec struct {
	Name         string `yaml:"name"`
	Selector     uint32 `yaml:"selector"`
	Slice        uint32 `yaml:"slice"`
	CounterWidth uint   `yaml:"counter_width"`
	FixedDivider uint32 `yaml:"fixed_divider"`
	MaxHz        uint64 `yaml:"max_hz"`
	NominalHz    uint64 `yaml:"nominal_hz"`
}

// table is the manifest-backed Registry implementation.
type table struct {
	variant     Variant
	revision    int
	probeTarget string
	layout      Layout
	roots       []Descriptor
	index       map[string]int
}

// ---------------------------------------------------------------------------
// Cache
// ---------------------------------------------------------------------------

var (
	cacheMu sync.RWMutex
	cache   = make(map[Variant]*table)
)

// ForVariant returns the registry of a variant.
func ForVariant(v Variant) (Registry, error) {
	cacheMu.RLock()
	if t, ok := cache[v]; ok {
		cacheMu.RUnlock()
		return t, nil
	}
	cacheMu.RUnlock()

	data, err := manifestFS.ReadFile("manifests/" + string(v) + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownVariant, string(v), variantList())
	}

	t, err := parseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("variant %s: %w", v, err)
	}
	if t.variant != v {
		return nil, fmt.Errorf("%w: manifest for %s declares variant %q", ErrInvalidManifest, v, t.variant)
	}

	cacheMu.Lock()
	cache[v] = t
	cacheMu.Unlock()

	return t, nil
}

// parseManifest decodes and validates a manifest.
func parseManifest(data []byte) (*table, error) {
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	if m.Slices == 0 || m.SliceStride == 0 {
		return nil, fmt.Errorf("%w: slice count and stride must be set", ErrInvalidManifest)
	}
	if m.SelectorBits == 0 || m.SelectorBits > 16 {
		return nil, fmt.Errorf("%w: selector_bits %d out of range", ErrInvalidManifest, m.SelectorBits)
	}
	if len(m.Roots) == 0 {
		return nil, fmt.Errorf("%w: no roots", ErrInvalidManifest)
	}

	t := &table{
		variant:     Variant(m.Variant),
		revision:    m.Revision,
		probeTarget: m.ProbeTarget,
		layout: Layout{
			Base:          m.Base,
			SliceStride:   m.SliceStride,
			Slices:        m.Slices,
			SelectorBits:  m.SelectorBits,
			CounterOffset: m.CounterOffset,
		},
		roots: make([]Descriptor, 0, len(m.Roots)),
		index: make(map[string]int, len(m.Roots)),
	}

	selectors := make(map[uint32]string, len(m.Roots))
	for _, r := range m.Roots {
		name := strings.ToUpper(r.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: root without a name", ErrInvalidManifest)
		}
		if _, dup := t.index[name]; dup {
			return nil, fmt.Errorf("%w: duplicate root %s", ErrInvalidManifest, name)
		}
		if other, dup := selectors[r.Selector]; dup {
			return nil, fmt.Errorf("%w: %s and %s share selector %d", ErrInvalidManifest, other, name, r.Selector)
		}
		if r.Slice >= m.Slices {
			return nil, fmt.Errorf("%w: %s uses slice %d of %d", ErrInvalidManifest, name, r.Slice, m.Slices)
		}
		if r.Selector > t.layout.MaxSelector() {
			return nil, fmt.Errorf("%w: %s selector %d exceeds %d bits", ErrInvalidManifest, name, r.Selector, m.SelectorBits)
		}

		width := r.CounterWidth
		if width == 0 {
			width = m.CounterWidth
		}
		if width == 0 || width > 32 {
			return nil, fmt.Errorf("%w: %s counter width %d", ErrInvalidManifest, name, width)
		}

		if r.MaxHz != 0 && r.MaxHz < r.NominalHz {
			return nil, fmt.Errorf("%w: %s max_hz %d below nominal %d", ErrInvalidManifest, name, r.MaxHz, r.NominalHz)
		}

		divider := r.FixedDivider
		if divider == 0 {
			divider = 1
		}

		selectors[r.Selector] = name
		t.index[name] = len(t.roots)
		t.roots = append(t.roots, Descriptor{
			Name:           name,
			Selector:       r.Selector,
			Slice:          r.Slice,
			CounterAddress: t.layout.Counter(r.Slice),
			CounterWidth:   width,
			FixedDivider:   divider,
			MaxHz:          r.MaxHz,
			NominalHz:      r.NominalHz,
		})
	}

	// Canonical order is by name, independent of manifest layout.
	slices.SortFunc(t.roots, func(a, b Descriptor) int { return cmp.Compare(a.Name, b.Name) })
	for i, d := range t.roots {
		t.index[d.Name] = i
	}

	return t, nil
}

func (t *table) Variant() Variant    { return t.variant }
func (t *table) Layout() Layout      { return t.layout }
func (t *table) Revision() int       { return t.revision }
func (t *table) ProbeTarget() string { return t.probeTarget }

func (t *table) Lookup(name string) (Descriptor, error) {
	key := strings.ToUpper(strings.TrimSpace(name))

	candidates := []string{key}
	if !strings.HasSuffix(key, suffixClkRoot) {
		candidates = append(candidates, key+suffixClkRoot)
	}
	if !strings.HasSuffix(key, suffixOut) {
		candidates = append(candidates, key+suffixOut)
	}

	for _, c := range candidates {
		if i, ok := t.index[c]; ok {
			return t.roots[i], nil
		}
	}
	return Descriptor{}, fmt.Errorf("%w: %q on %s", ErrNotFound, name, t.variant)
}

func (t *table) All() []Descriptor {
	out := make([]Descriptor, len(t.roots))
	copy(out, t.roots)
	return out
}

func (t *table) Names() []string {
	out := make([]string, len(t.roots))
	for i, r := range t.roots {
		out[i] = r.Name
	}
	return out
}

func (t *table) Contains(d Descriptor) bool {
	i, ok := t.index[d.Name]
	return ok && t.roots[i] == d
}

// Compile-time interface satisfaction check.
var _ Registry = (*table)(nil)
