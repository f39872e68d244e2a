package observe

import (
	"math/bits"
	"time"

	"github.com/imxrt-tools/ccmobs-go/pkg/registry"
)

// ratedMarginDiv sets how far above its rated maximum (1/ratedMarginDiv of
// it) a root is still assumed to run when judging wrap risk.
const ratedMarginDiv = 4

// WrapDelta returns the number of counts from start to end on a width-bit
// counter: (end + 2^width - start) mod 2^width.
func WrapDelta(start, end uint32, width uint) uint64 {
	mask := uint64(1)<<width - 1
	return (uint64(end) + (mask + 1) - uint64(start)) & mask
}

// scaleToHz converts a counter delta over elapsed to Hz, undoing the
// prescale. ok is false when the result does not fit in 64 bits.
func scaleToHz(delta, prescale uint64, elapsed time.Duration) (hz uint64, ok bool) {
	hi, counts := bits.Mul64(delta, prescale)
	if hi != 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(counts, uint64(time.Second))
	ns := uint64(elapsed)
	if hi >= ns {
		return 0, false
	}
	hz, _ = bits.Div64(hi, lo, ns)
	return hz, true
}

// mayWrap reports whether a counter running at ceilingHz/prescale could
// complete a full wrap within elapsed.
func mayWrap(ceilingHz, prescale uint64, elapsed time.Duration, width uint) bool {
	hi, lo := bits.Mul64(ceilingHz, uint64(elapsed))
	den := prescale * uint64(time.Second)
	if hi >= den {
		return true
	}
	counts, _ := bits.Div64(hi, lo, den)
	return width < 64 && counts >= uint64(1)<<width
}

// wrapCeiling is the highest frequency d is expected to run at: its rated
// maximum plus margin, or fallback when the register map has none.
func wrapCeiling(d registry.Descriptor, fallback uint64) uint64 {
	if d.MaxHz == 0 {
		return fallback
	}
	return d.MaxHz + d.MaxHz/ratedMarginDiv
}
