package sim

import (
	"errors"

	"github.com/imxrt-tools/ccmobs-go/pkg/probe"
)

// ErrInjected is the default error of an injected fault.
var ErrInjected = errors.New("injected probe fault")

// Fault describes an operation that should fail.
type Fault struct {
	// Op is the operation to fail.
	Op probe.Op

	// Addr restricts the fault to one register. Zero matches any address.
	Addr uint64

	// Root restricts the fault to operations on the slice currently routing
	// this clock root. Empty matches any root.
	Root string

	// After is the number of matching operations that succeed before the
	// fault fires.
	After int

	// Err is the error returned. Defaults to ErrInjected.
	Err error

	// Sticky keeps failing every matching operation once fired.
	Sticky bool

	// Disconnect drops the session when the fault fires. The operation and
	// every later one fail with probe.ErrSessionLost.
	Disconnect bool
}

// armedFault tracks the progress of an injected fault.
type armedFault struct {
	Fault
	seen  int
	fired bool
}

// check counts a matching operation and returns the error to report, if any.
func (f *armedFault) check() error {
	if f.fired && !f.Sticky {
		return nil
	}
	f.seen++
	if f.seen <= f.After {
		return nil
	}
	f.fired = true
	if f.Disconnect {
		return probe.ErrSessionLost
	}
	if f.Err != nil {
		return f.Err
	}
	return ErrInjected
}
