package probe

import (
	"errors"
	"fmt"
)

// Probe errors.
var (
	// ErrSessionLost means the connection to the probe or target is gone.
	ErrSessionLost = errors.New("probe session lost")

	// ErrTimeout means an operation exceeded its time bound.
	ErrTimeout = errors.New("probe operation timed out")

	// ErrNotConnected means an operation was attempted before Connect.
	ErrNotConnected = errors.New("probe not connected")
)

// Op names a probe operation in errors.
type Op string

// Probe operations.
const (
	OpConnect Op = "connect"
	OpRead32  Op = "read32"
	OpWrite32 Op = "write32"
	OpFlush   Op = "flush"
)

// Error is a failed probe operation.
type Error struct {
	Op   Op
	Addr uint64
	Err  error
}

func (e *Error) Error() string {
	switch e.Op {
	case OpRead32, OpWrite32:
		return fmt.Sprintf("probe %s 0x%08X: %v", e.Op, e.Addr, e.Err)
	default:
		return fmt.Sprintf("probe %s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsSessionLost reports whether err means the session can no longer be used.
func IsSessionLost(err error) bool {
	return errors.Is(err, ErrSessionLost)
}
