package log

import (
	"time"
)

// Event represents a trace event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// RunID identifies the observation run (UUID).
	RunID string `cbor:"2,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Direction of a transport frame. Unused by other layers.
	Direction Direction `cbor:"5,keyasint,omitempty"`

	// Variant is the MCU variant being observed.
	Variant string `cbor:"6,keyasint,omitempty"`

	// Root is the clock root the event concerns, if any.
	Root string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Probe       *ProbeEvent       `cbor:"10,keyasint,omitempty"` // Probe layer
	Frame       *FrameEvent       `cbor:"11,keyasint,omitempty"` // Transport layer
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Observe layer
	Sample      *SampleEvent      `cbor:"13,keyasint,omitempty"` // Observe layer
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of frame flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming frame.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing frame.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerProbe is the register access layer.
	LayerProbe Layer = 0
	// LayerTransport is the remote probe framing layer.
	LayerTransport Layer = 1
	// LayerObserve is the measurement layer.
	LayerObserve Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerProbe:
		return "PROBE"
	case LayerTransport:
		return "TRANSPORT"
	case LayerObserve:
		return "OBSERVE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryIO indicates a register access or frame.
	CategoryIO Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategorySample indicates a completed sample window.
	CategorySample Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryIO:
		return "IO"
	case CategoryState:
		return "STATE"
	case CategorySample:
		return "SAMPLE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ProbeOp identifies a probe operation.
type ProbeOp uint8

const (
	ProbeOpConnect ProbeOp = 0
	ProbeOpRead32  ProbeOp = 1
	ProbeOpWrite32 ProbeOp = 2
	ProbeOpFlush   ProbeOp = 3
)

// String returns the operation name.
func (o ProbeOp) String() string {
	switch o {
	case ProbeOpConnect:
		return "CONNECT"
	case ProbeOpRead32:
		return "READ32"
	case ProbeOpWrite32:
		return "WRITE32"
	case ProbeOpFlush:
		return "FLUSH"
	default:
		return "UNKNOWN"
	}
}

// ProbeEvent captures a single probe operation.
type ProbeEvent struct {
	// Op is the operation performed.
	Op ProbeOp `cbor:"1,keyasint"`

	// Address is the register address (read/write only).
	Address uint64 `cbor:"2,keyasint,omitempty"`

	// Value is the value read or written.
	Value uint32 `cbor:"3,keyasint,omitempty"`

	// Duration is how long the operation took. Stored as nanoseconds.
	Duration time.Duration `cbor:"4,keyasint,omitempty"`
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// StateChangeEvent captures a clock root moving through the observation
// state machine.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Sample is the 1-based sample index while sampling.
	Sample int `cbor:"3,keyasint,omitempty"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// SampleEvent captures one completed sample window.
type SampleEvent struct {
	// Index is the 1-based sample index.
	Index int `cbor:"1,keyasint"`

	// Start and End are the raw counter readings.
	Start uint32 `cbor:"2,keyasint"`
	End   uint32 `cbor:"3,keyasint"`

	// Delta is the wrap-corrected counter delta.
	Delta uint64 `cbor:"4,keyasint"`

	// Elapsed is the measured window length. Stored as nanoseconds.
	Elapsed time.Duration `cbor:"5,keyasint"`

	// FrequencyHz is the computed frequency.
	FrequencyHz uint64 `cbor:"6,keyasint"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`

	// Fatal is set when the error aborted the run.
	Fatal bool `cbor:"4,keyasint,omitempty"`
}
