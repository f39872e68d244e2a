package wire

// Operation represents a remote probe operation.
type Operation uint8

const (
	// OpHello negotiates the protocol version. Must be the first request.
	OpHello Operation = 1

	// OpRead32 reads a 32-bit word at Addr.
	OpRead32 Operation = 2

	// OpWrite32 writes Value to the 32-bit word at Addr.
	OpWrite32 Operation = 3

	// OpFlush completes all posted writes on the target.
	OpFlush Operation = 4
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OpHello:
		return "Hello"
	case OpRead32:
		return "Read32"
	case OpWrite32:
		return "Write32"
	case OpFlush:
		return "Flush"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the operation is a known probe operation.
func (o Operation) IsValid() bool {
	return o >= OpHello && o <= OpFlush
}
