package probe

import "context"

// Session is register-level access to a target through a debug probe.
// A Session is owned by one run at a time and is not safe for concurrent use.
type Session interface {
	// Connect attaches to the target. Calling Connect on a connected
	// session is a no-op.
	Connect(ctx context.Context) error

	// Read32 reads the 32-bit register at addr.
	Read32(ctx context.Context, addr uint64) (uint32, error)

	// Write32 writes value to the 32-bit register at addr.
	Write32(ctx context.Context, addr uint64, value uint32) error
}

// Flusher is implemented by sessions that may queue writes.
// Flush returns once every queued write has reached the target.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Flush flushes s if it implements Flusher.
func Flush(ctx context.Context, s Session) error {
	if f, ok := s.(Flusher); ok {
		return f.Flush(ctx)
	}
	return nil
}
