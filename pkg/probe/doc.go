// Package probe defines the debug probe capability the measurement core
// consumes.
//
// A Session gives word-sized access to memory-mapped registers on the
// target. Observation is non-intrusive: the core never resets or halts the
// target, so the capability set is deliberately small:
//
//   - Connect attaches to the target
//   - Read32 reads one 32-bit register
//   - Write32 writes one 32-bit register
//
// Adapters that queue writes also implement Flusher; the core flushes before
// any wait whose accuracy depends on the writes having landed.
//
// # Errors
//
// Every adapter failure is reported as an *Error naming the operation and
// address. Errors wrapping ErrSessionLost mean the probe connection is gone
// and no further operation can succeed; callers treat them as fatal for the
// whole run. ErrTimeout marks an operation that exceeded its I/O bound.
//
// # Implementations
//
//   - probe/sim: an in-memory CCM_OBS model for tests and demos
//   - probe/remote: a client for ccmobs-probed over TCP
//   - probe/mocks: generated testify mocks
//
// Traced wraps any Session and records one trace event per operation.
package probe
