// Package observe implements the clock observation measurement protocol.
//
// A measurement run walks an ordered Request of clock roots. For each root
// the Controller routes the root into its CCM_OBS slice and waits for the
// counter to settle, the Sampler times N counter windows against a TimeBase
// and converts the counts to Hz, and the Aggregator records one row with
// the current, minimum and maximum frequency:
//
//	IDLE -> SELECTING -> SETTLING -> SAMPLING(1..N) -> DONE | FAILED
//
// Roots are measured strictly one after another; the peripheral routes a
// single root per slice and the probe session is exclusively owned by the
// run.
//
// # Failure isolation
//
// Probe and measurement errors are recorded on the row they concern and
// the run moves on. Errors wrapping probe.ErrSessionLost, and cancellation
// of the run context, abort the run: completed rows are kept and Run
// returns a *RunError.
//
// Configuration errors (unknown variant or root, empty selection, invalid
// timing) are reported as *ConfigurationError before any probe I/O.
//
// # Counter arithmetic
//
// Slice counters are fixed-width and wrap. WrapDelta computes the modular
// distance between two readings, and a sample whose window could hold a
// full wrap at the root's highest plausible frequency is rejected as
// unreliable instead of being silently folded.
package observe
