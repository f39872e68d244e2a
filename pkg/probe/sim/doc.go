// Package sim provides a simulated i.MX RT target for the probe.Session
// capability.
//
// The Target models the CCM_OBS slices of one variant: control register
// writes (including the SET and CLR aliases) route a clock root into the
// slice counter, and the counter advances at the root frequency divided by
// the programmed observation divider and the root's fixed divider. Time is
// taken from a Clock, normally a VirtualClock shared with the code under
// test so that settle and sample waits complete instantly and results are
// reproducible.
//
// Faults can be injected to fail a specific read or write, or to drop the
// session entirely. Every operation is recorded in a call log.
package sim
