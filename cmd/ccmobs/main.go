// Command ccmobs measures the frequencies of i.MX RT clock roots through
// the CCM_OBS clock observation peripheral.
//
// Usage:
//
//	ccmobs [flags] <variant> [clock_root_name ...]
//
// Without root names every root of the variant is measured in register map
// order. Names are case-insensitive and may omit the _CLK_ROOT or _OUT
// suffix.
//
// Exit status is 0 when at least one root was measured, 1 when the probe
// session failed or no root could be measured, and 2 on usage or
// configuration errors.
//
// Examples:
//
//	# List the roots of a variant
//	ccmobs -list imxrt1170
//
//	# Measure two roots through a remote probe server
//	ccmobs -probe lab-bench-3.local:4770 imxrt1170 bus m7
//
//	# Find a probe server via mDNS and write JSON
//	ccmobs -discover -format json imxrt1180
//
//	# Try the tool against the simulator
//	ccmobs -sim -samples 3 imxrt1170 bus
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
