// Package config loads the YAML run configuration shared by the ccmobs
// commands.
//
// A file has three optional sections:
//
//	probe:
//	  address: lab-bench-3.local:4770
//	  connect_timeout: 5s
//	  io_timeout: 2s
//	observe:
//	  variant: imxrt1170
//	  roots: [bus, m7]
//	  settle: 100ms
//	  window: 100ms
//	  samples: 5
//	  divider: 8
//	sim:
//	  jitter_ppm: 50
//	  frequencies:
//	    BUS_CLK_ROOT: 240000000
//
// Durations use Go duration syntax. Missing fields keep the values from
// Default, and command-line flags override both.
package config
