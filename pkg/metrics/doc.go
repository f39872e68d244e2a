// Package metrics exports measurement results as Prometheus metrics.
//
// Collector implements observe.Recorder and keeps its own registry, so the
// results of one run can be written to a node-exporter textfile or served
// by a long-running probe server without touching the global registry.
//
// Exported series:
//
//	ccmobs_clock_root_frequency_hz{variant,root,stat}   current, min, max
//	ccmobs_clock_root_spread_hz{variant,root}           max - min
//	ccmobs_clock_root_failures_total{variant,root,reason}
//	ccmobs_sample_window_seconds                        measured windows
//	ccmobs_samples_total{variant}
package metrics
