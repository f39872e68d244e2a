package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/imxrt-tools/ccmobs-go/pkg/observe"
	"github.com/imxrt-tools/ccmobs-go/pkg/registry"
)

const namespace = "ccmobs"

// Frequency stat label values.
const (
	StatCurrent = "current"
	StatMin     = "min"
	StatMax     = "max"
)

// Collector records measurement progress into Prometheus collectors.
type Collector struct {
	registry *prometheus.Registry

	frequency *prometheus.GaugeVec
	spread    *prometheus.GaugeVec
	failures  *prometheus.CounterVec
	window    prometheus.Histogram
	samples   *prometheus.CounterVec
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		frequency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clock_root_frequency_hz",
			Help:      "Measured clock root frequency in Hz",
		}, []string{"variant", "root", "stat"}),
		spread: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clock_root_spread_hz",
			Help:      "Difference between the highest and lowest sample in Hz",
		}, []string{"variant", "root"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clock_root_failures_total",
			Help:      "Clock roots that could not be measured",
		}, []string{"variant", "root", "reason"}),
		window: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sample_window_seconds",
			Help:      "Measured sample window length in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Sample windows taken",
		}, []string{"variant"}),
	}

	c.registry.MustRegister(c.frequency, c.spread, c.failures, c.window, c.samples)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordSample records a sample window.
func (c *Collector) RecordSample(variant registry.Variant, _ registry.Descriptor, s observe.Sample) {
	c.window.Observe(s.Elapsed.Seconds())
	c.samples.WithLabelValues(string(variant)).Inc()
}

// RecordRow records a finished row.
func (c *Collector) RecordRow(variant registry.Variant, row observe.MeasurementRow) {
	v := string(variant)
	if !row.OK() {
		c.failures.WithLabelValues(v, row.Name(), Reason(row.Err)).Inc()
		return
	}

	m := row.Measurement
	c.frequency.WithLabelValues(v, row.Name(), StatCurrent).Set(float64(m.Current))
	c.frequency.WithLabelValues(v, row.Name(), StatMin).Set(float64(m.Min))
	c.frequency.WithLabelValues(v, row.Name(), StatMax).Set(float64(m.Max))
	c.spread.WithLabelValues(v, row.Name()).Set(float64(m.Spread()))
}

// RecordSet records every row of a finished run.
func (c *Collector) RecordSet(set *observe.MeasurementSet) {
	for _, row := range set.Rows() {
		c.RecordRow(set.Variant(), row)
	}
}

// WriteTextfile writes the current metrics in the text exposition format,
// atomically replacing path.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Reason returns a low-cardinality failure label for err.
func Reason(err error) string {
	var perr *observe.ProbeError
	var merr *observe.MeasurementError
	switch {
	case errors.As(err, &merr):
		return string(merr.Kind)
	case errors.As(err, &perr):
		return string(perr.Stage)
	case err == nil:
		return "none"
	default:
		return "other"
	}
}

// Compile-time interface satisfaction check.
var _ observe.Recorder = (*Collector)(nil)
