package observe

import "github.com/imxrt-tools/ccmobs-go/pkg/registry"

// FrequencyMeasurement holds the statistics of one root's samples.
// Min <= Current <= Max holds once at least one sample was added.
type FrequencyMeasurement struct {
	// Current is the last sample.
	Current uint64

	// Min and Max are the extremes of all samples.
	Min uint64
	Max uint64

	// Samples is the number of samples taken.
	Samples int
}

// Spread returns Max - Min.
func (m FrequencyMeasurement) Spread() uint64 {
	return m.Max - m.Min
}

func (m *FrequencyMeasurement) add(hz uint64) {
	if m.Samples == 0 || hz < m.Min {
		m.Min = hz
	}
	if m.Samples == 0 || hz > m.Max {
		m.Max = hz
	}
	m.Current = hz
	m.Samples++
}

// MeasurementRow is the outcome for one requested root.
type MeasurementRow struct {
	Root registry.Descriptor

	// State is StateDone or StateFailed.
	State State

	// Measurement is valid when State is StateDone.
	Measurement FrequencyMeasurement

	// Err is the recorded failure when State is StateFailed.
	Err error
}

// Name returns the root name in registry casing.
func (r MeasurementRow) Name() string { return r.Root.Name }

// OK reports whether the root was measured.
func (r MeasurementRow) OK() bool { return r.State == StateDone }

// MeasurementSet is the ordered result of a run.
type MeasurementSet struct {
	runID   string
	variant registry.Variant
	rows    []MeasurementRow
	fatal   error
}

// RunID returns the run identifier.
func (s *MeasurementSet) RunID() string { return s.runID }

// Variant returns the measured variant.
func (s *MeasurementSet) Variant() registry.Variant { return s.variant }

// Rows returns the rows in request order.
func (s *MeasurementSet) Rows() []MeasurementRow {
	out := make([]MeasurementRow, len(s.rows))
	copy(out, s.rows)
	return out
}

// Len returns the number of rows.
func (s *MeasurementSet) Len() int { return len(s.rows) }

// Measured returns the number of measured rows.
func (s *MeasurementSet) Measured() int {
	n := 0
	for _, r := range s.rows {
		if r.OK() {
			n++
		}
	}
	return n
}

// Failed returns the number of failed rows.
func (s *MeasurementSet) Failed() int { return len(s.rows) - s.Measured() }

// Fatal returns the error that aborted the run, or nil.
func (s *MeasurementSet) Fatal() error { return s.fatal }
