package observe

import "github.com/imxrt-tools/ccmobs-go/pkg/registry"

// Recorder receives measurement progress. Implementations must not block.
type Recorder interface {
	// RecordSample is called after every successful sample window.
	RecordSample(variant registry.Variant, root registry.Descriptor, s Sample)

	// RecordRow is called for every recorded row.
	RecordRow(variant registry.Variant, row MeasurementRow)
}
