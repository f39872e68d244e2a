package observe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/imxrt-tools/ccmobs-go/pkg/probe"
	"github.com/imxrt-tools/ccmobs-go/pkg/registry"
)

// Measurement errors.
var (
	ErrUnsupportedRoot = errors.New("clock root not supported by register map")
	ErrEmptySelection  = errors.New("no clock roots selected")
	ErrInvalidConfig   = errors.New("invalid configuration")
)

// ConfigurationError is a problem with the requested run, reported before
// any probe I/O.
type ConfigurationError struct {
	// Variant is the variant the request was made for, if known.
	Variant registry.Variant

	// Name is the offending variant or root name, if any.
	Name string

	// Valid lists the accepted names.
	Valid []string

	Err error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	switch {
	case errors.Is(e.Err, registry.ErrUnknownVariant):
		fmt.Fprintf(&b, "unknown variant %q", e.Name)
	case errors.Is(e.Err, registry.ErrNotFound):
		fmt.Fprintf(&b, "unknown clock root %q for %s", e.Name, e.Variant)
	default:
		b.WriteString(e.Err.Error())
	}
	if len(e.Valid) > 0 {
		fmt.Fprintf(&b, " (valid: %s)", strings.Join(e.Valid, ", "))
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Stage names the protocol step a probe error occurred in.
type Stage string

// Protocol stages.
const (
	StageConnect Stage = "connect"
	StageSelect  Stage = "select"
	StageSettle  Stage = "settle"
	StageSample  Stage = "sample"
	StageRelease Stage = "release"
)

// ProbeError is a probe failure during one stage of measuring a root.
type ProbeError struct {
	Stage Stage
	Root  string
	Err   error
}

func (e *ProbeError) Error() string {
	if e.Root == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Root, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// Fatal reports whether the error ends the session.
func (e *ProbeError) Fatal() bool {
	return probe.IsSessionLost(e.Err)
}

// MeasurementKind classifies a rejected sample.
type MeasurementKind string

// Measurement error kinds.
const (
	// KindUnreliable - the window could span a full counter wrap.
	KindUnreliable MeasurementKind = "unreliable"

	// KindImplausible - the result exceeds the frequency ceiling.
	KindImplausible MeasurementKind = "implausible"

	// KindZeroWindow - the measured window had no duration.
	KindZeroWindow MeasurementKind = "zero-window"
)

// MeasurementError is a sample that could not be turned into a frequency.
type MeasurementError struct {
	Root   string
	Sample int
	Kind   MeasurementKind
	Detail string
}

func (e *MeasurementError) Error() string {
	msg := fmt.Sprintf("%s sample %d: %s measurement", e.Root, e.Sample, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// RunError is a fatal error that aborted a run.
type RunError struct {
	// Completed is the number of rows recorded before the abort.
	Completed int

	Err error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run aborted after %d rows: %v", e.Completed, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// isFatal reports whether err must end the run.
func isFatal(ctx context.Context, err error) bool {
	return probe.IsSessionLost(err) || ctx.Err() != nil
}
