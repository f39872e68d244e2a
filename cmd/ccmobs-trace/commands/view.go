// Package commands implements the ccmobs-trace CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/imxrt-tools/ccmobs-go/pkg/log"
)

// timestampFormat is the display format of event timestamps.
const timestampFormat = "2006-01-02T15:04:05.000000Z"

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [run:id] LAYER Type [root]
	ts := event.Timestamp.UTC().Format(timestampFormat)

	fmt.Fprintf(w, "%s [run:%s] %s %s", ts, shortenID(event.RunID), event.Layer.String(), typeLabel(event))
	if event.Root != "" {
		fmt.Fprintf(w, " %s", event.Root)
	}
	fmt.Fprintln(w)

	switch {
	case event.Probe != nil:
		formatProbeDetails(w, event.Probe)
	case event.Frame != nil:
		fmt.Fprintf(w, "  %s %d bytes\n", event.Direction.String(), event.Frame.Size)
		if len(event.Frame.Data) > 0 {
			fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(event.Frame.Data))
			if event.Frame.Truncated {
				fmt.Fprint(w, " (truncated)")
			}
			fmt.Fprintln(w)
		}
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Sample != nil:
		s := event.Sample
		fmt.Fprintf(w, "  Sample %d: %d Hz (delta %d over %s, counter 0x%08X -> 0x%08X)\n",
			s.Index, s.FrequencyHz, s.Delta, formatDuration(s.Elapsed), s.Start, s.End)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// typeLabel names the payload of an event.
func typeLabel(event log.Event) string {
	switch {
	case event.Probe != nil:
		return event.Probe.Op.String()
	case event.Frame != nil:
		return "Frame"
	case event.StateChange != nil:
		return "State"
	case event.Sample != nil:
		return "Sample"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// shortenID returns the first 8 characters of an ID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatProbeDetails(w io.Writer, p *log.ProbeEvent) {
	switch p.Op {
	case log.ProbeOpRead32, log.ProbeOpWrite32:
		fmt.Fprintf(w, "  0x%08X = 0x%08X (%s)\n", p.Address, p.Value, formatDuration(p.Duration))
	default:
		fmt.Fprintf(w, "  took %s\n", formatDuration(p.Duration))
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	newState := sc.NewState
	if sc.Sample > 0 {
		newState = fmt.Sprintf("%s(%d)", newState, sc.Sample)
	}
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, newState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", newState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
	if err.Fatal {
		fmt.Fprintln(w, "  Fatal: yes")
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseLayerFlag parses a layer name (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "probe":
		return log.LayerProbe, nil
	case "transport":
		return log.LayerTransport, nil
	case "observe":
		return log.LayerObserve, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be probe, transport, or observe)", s)
	}
}

// ParseCategoryFlag parses a category name (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "io":
		return log.CategoryIO, nil
	case "state":
		return log.CategoryState, nil
	case "sample":
		return log.CategorySample, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be io, state, sample, or error)", s)
	}
}

// RunView prints the events of the trace file that match filter.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	for event, err := range reader.All() {
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
	return nil
}
