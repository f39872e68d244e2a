package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/imxrt-tools/ccmobs-go/pkg/log"
)

// RunExport exports the trace file to the specified format.
func RunExport(path, format, output string) error {
	if format != "jsonl" && format != "csv" {
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if format == "csv" {
		return exportCSV(reader, w)
	}
	return exportJSONL(reader, w)
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for event, err := range reader.All() {
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "run_id", "layer", "category", "variant", "root", "type", "address", "value", "hz"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for event, err := range reader.All() {
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		var addr, value, hz string
		switch {
		case event.Probe != nil:
			if event.Probe.Op == log.ProbeOpRead32 || event.Probe.Op == log.ProbeOpWrite32 {
				addr = fmt.Sprintf("0x%08X", event.Probe.Address)
				value = fmt.Sprintf("0x%08X", event.Probe.Value)
			}
		case event.Sample != nil:
			hz = strconv.FormatUint(event.Sample.FrequencyHz, 10)
		}

		row := []string{
			event.Timestamp.UTC().Format(timestampFormat),
			event.RunID,
			event.Layer.String(),
			event.Category.String(),
			event.Variant,
			event.Root,
			typeLabel(event),
			addr,
			value,
			hz,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}
