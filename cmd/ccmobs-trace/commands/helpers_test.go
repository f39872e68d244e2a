package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/imxrt-tools/ccmobs-go/pkg/log"
)

const testRunID = "9f1c2e4a-0000-4000-8000-000000000001"

func createTestTraceFile(t *testing.T, events []log.Event) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.ctrace")
	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()
	return path
}

// sampleRun returns the events of a one-root measurement run.
func sampleRun(ts time.Time) []log.Event {
	return []log.Event{
		{
			Timestamp: ts, RunID: testRunID, Layer: log.LayerProbe, Category: log.CategoryIO,
			Variant: "imxrt1170",
			Probe:   &log.ProbeEvent{Op: log.ProbeOpConnect, Duration: 2 * time.Millisecond},
		},
		{
			Timestamp: ts.Add(time.Millisecond), RunID: testRunID, Layer: log.LayerProbe, Category: log.CategoryIO,
			Variant: "imxrt1170", Root: "M7_CLK_ROOT",
			Probe: &log.ProbeEvent{Op: log.ProbeOpWrite32, Address: 0x40150200, Value: 0x80, Duration: 50 * time.Microsecond},
		},
		{
			Timestamp: ts.Add(2 * time.Millisecond), RunID: testRunID, Layer: log.LayerObserve, Category: log.CategoryState,
			Variant: "imxrt1170", Root: "M7_CLK_ROOT",
			StateChange: &log.StateChangeEvent{OldState: "SETTLING", NewState: "SAMPLING", Sample: 1},
		},
		{
			Timestamp: ts.Add(120 * time.Millisecond), RunID: testRunID, Layer: log.LayerObserve, Category: log.CategorySample,
			Variant: "imxrt1170", Root: "M7_CLK_ROOT",
			Sample: &log.SampleEvent{Index: 1, Start: 0x10, End: 0x5F5E110, Delta: 100000000, Elapsed: 100 * time.Millisecond, FrequencyHz: 1000000000},
		},
		{
			Timestamp: ts.Add(130 * time.Millisecond), RunID: testRunID, Layer: log.LayerObserve, Category: log.CategoryError,
			Variant: "imxrt1170", Root: "BUS_CLK_ROOT",
			Error: &log.ErrorEventData{Layer: log.LayerProbe, Message: "read timeout", Context: "sample", Fatal: true},
		},
	}
}
