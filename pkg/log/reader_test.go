package log

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func createTestTraceFile(t *testing.T, events []Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.ctrace")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create test trace: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func readAll(t *testing.T, r *Reader) []Event {
	t.Helper()
	var read []Event
	for {
		event, err := r.Next()
		if err == io.EOF {
			return read
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		read = append(read, event)
	}
}

func TestReaderIteratesEvents(t *testing.T) {
	events := []Event{
		{Timestamp: time.Now(), RunID: "run-1", Layer: LayerProbe, Category: CategoryIO},
		{Timestamp: time.Now(), RunID: "run-1", Layer: LayerObserve, Category: CategoryState},
		{Timestamp: time.Now(), RunID: "run-1", Layer: LayerObserve, Category: CategorySample},
	}
	path := createTestTraceFile(t, events)

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	read := readAll(t, reader)
	if len(read) != 3 {
		t.Fatalf("got %d events, want 3", len(read))
	}
	if read[2].Category != CategorySample {
		t.Errorf("last event Category = %v, want %v", read[2].Category, CategorySample)
	}
}

func TestReaderHandlesEmptyFile(t *testing.T) {
	path := createTestTraceFile(t, nil)

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	if event, err := reader.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got err=%v, event=%+v", err, event)
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing.ctrace")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReaderFilters(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	events := []Event{
		{Timestamp: base.Add(-time.Hour), RunID: "run-A", Root: "M7_CLK_ROOT", Layer: LayerProbe, Category: CategoryIO},
		{Timestamp: base, RunID: "run-A", Root: "BUS_CLK_ROOT", Layer: LayerObserve, Category: CategoryState},
		{Timestamp: base.Add(time.Minute), RunID: "run-B", Root: "BUS_CLK_ROOT", Layer: LayerObserve, Category: CategorySample},
		{Timestamp: base.Add(time.Hour), RunID: "run-B", Root: "M7_CLK_ROOT", Layer: LayerObserve, Category: CategoryError, Variant: "imxrt1180"},
	}
	path := createTestTraceFile(t, events)

	observe := LayerObserve
	sample := CategorySample
	start := base
	end := base.Add(30 * time.Minute)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"run id", Filter{RunID: "run-A"}, 2},
		{"root", Filter{Root: "BUS_CLK_ROOT"}, 2},
		{"layer", Filter{Layer: &observe}, 3},
		{"category", Filter{Category: &sample}, 1},
		{"time range", Filter{TimeStart: &start, TimeEnd: &end}, 2},
		{"combined", Filter{RunID: "run-B", Layer: &observe, Root: "M7_CLK_ROOT"}, 1},
		{"variant", Filter{Variant: "imxrt1180"}, 1},
		{"none", Filter{}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, err := NewFilteredReader(path, tt.filter)
			if err != nil {
				t.Fatalf("NewFilteredReader failed: %v", err)
			}
			defer reader.Close()

			if got := len(readAll(t, reader)); got != tt.want {
				t.Errorf("got %d events, want %d", got, tt.want)
			}
		})
	}
}

func TestReaderAllAndSkipped(t *testing.T) {
	events := []Event{
		{RunID: "run-A", Layer: LayerProbe},
		{RunID: "run-B", Layer: LayerProbe},
		{RunID: "run-A", Layer: LayerObserve},
	}
	path := createTestTraceFile(t, events)

	reader, err := NewFilteredReader(path, Filter{RunID: "run-A"})
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	var layers []Layer
	for event, err := range reader.All() {
		if err != nil {
			t.Fatalf("All yielded error: %v", err)
		}
		layers = append(layers, event.Layer)
	}
	if len(layers) != 2 || layers[0] != LayerProbe || layers[1] != LayerObserve {
		t.Errorf("layers = %v, want [PROBE OBSERVE]", layers)
	}
	if reader.Skipped() != 1 {
		t.Errorf("Skipped() = %d, want 1", reader.Skipped())
	}
}

func TestReaderAllStopsOnCorruptTail(t *testing.T) {
	path := createTestTraceFile(t, []Event{{RunID: "run-A"}})
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	f.Write([]byte{0xA2, 0x01}) // map header with a missing value
	f.Close()

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	var n, errs int
	for _, err := range reader.All() {
		if err != nil {
			errs++
			continue
		}
		n++
	}
	if n != 1 || errs != 1 {
		t.Errorf("events = %d, errors = %d; want 1 and 1", n, errs)
	}
}
