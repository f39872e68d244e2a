package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/imxrt-tools/ccmobs-go/pkg/log"
)

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	TotalEvents      int
	EventsByLayer    map[log.Layer]int
	EventsByCategory map[log.Category]int
	ProbeOps         map[log.ProbeOp]int
	Runs             map[string]*RunSummary
	Errors           int
	FatalErrors      int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// RunSummary holds statistics for one measurement run.
type RunSummary struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Variant   string
	Samples   int

	// Roots maps a root to the frequency of its last sample.
	Roots map[string]uint64

	// ProbeTime is the summed duration of probe operations.
	ProbeTime time.Duration
}

// RunStats analyzes the trace file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:    make(map[log.Layer]int),
		EventsByCategory: make(map[log.Category]int),
		ProbeOps:         make(map[log.ProbeOp]int),
		Runs:             make(map[string]*RunSummary),
	}

	for event, err := range reader.All() {
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}

	printStats(w, stats)
	return nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	run, ok := s.Runs[event.RunID]
	if !ok {
		run = &RunSummary{
			FirstSeen: event.Timestamp,
			LastSeen:  event.Timestamp,
			Roots:     make(map[string]uint64),
		}
		s.Runs[event.RunID] = run
	}
	run.Events++
	if event.Timestamp.After(run.LastSeen) {
		run.LastSeen = event.Timestamp
	}
	if event.Variant != "" && run.Variant == "" {
		run.Variant = event.Variant
	}

	switch {
	case event.Probe != nil:
		s.ProbeOps[event.Probe.Op]++
		run.ProbeTime += event.Probe.Duration
	case event.Sample != nil:
		run.Samples++
		if event.Root != "" {
			run.Roots[event.Root] = event.Sample.FrequencyHz
		}
	case event.Error != nil:
		s.Errors++
		if event.Error.Fatal {
			s.FatalErrors++
		}
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== ccmobs Trace Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerProbe, log.LayerTransport, log.LayerObserve} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryIO, log.CategoryState, log.CategorySample, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.ProbeOps) > 0 {
		fmt.Fprintln(w, "Probe Operations:")
		for _, op := range []log.ProbeOp{log.ProbeOpConnect, log.ProbeOpRead32, log.ProbeOpWrite32, log.ProbeOpFlush} {
			if count := stats.ProbeOps[op]; count > 0 {
				fmt.Fprintf(w, "  %-12s %d\n", op.String()+":", count)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Runs: %d\n", len(stats.Runs))
	if len(stats.Runs) > 0 {
		type runInfo struct {
			id    string
			stats *RunSummary
		}
		runs := make([]runInfo, 0, len(stats.Runs))
		for id, rs := range stats.Runs {
			runs = append(runs, runInfo{id, rs})
		}
		sort.Slice(runs, func(i, j int) bool {
			return runs[i].stats.FirstSeen.Before(runs[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, r := range runs {
			duration := r.stats.LastSeen.Sub(r.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenID(r.id), r.stats.Events, duration)
			if r.stats.Variant != "" {
				fmt.Fprintf(w, "           Variant: %s\n", r.stats.Variant)
			}
			if r.stats.Samples > 0 {
				fmt.Fprintf(w, "           Samples: %d\n", r.stats.Samples)
			}
			if r.stats.ProbeTime > 0 {
				fmt.Fprintf(w, "           Probe time: %s\n", formatDuration(r.stats.ProbeTime))
			}
			roots := make([]string, 0, len(r.stats.Roots))
			for name := range r.stats.Roots {
				roots = append(roots, name)
			}
			sort.Strings(roots)
			for _, name := range roots {
				fmt.Fprintf(w, "           %s: %d Hz\n", name, r.stats.Roots[name])
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d (fatal: %d)\n", stats.Errors, stats.FatalErrors)
	}
}
