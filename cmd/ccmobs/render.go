package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/imxrt-tools/ccmobs-go/pkg/observe"
)

// format is an output format.
type format string

const (
	formatTable format = "table"
	formatJSON  format = "json"
	formatCSV   format = "csv"
)

func parseFormat(s string) (format, error) {
	switch f := format(strings.ToLower(s)); f {
	case formatTable, formatJSON, formatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format: %s (supported: table, json, csv)", s)
	}
}

// render writes set to w in format f.
func render(w io.Writer, set *observe.MeasurementSet, f format) error {
	switch f {
	case formatJSON:
		return renderJSON(w, set)
	case formatCSV:
		return renderCSV(w, set)
	default:
		return renderTable(w, set)
	}
}

func renderTable(w io.Writer, set *observe.MeasurementSet) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCURRENT_HZ\tMIN_HZ\tMAX_HZ\tMAX-MIN_HZ\t")
	for _, row := range set.Rows() {
		if !row.OK() {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t  error: %v\n", row.Name(), row.Err)
			continue
		}
		m := row.Measurement
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t\n", row.Name(), m.Current, m.Min, m.Max, m.Spread())
	}
	if err := set.Fatal(); err != nil {
		fmt.Fprintf(tw, "aborted: %v\n", err)
	}
	return tw.Flush()
}

type jsonSet struct {
	RunID   string    `json:"run_id"`
	Variant string    `json:"variant"`
	Rows    []jsonRow `json:"rows"`
	Fatal   string    `json:"fatal,omitempty"`
}

type jsonRow struct {
	Name          string  `json:"name"`
	CurrentHz     *uint64 `json:"current_hz,omitempty"`
	MinHz         *uint64 `json:"min_hz,omitempty"`
	MaxHz         *uint64 `json:"max_hz,omitempty"`
	MaxMinusMinHz *uint64 `json:"max_minus_min_hz,omitempty"`
	Samples       int     `json:"samples,omitempty"`
	Error         string  `json:"error,omitempty"`
}

func renderJSON(w io.Writer, set *observe.MeasurementSet) error {
	out := jsonSet{
		RunID:   set.RunID(),
		Variant: string(set.Variant()),
		Rows:    make([]jsonRow, 0, set.Len()),
	}
	for _, row := range set.Rows() {
		jr := jsonRow{Name: row.Name()}
		if row.OK() {
			m := row.Measurement
			spread := m.Spread()
			jr.CurrentHz, jr.MinHz, jr.MaxHz, jr.MaxMinusMinHz = &m.Current, &m.Min, &m.Max, &spread
			jr.Samples = m.Samples
		} else {
			jr.Error = row.Err.Error()
		}
		out.Rows = append(out.Rows, jr)
	}
	if err := set.Fatal(); err != nil {
		out.Fatal = err.Error()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func renderCSV(w io.Writer, set *observe.MeasurementSet) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"name", "current_hz", "min_hz", "max_hz", "max_minus_min_hz", "error"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range set.Rows() {
		rec := []string{row.Name(), "", "", "", "", ""}
		if row.OK() {
			m := row.Measurement
			rec[1] = strconv.FormatUint(m.Current, 10)
			rec[2] = strconv.FormatUint(m.Min, 10)
			rec[3] = strconv.FormatUint(m.Max, 10)
			rec[4] = strconv.FormatUint(m.Spread(), 10)
		} else {
			rec[5] = row.Err.Error()
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
