// Command ccmobs-trace views and analyzes ccmobs trace files.
//
// Trace files are written by ccmobs when run with the -trace flag.
//
// Usage:
//
//	ccmobs-trace <command> [flags] <file.ctrace>
//
// Commands:
//
//	view     View trace file in human-readable format
//	export   Export trace file to JSONL or CSV format
//	filter   Filter trace file and write to new file
//	stats    Show statistics about the trace file
//
// Examples:
//
//	# View all events
//	ccmobs-trace view run.ctrace
//
//	# View only the samples of one root
//	ccmobs-trace view -category sample -root M7_CLK_ROOT run.ctrace
//
//	# Export to CSV
//	ccmobs-trace export -format csv -o run.csv run.ctrace
//
//	# Show statistics
//	ccmobs-trace stats run.ctrace
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/imxrt-tools/ccmobs-go/cmd/ccmobs-trace/commands"
)

const usage = `ccmobs-trace - ccmobs Trace Analyzer

Usage:
  ccmobs-trace <command> [flags] <file.ctrace>

Commands:
  view     View trace file in human-readable format
  export   Export trace file to JSONL or CSV format
  filter   Filter trace file and write to new file
  stats    Show statistics about the trace file

Use "ccmobs-trace <command> -help" for more information about a command.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprint(stderr, usage)
		return 1
	}

	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "view":
		err = runView(rest, stdout, stderr)
	case "export":
		err = runExport(rest, stderr)
	case "filter":
		err = runFilter(rest, stdout, stderr)
	case "stats":
		err = runStats(rest, stdout, stderr)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(stderr, usage)
		return 1
	}

	if err == flag.ErrHelp {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// newFlagSet returns a flag set whose usage names the subcommand.
func newFlagSet(name, synopsis string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "ccmobs-trace %s - %s\n\nUsage:\n  ccmobs-trace %s [flags] <file.ctrace>\n\nFlags:\n", name, synopsis, name)
		fs.PrintDefaults()
	}
	return fs
}

// tracePath returns the single positional argument.
func tracePath(fs *flag.FlagSet) (string, error) {
	if fs.NArg() < 1 {
		fs.Usage()
		return "", fmt.Errorf("trace file path required")
	}
	return fs.Arg(0), nil
}

func filterFlags(fs *flag.FlagSet) *commands.FilterOptions {
	opts := &commands.FilterOptions{}
	fs.StringVar(&opts.RunID, "run-id", "", "Filter by run ID")
	fs.StringVar(&opts.Variant, "variant", "", "Filter by MCU variant")
	fs.StringVar(&opts.Root, "root", "", "Filter by clock root name")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&opts.Layer, "layer", "", "Filter by layer (probe, transport, observe)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (io, state, sample, error)")
	return opts
}

func runView(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("view", "View trace file in human-readable format", stderr)
	opts := filterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := tracePath(fs)
	if err != nil {
		return err
	}

	filter, err := opts.Build()
	if err != nil {
		return err
	}
	return commands.RunView(path, filter, stdout)
}

func runExport(args []string, stderr io.Writer) error {
	fs := newFlagSet("export", "Export trace file to JSONL or CSV format", stderr)
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := tracePath(fs)
	if err != nil {
		return err
	}
	return commands.RunExport(path, *format, *output)
}

func runFilter(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("filter", "Filter trace file and write to new file", stderr)
	output := fs.String("o", "", "Output file (required)")
	opts := filterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := tracePath(fs)
	if err != nil {
		return err
	}
	return commands.RunFilter(path, *output, *opts, stdout)
}

func runStats(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("stats", "Show statistics about the trace file", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := tracePath(fs)
	if err != nil {
		return err
	}
	return commands.RunStats(path, stdout)
}
