// Package interactive provides the interactive shell of ccmobs.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/imxrt-tools/ccmobs-go/pkg/observe"
	"github.com/imxrt-tools/ccmobs-go/pkg/probe"
	"github.com/imxrt-tools/ccmobs-go/pkg/registry"
)

// Runner measures roots on an open probe session.
type Runner interface {
	Measure(ctx context.Context, names []string, cfg observe.Config) (*observe.MeasurementSet, error)
}

// Config configures a Shell.
type Config struct {
	// Registry of the variant being measured. Required.
	Registry registry.Registry

	// Runner performs the measurements. Required.
	Runner Runner

	// Observe holds the initial measurement settings.
	Observe observe.Config

	// Roots measured by a bare "measure". Empty means all roots.
	Roots []string

	// Render prints a measurement set.
	Render func(w io.Writer, set *observe.MeasurementSet) error

	// Out receives command output. Defaults to stdout.
	Out io.Writer
}

// Shell is the interactive command loop.
type Shell struct {
	reg    registry.Registry
	runner Runner
	render func(w io.Writer, set *observe.MeasurementSet) error
	out    io.Writer

	observe observe.Config
	roots   []string
}

// New creates a shell.
func New(cfg Config) (*Shell, error) {
	if cfg.Registry == nil || cfg.Runner == nil {
		return nil, errors.New("interactive: registry and runner are required")
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Render == nil {
		cfg.Render = func(io.Writer, *observe.MeasurementSet) error { return nil }
	}
	return &Shell{
		reg:     cfg.Registry,
		runner:  cfg.Runner,
		render:  cfg.Render,
		out:     cfg.Out,
		observe: cfg.Observe,
		roots:   cfg.Roots,
	}, nil
}

// Run reads commands until quit, EOF or ctx is done.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("ccmobs[%s]> ", s.reg.Variant()),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    s.completer(),
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	s.out = rl.Stdout()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return nil
		}

		if s.Execute(ctx, line) {
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return nil
		}
	}
}

// Execute runs one command line. It returns true when the shell should exit.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()
	case "list", "l":
		s.cmdList()
	case "measure", "m":
		s.cmdMeasure(ctx, args)
	case "set":
		s.cmdSet(args)
	case "show":
		s.cmdShow()
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
ccmobs Commands:
  list               - List the clock roots of the variant
  measure [roots]    - Measure roots (default: configured roots, or all)
  set <key> <value>  - Change a setting: settle, window, samples, divider
  show               - Show the current settings
  help               - Show this help
  quit               - Exit`)
}

func (s *Shell) cmdList() {
	for _, d := range s.reg.All() {
		fmt.Fprintf(s.out, "  %-22s selector=%-3d slice=%d\n", d.Name, d.Selector, d.Slice)
	}
}

func (s *Shell) cmdMeasure(ctx context.Context, args []string) {
	names := args
	if len(names) == 0 {
		names = s.roots
	}

	set, err := s.runner.Measure(ctx, names, s.observe)
	if set != nil {
		if rerr := s.render(s.out, set); rerr != nil {
			fmt.Fprintf(s.out, "Error: %v\n", rerr)
		}
	}
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		if probe.IsSessionLost(err) {
			fmt.Fprintln(s.out, "Probe session lost; the next measure reconnects.")
		}
	}
}

func (s *Shell) cmdSet(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(s.out, "Usage: set <settle|window|samples|divider> <value>")
		return
	}

	next := s.observe
	key, val := strings.ToLower(args[0]), args[1]
	switch key {
	case "settle", "window":
		d, err := time.ParseDuration(val)
		if err != nil {
			fmt.Fprintf(s.out, "Invalid duration: %v\n", err)
			return
		}
		if key == "settle" {
			next.Settle = d
		} else {
			next.Window = d
		}
	case "samples":
		n, err := strconv.Atoi(val)
		if err != nil {
			fmt.Fprintf(s.out, "Invalid number: %s\n", val)
			return
		}
		next.Samples = n
	case "divider":
		n, err := strconv.ParseUint(val, 10, 32)
		if err != nil {
			fmt.Fprintf(s.out, "Invalid number: %s\n", val)
			return
		}
		next.Divider = uint32(n)
	default:
		fmt.Fprintf(s.out, "Unknown setting: %s\n", key)
		return
	}

	if err := next.Validate(); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	s.observe = next
	fmt.Fprintf(s.out, "%s = %s\n", key, val)
}

func (s *Shell) cmdShow() {
	roots := "all"
	if len(s.roots) > 0 {
		roots = strings.Join(s.roots, ", ")
	}
	settle := s.observe.Settle
	if settle < observe.MinSettle {
		settle = observe.MinSettle
	}
	fmt.Fprintf(s.out, "  variant:  %s (manifest rev %d)\n", s.reg.Variant(), s.reg.Revision())
	fmt.Fprintf(s.out, "  roots:    %s\n", roots)
	fmt.Fprintf(s.out, "  settle:   %s\n", settle)
	fmt.Fprintf(s.out, "  window:   %s\n", s.observe.Window)
	fmt.Fprintf(s.out, "  samples:  %d\n", s.observe.Samples)
	fmt.Fprintf(s.out, "  divider:  %d\n", s.observe.Divider)
}

// completer completes commands, settings and root names.
func (s *Shell) completer() *readline.PrefixCompleter {
	roots := make([]readline.PrefixCompleterInterface, 0, len(s.reg.Names()))
	for _, name := range s.reg.Names() {
		roots = append(roots, readline.PcItem(strings.ToLower(name)))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("list"),
		readline.PcItem("measure", roots...),
		readline.PcItem("set",
			readline.PcItem("settle"),
			readline.PcItem("window"),
			readline.PcItem("samples"),
			readline.PcItem("divider"),
		),
		readline.PcItem("show"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}
