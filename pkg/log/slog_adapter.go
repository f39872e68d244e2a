package log

import (
	"context"
	"fmt"
	"log/slog"
)

// SlogAdapter writes trace events to an slog.Logger.
// Useful for development when you want to see probe traffic in the console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("run_id", event.RunID),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	if event.Variant != "" {
		attrs = append(attrs, slog.String("variant", event.Variant))
	}
	if event.Root != "" {
		attrs = append(attrs, slog.String("root", event.Root))
	}

	switch {
	case event.Probe != nil:
		attrs = append(attrs,
			slog.String("op", event.Probe.Op.String()),
			slog.String("addr", fmt.Sprintf("0x%08X", event.Probe.Address)),
			slog.Uint64("value", uint64(event.Probe.Value)),
			slog.Duration("took", event.Probe.Duration),
		)
	case event.Frame != nil:
		attrs = append(attrs,
			slog.String("direction", event.Direction.String()),
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		)
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Sample > 0 {
			attrs = append(attrs, slog.Int("sample", event.StateChange.Sample))
		}
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Sample != nil:
		attrs = append(attrs,
			slog.Int("sample", event.Sample.Index),
			slog.Uint64("delta", event.Sample.Delta),
			slog.Duration("elapsed", event.Sample.Elapsed),
			slog.Uint64("hz", event.Sample.FrequencyHz),
		)
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
			slog.Bool("fatal", event.Error.Fatal),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "trace", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
