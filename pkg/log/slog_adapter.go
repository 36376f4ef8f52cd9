package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes trace events to an slog.Logger.
// Useful for development when you want to see the trace in the console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event at Debug level; errors and failed actions go out at
// Warn so they show up with the default handler level.
func (a *SlogAdapter) Log(event Event) {
	level := slog.LevelDebug
	attrs := []slog.Attr{
		slog.String("ctrl_id", shortID(event.ControllerID)),
		slog.String("side", event.Side.String()),
		slog.String("category", event.Category.String()),
	}

	switch {
	case event.Action != nil:
		attrs = append(attrs,
			slog.String("action", event.Action.Kind),
			slog.String("phase", event.Action.Phase.String()),
		)
		if event.Action.Duration != nil {
			attrs = append(attrs, slog.Duration("took", *event.Action.Duration))
		}
		if event.Action.Err != "" {
			attrs = append(attrs, slog.String("error", event.Action.Err))
			level = slog.LevelWarn
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.IRQ != nil:
		attrs = append(attrs,
			slog.String("line", event.IRQ.Line),
			slog.Bool("asserted", event.IRQ.Asserted),
		)
		if event.IRQ.Dropped {
			attrs = append(attrs, slog.Bool("dropped", true))
			level = slog.LevelWarn
		}
	case event.Sequence != nil:
		attrs = append(attrs, slog.String("sequence", event.Sequence.Name))
		if event.Sequence.Err != "" {
			attrs = append(attrs, slog.String("error", event.Sequence.Err))
			level = slog.LevelWarn
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		level = slog.LevelWarn
	}

	a.logger.LogAttrs(context.Background(), level, "lifecycle", attrs...)
}

// shortID returns the first 8 characters of a controller ID.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
