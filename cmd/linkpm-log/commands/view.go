// Package commands implements the linkpm-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/linkpm/linkpm-go/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Side     *log.Side
	Category *log.Category
}

func (f ViewFilter) matches(e log.Event) bool {
	if f.Side != nil && e.Side != *f.Side {
		return false
	}
	if f.Category != nil && e.Category != *f.Category {
		return false
	}
	return true
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [ctrl:id] SIDE Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s [ctrl:%s] %-8s %s\n", ts, shortenID(event.ControllerID), event.Side.String(), typeLabel(event))

	switch {
	case event.Action != nil:
		formatActionDetails(w, event.Action)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.IRQ != nil:
		formatIRQDetails(w, event.IRQ)
	case event.Sequence != nil:
		formatSequenceDetails(w, event.Sequence)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

func typeLabel(event log.Event) string {
	switch {
	case event.Action != nil:
		return "Action " + event.Action.Kind
	case event.StateChange != nil:
		return "State"
	case event.IRQ != nil:
		return "IRQ " + event.IRQ.Line
	case event.Sequence != nil:
		return "Sequence"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// shortenID returns the first 8 characters of the controller ID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatActionDetails(w io.Writer, a *log.ActionEvent) {
	fmt.Fprintf(w, "  Phase: %s\n", a.Phase.String())
	if a.Duration != nil {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(*a.Duration))
	}
	if a.Err != "" {
		fmt.Fprintf(w, "  Error: %s\n", a.Err)
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatIRQDetails(w io.Writer, irq *log.IRQEvent) {
	level := "deasserted"
	if irq.Asserted {
		level = "asserted"
	}
	if irq.Dropped {
		fmt.Fprintln(w, "  Dropped (bottom half busy)")
		return
	}
	fmt.Fprintf(w, "  Level: %s\n", level)
}

func formatSequenceDetails(w io.Writer, seq *log.SequenceEvent) {
	fmt.Fprintf(w, "  Name: %s\n", seq.Name)
	if seq.Err != "" {
		fmt.Fprintf(w, "  Error: %s\n", seq.Err)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
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

// ParseSideFlag parses a side string from a command-line flag (case-insensitive).
func ParseSideFlag(s string) (log.Side, error) {
	switch strings.ToLower(s) {
	case "host":
		return log.SideHost, nil
	case "endpoint", "ep":
		return log.SideEndpoint, nil
	default:
		return 0, fmt.Errorf("invalid side: %s (must be host or endpoint)", s)
	}
}

// ParseCategoryFlag parses a category string from a command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "action":
		return log.CategoryAction, nil
	case "state":
		return log.CategoryState, nil
	case "irq":
		return log.CategoryIRQ, nil
	case "sequence":
		return log.CategorySequence, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be action, state, irq, sequence, or error)", s)
	}
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if filter.matches(event) {
			formatEvent(output, event)
		}
	}
	return nil
}
