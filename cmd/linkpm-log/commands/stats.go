package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/linkpm/linkpm-go/pkg/log"
)

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	TotalEvents      int
	EventsBySide     map[log.Side]int
	EventsByCategory map[log.Category]int
	Controllers      map[string]*ControllerStats
	Errors           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// ControllerStats holds statistics for a single controller.
type ControllerStats struct {
	Side      log.Side
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int

	Actions        map[string]int
	FailedActions  int
	DroppedActions int
	WakeIRQs       int
	PerstIRQs      int
	LinkDownIRQs   int
	DroppedIRQs    int
	SequenceErrors int
	LastState      string
}

// RunStats analyzes the trace file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := collectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func collectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsBySide:     make(map[log.Side]int),
		EventsByCategory: make(map[log.Category]int),
		Controllers:      make(map[string]*ControllerStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsBySide[event.Side]++
		stats.EventsByCategory[event.Category]++

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		cs, ok := stats.Controllers[event.ControllerID]
		if !ok {
			cs = &ControllerStats{
				Side:      event.Side,
				FirstSeen: event.Timestamp,
				LastSeen:  event.Timestamp,
				Actions:   make(map[string]int),
			}
			stats.Controllers[event.ControllerID] = cs
		}
		cs.Events++
		if event.Timestamp.After(cs.LastSeen) {
			cs.LastSeen = event.Timestamp
		}

		switch {
		case event.Action != nil:
			switch event.Action.Phase {
			case log.PhaseDone:
				cs.Actions[event.Action.Kind]++
			case log.PhaseFailed:
				cs.Actions[event.Action.Kind]++
				cs.FailedActions++
			case log.PhaseDropped:
				cs.DroppedActions++
			}
		case event.IRQ != nil:
			switch {
			case event.IRQ.Dropped:
				cs.DroppedIRQs++
			case event.IRQ.Line == "WAKE":
				cs.WakeIRQs++
			case event.IRQ.Line == "PERST":
				cs.PerstIRQs++
			case event.IRQ.Line == "LINKDOWN":
				cs.LinkDownIRQs++
			}
		case event.Sequence != nil:
			if event.Sequence.Err != "" {
				cs.SequenceErrors++
			}
		case event.StateChange != nil:
			cs.LastState = event.StateChange.NewState
		case event.Error != nil:
			stats.Errors++
		}
	}
	return stats, nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Link Lifecycle Trace Statistics ===")
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

	fmt.Fprintln(w, "Events by Side:")
	for _, side := range []log.Side{log.SideHost, log.SideEndpoint} {
		if count := stats.EventsBySide[side]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", side.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryAction, log.CategoryState, log.CategoryIRQ, log.CategorySequence, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Controllers: %d\n", len(stats.Controllers))
	if len(stats.Controllers) > 0 {
		type ctrlInfo struct {
			id    string
			stats *ControllerStats
		}
		ctrls := make([]ctrlInfo, 0, len(stats.Controllers))
		for id, cs := range stats.Controllers {
			ctrls = append(ctrls, ctrlInfo{id, cs})
		}
		sort.Slice(ctrls, func(i, j int) bool {
			return ctrls[i].stats.FirstSeen.Before(ctrls[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, c := range ctrls {
			cs := c.stats
			duration := cs.LastSeen.Sub(cs.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %s, %d events, duration %s\n", shortenID(c.id), cs.Side, cs.Events, duration)
			if len(cs.Actions) > 0 {
				kinds := make([]string, 0, len(cs.Actions))
				for k := range cs.Actions {
					kinds = append(kinds, k)
				}
				sort.Strings(kinds)
				fmt.Fprint(w, "           Actions:")
				for _, k := range kinds {
					fmt.Fprintf(w, " %s=%d", k, cs.Actions[k])
				}
				fmt.Fprintf(w, " (failed %d, dropped %d)\n", cs.FailedActions, cs.DroppedActions)
			} else if cs.DroppedActions > 0 {
				fmt.Fprintf(w, "           Actions dropped: %d\n", cs.DroppedActions)
			}
			if cs.WakeIRQs+cs.PerstIRQs+cs.LinkDownIRQs+cs.DroppedIRQs > 0 {
				fmt.Fprintf(w, "           IRQs: WAKE=%d PERST=%d LINKDOWN=%d dropped=%d\n",
					cs.WakeIRQs, cs.PerstIRQs, cs.LinkDownIRQs, cs.DroppedIRQs)
			}
			if cs.SequenceErrors > 0 {
				fmt.Fprintf(w, "           Sequence errors: %d\n", cs.SequenceErrors)
			}
			if cs.LastState != "" {
				fmt.Fprintf(w, "           Last state: %s\n", cs.LastState)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
