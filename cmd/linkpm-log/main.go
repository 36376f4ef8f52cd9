// Command linkpm-log views and analyzes link lifecycle trace files.
//
// Trace files are written by linkpm-sim (or any process wiring a
// log.FileLogger into the controllers) with the -trace flag.
//
// Usage:
//
//	linkpm-log <command> [flags] <file.lptrace>
//
// Commands:
//
//	view     View trace file in human-readable format
//	export   Export trace file to JSON lines or CSV
//	filter   Filter trace file and write to new file
//	stats    Show per-controller statistics
//
// Examples:
//
//	# View endpoint events only
//	linkpm-log view -side endpoint board.lptrace
//
//	# Show statistics
//	linkpm-log stats board.lptrace
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/linkpm/linkpm-go/cmd/linkpm-log/commands"
)

const usage = `linkpm-log - Link Lifecycle Trace Analyzer

Usage:
  linkpm-log <command> [flags] <file.lptrace>

Commands:
  view     View trace file in human-readable format
  export   Export trace file to JSON lines or CSV
  filter   Filter trace file and write to new file
  stats    Show per-controller statistics

Use "linkpm-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// parsePath parses args and returns the single trace file argument.
func parsePath(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trace file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func newFlagSet(name, synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "linkpm-log %s - %s\n\nUsage:\n  linkpm-log %s [flags] <file.lptrace>\n\nFlags:\n", name, synopsis, name)
		fs.PrintDefaults()
	}
	return fs
}

func runView(args []string) {
	fs := newFlagSet("view", "View trace file in human-readable format")
	side := fs.String("side", "", "Filter by side (host, endpoint)")
	category := fs.String("category", "", "Filter by category (action, state, irq, sequence, error)")
	path := parsePath(fs, args)

	var filter commands.ViewFilter
	if *side != "" {
		s, err := commands.ParseSideFlag(*side)
		if err != nil {
			fail(err)
		}
		filter.Side = &s
	}
	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fail(err)
		}
		filter.Category = &c
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := newFlagSet("export", "Export trace file to JSON lines or CSV")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	path := parsePath(fs, args)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := newFlagSet("filter", "Filter trace file and write to new file")
	output := fs.String("o", "", "Output file (required)")
	ctrlID := fs.String("ctrl-id", "", "Filter by controller ID")
	timeStart := fs.String("time-start", "", "Filter by start time (RFC3339)")
	timeEnd := fs.String("time-end", "", "Filter by end time (RFC3339)")
	side := fs.String("side", "", "Filter by side (host, endpoint)")
	category := fs.String("category", "", "Filter by category (action, state, irq, sequence, error)")
	path := parsePath(fs, args)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	n, err := commands.RunFilter(path, commands.FilterOptions{
		Output:       *output,
		ControllerID: *ctrlID,
		TimeStart:    *timeStart,
		TimeEnd:      *timeEnd,
		Side:         *side,
		Category:     *category,
	})
	if err != nil {
		fail(err)
	}
	fmt.Printf("Filtered %d events to %s\n", n, *output)
}

func runStats(args []string) {
	fs := newFlagSet("stats", "Show per-controller statistics")
	path := parsePath(fs, args)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
