// Package shell provides the interactive command-line interface of
// linkpm-sim.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/linkpm/linkpm-go/pkg/action"
	"github.com/linkpm/linkpm-go/pkg/log"
	"github.com/linkpm/linkpm-go/pkg/sim"
	"github.com/linkpm/linkpm-go/pkg/snapshot"
)

// DefaultTraceTail is the number of events the trace command shows.
const DefaultTraceTail = 20

// errQuit ends the command loop.
var errQuit = errors.New("quit")

// Shell drives a simulated system from typed commands.
type Shell struct {
	sys    *sim.System
	trace  *log.MemoryLogger
	layout snapshot.Layout
	out    io.Writer
	rl     *readline.Instance

	// opTimeout bounds each host operation started from the shell.
	opTimeout time.Duration
}

// Options configures a Shell.
type Options struct {
	// Trace is the in-memory trace tail shown by the trace command. Nil
	// disables the command.
	Trace *log.MemoryLogger

	// Layout lists the registers the regs command dumps.
	Layout snapshot.Layout

	// OpTimeout bounds each host operation. Zero means 10s.
	OpTimeout time.Duration
}

// New creates a shell reading from the terminal.
func New(sys *sim.System, opts Options) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "linkpm> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	s := newShell(sys, opts, rl.Stdout())
	s.rl = rl
	return s, nil
}

func newShell(sys *sim.System, opts Options, out io.Writer) *Shell {
	if opts.OpTimeout == 0 {
		opts.OpTimeout = 10 * time.Second
	}
	return &Shell{
		sys:       sys,
		trace:     opts.Trace,
		layout:    opts.Layout,
		out:       out,
		opTimeout: opts.OpTimeout,
	}
}

// Stdout returns a writer that coordinates with the readline prompt. Use it
// for log output.
func (s *Shell) Stdout() io.Writer {
	return s.out
}

// Run reads commands until quit, EOF or ctx is done.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}
		if err := s.Exec(ctx, line); errors.Is(err, errQuit) {
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Exec runs one command line. Command errors are printed, not returned.
func (s *Shell) Exec(ctx context.Context, line string) error {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return nil
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		s.printHelp()
	case "status", "s":
		s.cmdStatus()
	case "stats":
		s.cmdStats()
	case "perst":
		err = s.cmdLine(s.sys.Board.Perst, args)
	case "wake":
		err = s.cmdLine(s.sys.Board.Wake, args)
	case "linkdown":
		s.sys.Board.DropLink()
	case "recover":
		err = s.hostOp(ctx, s.sys.Host.RecoverLink)
	case "configure", "up":
		err = s.hostOp(ctx, s.sys.Host.ConfigureDevice)
	case "unconfigure", "down":
		err = s.hostOp(ctx, s.sys.Host.UnconfigureDevice)
	case "prepare":
		err = s.sys.Host.Prepare()
	case "suspend":
		err = s.hostOp(ctx, s.sys.Host.Suspend)
	case "resume":
		err = s.hostOp(ctx, s.sys.Host.Resume)
	case "complete":
		s.sys.Host.Complete()
	case "sleep":
		err = s.cmdSleep(ctx)
	case "enqueue", "eq":
		err = s.cmdEnqueue(args)
	case "fail":
		err = s.cmdFail(args)
	case "regs":
		err = s.cmdRegs(args)
	case "trace", "t":
		err = s.cmdTrace(args)
	case "quit", "exit", "q":
		return errQuit
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
		return nil
	}

	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	} else {
		fmt.Fprintln(s.out, "OK")
	}
	return nil
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
Link Lifecycle Simulator Commands:
  Host:
    configure          - Power the endpoint and bring the link up (hot attach)
    unconfigure        - Remove the bus and power the endpoint down (hot detach)
    prepare            - Begin system sleep (may veto with busy)
    suspend | resume   - System sleep suspend / resume steps
    complete           - Finish the sleep transition
    sleep              - Run prepare, suspend, resume and complete
    recover            - Power-cycle the endpoint after a lost link

  Endpoint:
    enqueue <kind>     - Queue an action (reinit, shutdown, wake)

  Board:
    perst [on|off|pulse] - Drive PERST (no argument shows it)
    wake [on|off|pulse]  - Drive WAKE (no argument shows it)
    linkdown             - Drop the trained link unexpectedly
    fail link [n]        - Fail the next n link trainings
    fail lowpower [n]    - Fail the next n low-power requests
    fail seq <name> [n]  - Fail the next n runs of a host or endpoint sequence
    fail rescan [off]    - Make host rescans fail
    regs [off [val]]     - Dump, read or write controller registers

  General:
    status             - Show both controllers and the board
    stats              - Show counters
    trace [n]          - Show the last n trace events
    help               - Show this help
    quit               - Exit`)
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("status"),
		readline.PcItem("stats"),
		readline.PcItem("perst", readline.PcItem("on"), readline.PcItem("off"), readline.PcItem("pulse")),
		readline.PcItem("wake", readline.PcItem("on"), readline.PcItem("off"), readline.PcItem("pulse")),
		readline.PcItem("linkdown"),
		readline.PcItem("recover"),
		readline.PcItem("configure"),
		readline.PcItem("unconfigure"),
		readline.PcItem("prepare"),
		readline.PcItem("suspend"),
		readline.PcItem("resume"),
		readline.PcItem("complete"),
		readline.PcItem("sleep"),
		readline.PcItem("enqueue", readline.PcItem("reinit"), readline.PcItem("shutdown"), readline.PcItem("wake")),
		readline.PcItem("fail",
			readline.PcItem("link"), readline.PcItem("lowpower"), readline.PcItem("seq"), readline.PcItem("rescan")),
		readline.PcItem("regs"),
		readline.PcItem("trace"),
		readline.PcItem("quit"),
	)
}

func (s *Shell) hostOp(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return op(ctx)
}

func (s *Shell) cmdStatus() {
	hs := s.sys.Host.State()
	es := s.sys.Endpoint.State()
	b := s.sys.Board

	fmt.Fprintln(s.out, "Host:")
	fmt.Fprintf(s.out, "  Phase:        %s\n", hs.Phase())
	fmt.Fprintf(s.out, "  Link:         %s\n", s.sys.Host.LinkState())
	fmt.Fprintf(s.out, "  Retries:      %d\n", hs.RetryCount)
	fmt.Fprintf(s.out, "  Sleep gate:   %s\n", closedOpen(s.sys.Host.ReinitDisabled()))
	fmt.Fprintf(s.out, "  Snapshot:     %s\n", pendingNone(s.sys.Host.SnapshotPending()))
	fmt.Fprintf(s.out, "  Bus:          %s\n", enumerated(b.HostBus.Enumerated()))

	fmt.Fprintln(s.out, "Endpoint:")
	fmt.Fprintf(s.out, "  Phase:        %s\n", es.Phase())
	fmt.Fprintf(s.out, "  Retries:      %d\n", es.RetryCount)
	if d := s.sys.Endpoint.GuardRemaining(); d > 0 {
		fmt.Fprintf(s.out, "  Wake guard:   %s left\n", d.Round(time.Millisecond))
	}
	fmt.Fprintf(s.out, "  Bus:          %s\n", enumerated(b.EndpointBus.Enumerated()))

	fmt.Fprintln(s.out, "Board:")
	fmt.Fprintf(s.out, "  PERST:        %s\n", assertedStr(b.Perst.Asserted()))
	fmt.Fprintf(s.out, "  WAKE:         %s\n", assertedStr(b.Wake.Asserted()))
	fmt.Fprintf(s.out, "  LINKDOWN:     %s\n", assertedStr(b.LinkDown.Asserted()))
	fmt.Fprintf(s.out, "  Power:        host=%s endpoint=%s\n", onOff(b.HostPowered()), onOff(b.EndpointPowered()))
	fmt.Fprintf(s.out, "  Link ready:   %t\n", b.LinkReady())
	if err := s.sys.LastOwnerError(); err != nil {
		fmt.Fprintf(s.out, "  Last wake answer: %v\n", err)
	}
}

func (s *Shell) cmdStats() {
	hs := s.sys.Host.Stats()
	es := s.sys.Endpoint.Stats()
	wake := s.sys.WakeIRQ.Stats()
	perst := s.sys.PerstIRQ.Stats()
	linkDown := s.sys.LinkDownIRQ.Stats()

	fmt.Fprintln(s.out, "Host:")
	fmt.Fprintf(s.out, "  configure %d (failed %d), unconfigure %d\n", hs.Configures, hs.ConfigureFailures, hs.Unconfigures)
	fmt.Fprintf(s.out, "  suspend %d, resume %d (failed %d), vetoes %d, gate timeouts %d\n",
		hs.Suspends, hs.Resumes, hs.ResumeFailures, hs.Vetoes, hs.GateTimeouts)
	fmt.Fprintf(s.out, "  wake irqs %d, notifications %d, link timeouts %d, low-power failures %d\n",
		hs.WakeIRQs, hs.Notifications, hs.LinkTimeouts, hs.LowPowerFailures)
	fmt.Fprintf(s.out, "  link downs %d, recoveries %d\n", hs.LinkDowns, hs.LinkRecoveries)

	fmt.Fprintln(s.out, "Endpoint:")
	fmt.Fprintf(s.out, "  reinit %d (failed %d), shutdown %d, link timeouts %d\n",
		es.Reinits, es.ReinitFailures, es.Shutdowns, es.LinkTimeouts)
	fmt.Fprintf(s.out, "  wake-downs %d, releases %d, guard expiries %d\n", es.WakeDowns, es.WakeReleases, es.GuardExpiries)
	fmt.Fprintf(s.out, "  actions executed %d, failed %d, dropped %d\n",
		es.Actions.Executed, es.Actions.Failed, es.Actions.Dropped)

	fmt.Fprintln(s.out, "IRQ:")
	fmt.Fprintf(s.out, "  WAKE  fired %d, handled %d, dropped %d, ignored %d\n", wake.Fired, wake.Handled, wake.Dropped, wake.Ignored)
	fmt.Fprintf(s.out, "  PERST fired %d, handled %d, dropped %d, ignored %d\n", perst.Fired, perst.Handled, perst.Dropped, perst.Ignored)
	fmt.Fprintf(s.out, "  LINKDOWN fired %d, handled %d, dropped %d, ignored %d\n",
		linkDown.Fired, linkDown.Handled, linkDown.Dropped, linkDown.Ignored)
}

func (s *Shell) cmdLine(l *sim.Line, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(s.out, "%s: %s\n", l.Name(), assertedStr(l.Asserted()))
		return nil
	}
	switch strings.ToLower(args[0]) {
	case "on", "assert", "1":
		l.Set(true)
	case "off", "deassert", "0":
		l.Set(false)
	case "pulse":
		l.Pulse()
	default:
		return fmt.Errorf("usage: %s [on|off|pulse]", strings.ToLower(l.Name()))
	}
	return nil
}

// cmdSleep runs a full system sleep cycle. A veto from prepare still
// completes the transition.
func (s *Shell) cmdSleep(ctx context.Context) error {
	h := s.sys.Host
	if err := h.Prepare(); err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer h.Complete()

	if err := s.hostOp(ctx, h.Suspend); err != nil {
		return fmt.Errorf("suspend: %w", err)
	}
	if err := s.hostOp(ctx, h.Resume); err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	return nil
}

func (s *Shell) cmdEnqueue(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: enqueue <reinit|shutdown|wake>")
	}
	kind, err := action.ParseKind(strings.ToLower(args[0]))
	if err != nil {
		return fmt.Errorf("%w: %s", err, args[0])
	}
	return s.sys.Endpoint.Enqueue(kind)
}

func (s *Shell) cmdFail(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: fail <link|lowpower|seq|rescan> ...")
	}
	b := s.sys.Board
	switch strings.ToLower(args[0]) {
	case "link":
		n, err := countArg(args[1:])
		if err != nil {
			return err
		}
		b.HostLink.FailNext(n)
	case "lowpower":
		n, err := countArg(args[1:])
		if err != nil {
			return err
		}
		b.HostLink.FailLowPowerNext(n)
	case "seq":
		if len(args) < 2 {
			return errors.New("usage: fail seq <name> [n]")
		}
		n, err := countArg(args[2:])
		if err != nil {
			return err
		}
		b.HostSeq.FailNext(args[1], n)
		b.EndpointSeq.FailNext(args[1], n)
	case "rescan":
		if len(args) > 1 && strings.ToLower(args[1]) == "off" {
			b.HostBus.FailRescan(nil)
		} else {
			b.HostBus.FailRescan(errors.New("injected rescan failure"))
		}
	default:
		return fmt.Errorf("unknown failure: %s", args[0])
	}
	return nil
}

func countArg(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid count: %s", args[0])
	}
	return n, nil
}

func (s *Shell) cmdRegs(args []string) error {
	regs := s.sys.Board.Registers
	switch len(args) {
	case 0:
		if len(s.layout) == 0 {
			fmt.Fprintln(s.out, "No snapshot layout configured")
			return nil
		}
		for _, e := range s.layout {
			v, err := regs.ReadRegister(e.Offset)
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "  0x%04x: 0x%08x\n", e.Offset, v)
		}
		return nil
	case 1:
		off, err := parseUint32(args[0])
		if err != nil {
			return err
		}
		v, err := regs.ReadRegister(off)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "  0x%04x: 0x%08x\n", off, v)
		return nil
	default:
		off, err := parseUint32(args[0])
		if err != nil {
			return err
		}
		v, err := parseUint32(args[1])
		if err != nil {
			return err
		}
		return regs.WriteRegister(off, v)
	}
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", s)
	}
	return uint32(v), nil
}

func (s *Shell) cmdTrace(args []string) error {
	if s.trace == nil {
		return errors.New("trace tail not enabled")
	}
	n := DefaultTraceTail
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return fmt.Errorf("invalid count: %s", args[0])
		}
		n = v
	}
	events := s.trace.Events()
	if len(events) > n {
		events = events[len(events)-n:]
	}
	for _, e := range events {
		fmt.Fprintln(s.out, formatEvent(e))
	}
	return nil
}

// formatEvent renders a trace event on one line.
func formatEvent(e log.Event) string {
	head := fmt.Sprintf("%s %-8s", e.Timestamp.Format("15:04:05.000"), e.Side)
	switch {
	case e.Action != nil:
		s := fmt.Sprintf("%s action %s %s", head, e.Action.Kind, e.Action.Phase)
		if e.Action.Err != "" {
			s += ": " + e.Action.Err
		}
		return s
	case e.StateChange != nil:
		return fmt.Sprintf("%s state %s -> %s (%s)", head, e.StateChange.OldState, e.StateChange.NewState, e.StateChange.Reason)
	case e.IRQ != nil:
		if e.IRQ.Dropped {
			return fmt.Sprintf("%s irq %s dropped", head, e.IRQ.Line)
		}
		return fmt.Sprintf("%s irq %s %s", head, e.IRQ.Line, assertedStr(e.IRQ.Asserted))
	case e.Sequence != nil:
		s := fmt.Sprintf("%s sequence %s", head, e.Sequence.Name)
		if e.Sequence.Err != "" {
			s += ": " + e.Sequence.Err
		}
		return s
	case e.Error != nil:
		return fmt.Sprintf("%s error %s: %s", head, e.Error.Context, e.Error.Message)
	default:
		return head + " " + e.Category.String()
	}
}

func assertedStr(v bool) string {
	if v {
		return "asserted"
	}
	return "deasserted"
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func closedOpen(closed bool) string {
	if closed {
		return "closed"
	}
	return "open"
}

func pendingNone(v bool) string {
	if v {
		return "pending"
	}
	return "none"
}

func enumerated(v bool) string {
	if v {
		return "enumerated"
	}
	return "removed"
}
