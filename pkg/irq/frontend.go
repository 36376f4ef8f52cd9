package irq

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/linkpm/linkpm-go/pkg/hw"
	"github.com/linkpm/linkpm-go/pkg/log"
)

// Defaults.
const (
	// DefaultStayAwake is the wake lock window taken per edge.
	DefaultStayAwake = 1 * time.Second

	// DefaultBuffer is the number of edges that may wait for the bottom
	// half before new ones are dropped.
	DefaultBuffer = 16
)

// ErrNoLine is returned by New when no line is configured.
var ErrNoLine = errors.New("irq: no line")

// Handler is a bottom-half target. asserted is the logical line level.
type Handler func(ctx context.Context, asserted bool)

// Config configures a FrontEnd.
type Config struct {
	// Name labels logs and trace events (WAKE, PERST).
	Name string

	// Line is polled by the bottom half.
	Line hw.Line

	// ActiveLow inverts the electrical level.
	ActiveLow bool

	// WakeLock is extended by the top half. Nil uses hw.NoopWakeLock.
	WakeLock hw.WakeLock

	// StayAwake is the wake lock window per edge.
	StayAwake time.Duration

	// Buffer bounds edges pending for the bottom half.
	Buffer int

	// Logger receives operational logs. Nil discards.
	Logger *slog.Logger

	// Recorder receives trace events. Nil records nothing.
	Recorder *log.Recorder
}

// Stats counts front-end activity.
type Stats struct {
	Fired   uint64
	Handled uint64
	Dropped uint64
	Ignored uint64
}

// FrontEnd is one interrupt line's top and bottom half.
type FrontEnd struct {
	cfg     Config
	handler Handler
	logger  *slog.Logger

	// Written by the top half; must never block it.
	pending chan struct{}

	enabled atomic.Bool
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	fired   atomic.Uint64
	handled atomic.Uint64
	dropped atomic.Uint64
	ignored atomic.Uint64
}

// New creates a front-end calling h from its bottom half. The front-end
// starts disabled.
func New(cfg Config, h Handler) (*FrontEnd, error) {
	if cfg.Line == nil {
		return nil, ErrNoLine
	}
	if cfg.WakeLock == nil {
		cfg.WakeLock = hw.NoopWakeLock{}
	}
	if cfg.StayAwake == 0 {
		cfg.StayAwake = DefaultStayAwake
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultBuffer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FrontEnd{
		cfg:     cfg,
		handler: h,
		logger:  logger.With("irq", cfg.Name),
		pending: make(chan struct{}, cfg.Buffer),
	}, nil
}

// Name returns the line name.
func (f *FrontEnd) Name() string { return f.cfg.Name }

// Start runs the bottom half until ctx is done or Stop is called.
func (f *FrontEnd) Start(ctx context.Context) {
	if f.running.Swap(true) {
		return
	}
	ctx, f.cancel = context.WithCancel(ctx)
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-f.pending:
				f.bottomHalf(ctx)
			}
		}
	}()
}

// Stop disables the line and stops the bottom half. Edges still pending
// are discarded.
func (f *FrontEnd) Stop() {
	f.Disable()
	if !f.running.Swap(false) {
		return
	}
	f.cancel()
	f.wg.Wait()
	for {
		select {
		case <-f.pending:
		default:
			return
		}
	}
}

// Enable lets Fire schedule the bottom half.
func (f *FrontEnd) Enable() { f.enabled.Store(true) }

// Disable makes Fire ignore edges.
func (f *FrontEnd) Disable() { f.enabled.Store(false) }

// Enabled reports whether edges are accepted.
func (f *FrontEnd) Enabled() bool { return f.enabled.Load() }

// Fire is the top half. It never blocks.
func (f *FrontEnd) Fire() {
	if !f.enabled.Load() {
		f.ignored.Add(1)
		return
	}
	f.fired.Add(1)
	f.cfg.WakeLock.StayAwake(f.cfg.StayAwake)

	select {
	case f.pending <- struct{}{}:
	default:
		f.dropped.Add(1)
		f.cfg.Recorder.IRQ(f.cfg.Name, false, true)
	}
}

// Stats returns a snapshot of the counters.
func (f *FrontEnd) Stats() Stats {
	return Stats{
		Fired:   f.fired.Load(),
		Handled: f.handled.Load(),
		Dropped: f.dropped.Load(),
		Ignored: f.ignored.Load(),
	}
}

// Asserted reads the logical line level.
func (f *FrontEnd) Asserted() (bool, error) {
	level, err := f.cfg.Line.Level()
	if err != nil {
		return false, err
	}
	return level != f.cfg.ActiveLow, nil
}

func (f *FrontEnd) bottomHalf(ctx context.Context) {
	asserted, err := f.Asserted()
	if err != nil {
		f.logger.Warn("line read failed", "error", err)
		f.cfg.Recorder.Error(f.cfg.Name+" level", err)
		return
	}
	f.handled.Add(1)
	f.cfg.Recorder.IRQ(f.cfg.Name, asserted, false)
	f.logger.Debug("edge", "asserted", asserted)

	if f.handler != nil {
		f.handler(ctx, asserted)
	}
}
