package endpoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/linkpm/linkpm-go/pkg/action"
	"github.com/linkpm/linkpm-go/pkg/hw"
	"github.com/linkpm/linkpm-go/pkg/log"
	"github.com/linkpm/linkpm-go/pkg/retry"
	"github.com/linkpm/linkpm-go/pkg/wakeguard"
)

// Endpoint errors.
var (
	// ErrAlreadyPowered is returned by WakeDown when the link partner is
	// already powered. Execute treats it as a no-op.
	ErrAlreadyPowered = errors.New("already powered")

	// ErrIdentityMismatch is returned when the hardware identity could not
	// be verified within the attempt budget.
	ErrIdentityMismatch = errors.New("hardware identity mismatch")

	// ErrSequence wraps a failed critical syscon sequence.
	ErrSequence = errors.New("syscon sequence failed")
)

// State is the controller's power state. It is a copy; mutating it has no
// effect on the controller.
type State struct {
	Powered   bool
	Suspended bool
	WakeDown  bool

	// RetryCount counts consecutive failed Reinits.
	RetryCount uint32
}

// Phase returns the lifecycle phase derived from the flags.
func (s State) Phase() string {
	switch {
	case s.Powered:
		return "POWERED"
	case s.WakeDown:
		return "WAKE_DOWN"
	default:
		return "UNPOWERED"
	}
}

// Stats counts controller activity.
type Stats struct {
	WakeDowns      uint64
	WakeReleases   uint64
	Reinits        uint64
	ReinitFailures uint64
	Shutdowns      uint64
	LinkTimeouts   uint64
	GuardExpiries  uint64

	Actions action.Stats
}

// Controller is the endpoint lifecycle controller.
type Controller struct {
	id  string
	cfg Config

	seq      hw.Sequencer
	link     hw.LinkTrainer
	bus      hw.BusManager
	identity hw.IdentityReader

	logger   *slog.Logger
	recorder *log.Recorder

	queue  *action.Queue
	worker *action.Worker
	guard  *wakeguard.Guard

	// baseCtx is used by work started off the worker (guard expiry).
	baseCtx context.Context

	mu         sync.Mutex
	state      State
	guardToken wakeguard.Token
	stats      Stats
}

// New creates an endpoint controller. Zero config fields take defaults.
func New(cfg Config, deps Deps) (*Controller, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	guard, err := wakeguard.New(cfg.WakeWindow)
	if err != nil {
		return nil, fmt.Errorf("wake window: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	id := uuid.New().String()
	rec := log.NewRecorder(cfg.TraceLogger, id, log.SideEndpoint)
	logger = logger.With("side", "endpoint", "ctrl_id", id[:8])

	c := &Controller{
		id:       id,
		cfg:      cfg,
		seq:      deps.Sequencer,
		link:     deps.Link,
		bus:      deps.Bus,
		identity: deps.Identity,
		logger:   logger,
		recorder: rec,
		guard:    guard,
		baseCtx:  context.Background(),
	}
	c.queue = action.NewQueue(rec)
	c.worker = action.NewWorker(c.queue, c, action.WorkerConfig{Logger: logger, Recorder: rec})
	guard.OnExpire(c.onGuardExpired)
	return c, nil
}

// ID returns the controller's trace ID.
func (c *Controller) ID() string {
	return c.id
}

// Start starts the action worker. ctx bounds every action.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	c.baseCtx = ctx
	c.mu.Unlock()

	if err := c.worker.Start(ctx); err != nil {
		return err
	}
	c.logger.Info("endpoint controller started")
	return nil
}

// Stop stops the worker and releases any pending wake-down. Interrupt
// sources must be disabled first so that nothing is enqueued meanwhile.
func (c *Controller) Stop() {
	c.worker.Stop()

	c.mu.Lock()
	// The start context is usually cancelled by now; the release must still
	// reach the hardware.
	c.releaseWakeLocked(context.WithoutCancel(c.baseCtx), "stop")
	c.guard.Stop()
	c.guardToken = 0
	c.mu.Unlock()

	c.logger.Info("endpoint controller stopped")
}

// Enqueue schedules an action on the worker. It never blocks.
func (c *Controller) Enqueue(kind action.Kind) error {
	return c.queue.Enqueue(kind)
}

// Execute runs one dequeued action. It implements action.Handler.
func (c *Controller) Execute(ctx context.Context, kind action.Kind) error {
	switch kind {
	case action.Reinit:
		return c.Reinit(ctx)
	case action.Shutdown:
		return c.Shutdown(ctx)
	case action.WakeAssert:
		err := c.WakeDown(ctx)
		if errors.Is(err, ErrAlreadyPowered) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("%w: %d", action.ErrUnknownKind, kind)
	}
}

// State returns a copy of the power state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns a snapshot of the counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	s := c.stats
	c.mu.Unlock()
	s.Actions = c.worker.Stats()
	return s
}

// GuardRemaining returns the time left before a pending wake-down is
// abandoned, or 0.
func (c *Controller) GuardRemaining() time.Duration {
	return c.guard.RemainingTime()
}

// WakeDown powers up and asserts the software wake signal toward the host,
// then arms the wake guard. It returns ErrAlreadyPowered if the link
// partner is already powered and does nothing if a wake-down is pending.
func (c *Controller) WakeDown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Powered {
		c.logger.Debug("wake-down skipped", "reason", "already powered")
		return ErrAlreadyPowered
	}
	if c.state.WakeDown {
		c.logger.Debug("wake-down skipped", "reason", "already pending")
		return nil
	}

	if err := c.applySequence(ctx, c.cfg.Sequences.Startup); err != nil {
		c.recorder.Error("wake-down", err)
		return fmt.Errorf("%w: %s: %w", ErrSequence, c.cfg.Sequences.Startup, err)
	}

	old := c.state
	c.guardToken = c.guard.Arm()
	c.state.WakeDown = true
	c.stats.WakeDowns++
	c.recordTransition(old, "wake asserted")

	c.logger.Info("wake asserted", "window", c.cfg.WakeWindow)
	return nil
}

// Reinit powers up if needed, verifies the hardware identity and trains
// the link, then rescans the bus. On failure the device is left in its
// current powered state so a later Reinit can retry. A pending wake-down
// is always resolved on return.
func (c *Controller) Reinit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.releaseWakeLocked(ctx, "reinit")

	c.stats.Reinits++
	start := time.Now()

	if err := c.reinitLocked(ctx); err != nil {
		c.state.RetryCount++
		c.stats.ReinitFailures++
		if errors.Is(err, hw.ErrLinkTimeout) {
			c.stats.LinkTimeouts++
		}
		c.recorder.Error("reinit", err)
		c.logger.Warn("reinit failed", "error", err, "retry_count", c.state.RetryCount)
		return err
	}

	c.state.RetryCount = 0
	c.logger.Info("link up", "took", time.Since(start))
	return nil
}

func (c *Controller) reinitLocked(ctx context.Context) error {
	if !c.state.Powered {
		// A pending wake-down already ran the startup sequence.
		if !c.state.WakeDown {
			if err := c.applySequence(ctx, c.cfg.Sequences.Startup); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrSequence, c.cfg.Sequences.Startup, err)
			}
		}
		old := c.state
		c.state.Powered = true
		c.recordTransition(old, "reinit")
	}

	if err := retry.Sleep(ctx, c.cfg.SettleDelay); err != nil {
		return err
	}

	if err := c.verifyIdentity(ctx); err != nil {
		return err
	}

	if name := c.cfg.Sequences.Fixup; name != "" {
		// Fixups are best-effort.
		_ = c.applySequence(ctx, name)
	}

	if err := c.link.WaitForLink(ctx, c.cfg.LinkTimeout); err != nil {
		return fmt.Errorf("wait for link: %w", err)
	}

	if err := c.bus.Rescan(ctx); err != nil {
		return fmt.Errorf("rescan: %w", err)
	}
	return nil
}

func (c *Controller) verifyIdentity(ctx context.Context) error {
	want := c.cfg.ExpectedIdentity
	attempts, err := retry.Do(ctx, c.cfg.IdentityRetry, func(ctx context.Context, _ int) error {
		id, err := c.identity.ReadIdentity(ctx)
		if err != nil {
			return err
		}
		if !want.IsZero() && id != want {
			return fmt.Errorf("%w: read %s, want %s", ErrIdentityMismatch, id, want)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if !errors.Is(err, ErrIdentityMismatch) {
			err = fmt.Errorf("%w: %w", ErrIdentityMismatch, err)
		}
		return err
	}
	if attempts > 1 {
		c.logger.Debug("identity verified", "attempts", attempts)
	}
	return nil
}

// Shutdown powers down and tells the bus manager the link is gone. It is a
// no-op when nothing is powered.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Powered && !c.state.WakeDown {
		c.logger.Debug("shutdown skipped", "reason", "not powered")
		return nil
	}
	c.stats.Shutdowns++

	// A wake-down that never got its PERST answer ends here, so a later
	// Reinit runs the startup sequence again.
	c.releaseWakeLocked(ctx, "shutdown")

	// Best-effort: the flag is cleared regardless so a later Reinit starts
	// from a full power-up.
	_ = c.applySequence(ctx, c.cfg.Sequences.Shutdown)

	old := c.state
	c.state.Powered = false
	c.recordTransition(old, "shutdown")

	if err := c.bus.Remove(ctx); err != nil {
		c.recorder.Error("shutdown", err)
		return fmt.Errorf("remove bus: %w", err)
	}
	c.logger.Info("link down")
	return nil
}

// releaseWakeLocked cancels the wake guard and releases the wake signal if
// a wake-down is pending. Must hold c.mu.
func (c *Controller) releaseWakeLocked(ctx context.Context, reason string) {
	if !c.state.WakeDown {
		return
	}
	c.guard.Cancel(c.guardToken)
	c.guardToken = 0

	_ = c.applySequence(ctx, c.cfg.Sequences.WakeRelease)

	old := c.state
	c.state.WakeDown = false
	c.stats.WakeReleases++
	c.recordTransition(old, reason)
}

// onGuardExpired runs on the guard's timer goroutine.
func (c *Controller) onGuardExpired(tok wakeguard.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Reinit may have resolved the wake-down while we waited for the lock.
	if !c.state.WakeDown || tok != c.guardToken {
		return
	}
	c.stats.GuardExpiries++
	c.logger.Warn("host did not answer wake", "window", c.cfg.WakeWindow)
	c.releaseWakeLocked(c.baseCtx, "wake timeout")
}

func (c *Controller) applySequence(ctx context.Context, name string) error {
	err := c.seq.ApplySequence(ctx, name)
	c.recorder.Sequence(name, err)
	if err != nil {
		c.logger.Warn("sequence failed", "sequence", name, "error", err)
	}
	return err
}

func (c *Controller) recordTransition(old State, reason string) {
	if o, n := old.Phase(), c.state.Phase(); o != n {
		c.recorder.State(o, n, reason)
	}
}

var _ action.Handler = (*Controller)(nil)
