package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/linkpm/linkpm-go/pkg/hw"
	"github.com/linkpm/linkpm-go/pkg/log"
	"github.com/linkpm/linkpm-go/pkg/retry"
	"github.com/linkpm/linkpm-go/pkg/snapshot"
)

// Host errors.
var (
	// ErrBusy is returned while a system sleep transition is in progress,
	// and by Prepare when it vetoes system sleep. Callers retry later.
	ErrBusy = errors.New("sleep transition in progress")

	// ErrNotPowered is returned by UnconfigureDevice when nothing is
	// powered.
	ErrNotPowered = errors.New("not powered")

	// ErrIdentityMismatch is returned when the link partner's identity
	// could not be verified within the attempt budget.
	ErrIdentityMismatch = errors.New("hardware identity mismatch")

	// ErrSequence wraps a failed critical syscon sequence.
	ErrSequence = errors.New("syscon sequence failed")

	// ErrLinkLost is recorded when a trained link drops without being
	// asked to.
	ErrLinkLost = errors.New("link lost")
)

// State is the controller's power state. It is a copy.
type State struct {
	Powered   bool
	Suspended bool

	// RetryCount is the number of retries the last ConfigureDevice used.
	RetryCount uint32
}

// Phase returns the lifecycle phase derived from the flags.
func (s State) Phase() string {
	switch {
	case s.Powered && s.Suspended:
		return "SUSPENDED"
	case s.Powered:
		return "POWERED"
	default:
		return "UNPOWERED"
	}
}

// Stats counts controller activity.
type Stats struct {
	Configures        uint64
	ConfigureFailures uint64
	Unconfigures      uint64
	Suspends          uint64
	Resumes           uint64
	ResumeFailures    uint64
	WakeIRQs          uint64
	Notifications     uint64
	LinkTimeouts      uint64
	LowPowerFailures  uint64
	Vetoes            uint64
	GateTimeouts      uint64
	LinkDowns         uint64
	LinkRecoveries    uint64
}

// Controller is the host lifecycle controller.
type Controller struct {
	id  string
	cfg Config

	seq      hw.Sequencer
	link     hw.LinkTrainer
	bus      hw.BusManager
	identity hw.IdentityReader
	regs     hw.RegisterFile

	logger   *slog.Logger
	recorder *log.Recorder

	// snap is nil when no snapshot layout is configured.
	snap *snapshot.Slot
	gate *sleepGate

	mu        sync.Mutex
	state     State
	linkState LinkState
	stats     Stats

	// powered mirrors state.Powered for Prepare, which must not wait for
	// c.mu while ConfigureDevice holds it at the sleep gate.
	powered atomic.Bool

	regMu sync.Mutex
	reg   *Registration
}

// New creates a host controller. Zero config fields take defaults.
func New(cfg Config, deps Deps) (*Controller, error) {
	if err := deps.validate(cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	id := uuid.New().String()

	c := &Controller{
		id:       id,
		cfg:      cfg,
		seq:      deps.Sequencer,
		link:     deps.Link,
		bus:      deps.Bus,
		identity: deps.Identity,
		regs:     deps.Registers,
		logger:   logger.With("side", "host", "ctrl_id", id[:8]),
		recorder: log.NewRecorder(cfg.TraceLogger, id, log.SideHost),
		gate:     newSleepGate(),
	}
	if len(cfg.SnapshotLayout) > 0 {
		c.snap = snapshot.NewSlot(cfg.SnapshotLayout)
	}
	return c, nil
}

// ID returns the controller's trace ID.
func (c *Controller) ID() string {
	return c.id
}

// State returns a copy of the power state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LinkState returns the host's view of the link.
func (c *Controller) LinkState() LinkState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.linkState
}

// Stats returns a snapshot of the counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// SnapshotPending reports whether a register snapshot awaits restore.
func (c *Controller) SnapshotPending() bool {
	return c.snap != nil && c.snap.Pending()
}

// ConfigureDevice powers the link partner and brings the link up (hot
// attach). It is a no-op if already powered. While a system sleep
// transition is in progress it waits for it to finish, up to the gate
// timeout. Reinit is retried within the configured budget; on persistent
// failure the partner is powered back down and the bus is not rescanned.
func (c *Controller) ConfigureDevice(ctx context.Context) error {
	ev, err := c.configure(ctx)
	c.notify(ev)
	return err
}

func (c *Controller) configure(ctx context.Context) (Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Powered {
		c.logger.Debug("configure skipped", "reason", "already powered")
		return 0, nil
	}

	if err := c.gate.wait(ctx, c.cfg.GateTimeout); err != nil {
		if errors.Is(err, ErrBusy) {
			c.stats.GateTimeouts++
		}
		c.recorder.Error("configure", err)
		return 0, err
	}

	c.stats.Configures++
	c.setLinkLocked(LinkUpTry, "configure")
	start := time.Now()

	attempts, err := retry.Do(ctx, c.cfg.ConfigureRetry, func(ctx context.Context, attempt int) error {
		err := c.reinitLocked(ctx)
		if err != nil {
			c.logger.Warn("reinit attempt failed", "attempt", attempt, "error", err)
		}
		return err
	})
	c.state.RetryCount = uint32(attempts - 1)

	if err == nil {
		if err = c.bus.Rescan(ctx); err != nil {
			err = fmt.Errorf("rescan: %w", err)
		}
	}
	if err != nil {
		c.stats.ConfigureFailures++
		_ = c.applySequence(ctx, c.cfg.Sequences.Suspend)
		c.setLinkLocked(LinkDown, "configure failed")
		c.recorder.Error("configure", err)
		return 0, fmt.Errorf("configure device: %w", err)
	}

	// A failed rescan leaves the snapshot pending for the next attempt.
	c.restoreSnapshotLocked()
	c.setPoweredLocked(true, "configure")
	c.setLinkLocked(LinkUp, "configure")
	c.logger.Info("device configured", "attempts", attempts, "took", time.Since(start))
	return EventLinkUp, nil
}

// reinitLocked runs one power-up attempt: resume sequence, identity check
// and link training. The caller restores the snapshot once the link is
// fully usable.
func (c *Controller) reinitLocked(ctx context.Context) error {
	if err := c.applySequence(ctx, c.cfg.Sequences.Resume); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSequence, c.cfg.Sequences.Resume, err)
	}
	if err := retry.Sleep(ctx, c.cfg.SettleDelay); err != nil {
		return retry.Permanent(err)
	}
	if err := c.verifyIdentity(ctx); err != nil {
		return err
	}
	if err := c.link.WaitForLink(ctx, c.cfg.LinkTimeout); err != nil {
		if errors.Is(err, hw.ErrLinkTimeout) {
			c.stats.LinkTimeouts++
		}
		return fmt.Errorf("wait for link: %w", err)
	}
	return nil
}

func (c *Controller) verifyIdentity(ctx context.Context) error {
	want := c.cfg.ExpectedIdentity
	_, err := retry.Do(ctx, c.cfg.IdentityRetry, func(ctx context.Context, _ int) error {
		id, err := c.identity.ReadIdentity(ctx)
		if err != nil {
			return err
		}
		if !want.IsZero() && id != want {
			return fmt.Errorf("%w: read %s, want %s", ErrIdentityMismatch, id, want)
		}
		return nil
	})
	if err == nil || errors.Is(err, ErrIdentityMismatch) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrIdentityMismatch, err)
}

// UnconfigureDevice removes the downstream devices and powers the link
// partner down (hot detach). It returns ErrNotPowered, without touching
// the hardware, if nothing is powered.
func (c *Controller) UnconfigureDevice(ctx context.Context) error {
	err := c.unconfigure(ctx)
	if err == nil || !errors.Is(err, ErrNotPowered) {
		c.notify(EventLinkDown)
	}
	return err
}

func (c *Controller) unconfigure(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Powered {
		return ErrNotPowered
	}
	c.stats.Unconfigures++
	c.setLinkLocked(LinkDownTry, "unconfigure")

	var errs []error
	if err := c.bus.Remove(ctx); err != nil {
		errs = append(errs, fmt.Errorf("remove bus: %w", err))
	}

	// A suspended partner is already powered down.
	if !c.state.Suspended {
		c.enterLowPowerLocked(ctx)
		c.saveSnapshotLocked()
		_ = c.applySequence(ctx, c.cfg.Sequences.Suspend)
	}

	c.state.Suspended = false
	c.setPoweredLocked(false, "unconfigure")
	c.setLinkLocked(LinkDown, "unconfigure")
	c.logger.Info("device unconfigured")

	if err := errors.Join(errs...); err != nil {
		c.recorder.Error("unconfigure", err)
		return err
	}
	return nil
}

// enterLowPowerLocked asks the link for its low-power state with bounded
// retries. Failure is logged; power-down continues regardless.
func (c *Controller) enterLowPowerLocked(ctx context.Context) {
	attempts, err := retry.Do(ctx, c.cfg.LowPowerRetry, func(ctx context.Context, _ int) error {
		return c.link.EnterLowPower(ctx)
	})
	if err != nil {
		c.stats.LowPowerFailures++
		c.recorder.Error("low-power entry", err)
		c.logger.Warn("link did not enter low power", "attempts", attempts, "error", err)
	}
}

func (c *Controller) saveSnapshotLocked() {
	if c.snap == nil {
		return
	}
	if err := c.snap.Save(c.regs); err != nil {
		c.recorder.Error("snapshot save", err)
		c.logger.Warn("register snapshot failed", "error", err)
	}
}

func (c *Controller) restoreSnapshotLocked() {
	if c.snap == nil {
		return
	}
	err := c.snap.Restore(c.regs)
	switch {
	case errors.Is(err, snapshot.ErrNoSnapshot):
	case err != nil:
		c.recorder.Error("snapshot restore", err)
		c.logger.Warn("register restore failed", "error", err)
	}
}

func (c *Controller) applySequence(ctx context.Context, name string) error {
	err := c.seq.ApplySequence(ctx, name)
	c.recorder.Sequence(name, err)
	if err != nil {
		c.logger.Warn("sequence failed", "sequence", name, "error", err)
	}
	return err
}

func (c *Controller) setPoweredLocked(powered bool, reason string) {
	old := c.state
	c.state.Powered = powered
	c.powered.Store(powered)
	c.recordTransitionLocked(old, reason)
}

func (c *Controller) setLinkLocked(s LinkState, reason string) {
	if c.linkState == s {
		return
	}
	c.recorder.State(c.linkState.String(), s.String(), reason)
	c.linkState = s
}

func (c *Controller) recordTransitionLocked(old State, reason string) {
	if o, n := old.Phase(), c.state.Phase(); o != n {
		c.recorder.State(o, n, reason)
	}
}
