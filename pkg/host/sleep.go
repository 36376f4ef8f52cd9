package host

import (
	"context"
)

// Prepare is the sleep-prepare hook. It closes the sleep gate so that no
// ConfigureDevice runs during the transition. If the link partner is
// powered and VetoSuspendWhenPowered is set, it reopens the gate and
// returns ErrBusy to veto the transition.
func (c *Controller) Prepare() error {
	c.gate.close()

	if c.cfg.VetoSuspendWhenPowered && c.powered.Load() {
		c.gate.open()
		c.mu.Lock()
		c.stats.Vetoes++
		c.mu.Unlock()
		c.logger.Info("system sleep vetoed", "reason", "device powered")
		c.recorder.Error("prepare", ErrBusy)
		return ErrBusy
	}
	c.logger.Debug("sleep prepare")
	return nil
}

// Complete is the post-sleep hook. It reopens the sleep gate and wakes
// any ConfigureDevice waiting on it.
func (c *Controller) Complete() {
	c.gate.open()
	c.logger.Debug("sleep complete")
}

// ReinitDisabled reports whether the sleep gate is closed.
func (c *Controller) ReinitDisabled() bool {
	return c.gate.isClosed()
}

// Suspend is the system suspend hook. It saves the register snapshot,
// asks the link for its low-power state and powers the link partner down.
// It does nothing if the partner is not powered or already suspended.
// Failures are logged and never abort the sleep transition.
func (c *Controller) Suspend(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Powered || c.state.Suspended {
		c.logger.Debug("suspend skipped", "phase", c.state.Phase())
		return nil
	}
	c.stats.Suspends++

	c.saveSnapshotLocked()
	if c.linkState == LinkUp {
		c.setLinkLocked(LinkDownTry, "suspend")
		c.enterLowPowerLocked(ctx)
	}
	_ = c.applySequence(ctx, c.cfg.Sequences.Suspend)

	old := c.state
	c.state.Suspended = true
	c.recordTransitionLocked(old, "suspend")
	c.setLinkLocked(LinkDown, "suspend")
	c.logger.Info("suspended")
	return nil
}

// Resume is the system resume hook. It powers the link partner back up,
// re-verifies its identity, retrains the link and restores the register
// snapshot. It does nothing unless Suspend powered the partner down.
// On failure the partner is powered down and marked unpowered, so the next
// ConfigureDevice retries from scratch; the error is logged, not returned.
func (c *Controller) Resume(ctx context.Context) error {
	c.notify(c.resume(ctx))
	return nil
}

func (c *Controller) resume(ctx context.Context) Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Powered || !c.state.Suspended {
		c.logger.Debug("resume skipped", "phase", c.state.Phase())
		return 0
	}
	c.stats.Resumes++
	c.setLinkLocked(LinkUpTry, "resume")

	err := c.reinitLocked(ctx)

	old := c.state
	c.state.Suspended = false
	c.recordTransitionLocked(old, "resume")

	if err != nil {
		c.stats.ResumeFailures++
		c.recorder.Error("resume", err)
		c.logger.Warn("resume failed", "error", err)
		_ = c.applySequence(ctx, c.cfg.Sequences.Suspend)
		c.setPoweredLocked(false, "resume failed")
		c.setLinkLocked(LinkDown, "resume failed")
		return EventLinkDown
	}
	c.restoreSnapshotLocked()
	c.setLinkLocked(LinkUp, "resume")
	c.logger.Info("resumed")
	return 0
}
