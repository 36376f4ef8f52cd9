package host

import (
	"context"
	"errors"
	"fmt"
)

// HandleLinkDown is the link-down interrupt bottom half. asserted is the
// logical level of the link-down status. Losing a trained link moves it
// to LinkDownTry and reports EventLinkDown to the registration, which then
// owns recovery. With nobody listening the controller recovers the link
// itself. Link-down reports while the link is not up are ignored.
func (c *Controller) HandleLinkDown(ctx context.Context, asserted bool) {
	if !asserted {
		return
	}

	c.mu.Lock()
	if !c.state.Powered || c.state.Suspended || c.linkState != LinkUp {
		link := c.linkState
		c.mu.Unlock()
		c.logger.Debug("link-down ignored", "link", link.String())
		return
	}
	c.stats.LinkDowns++
	count := c.stats.LinkDowns
	c.setLinkLocked(LinkDownTry, "link lost")
	c.recorder.Error("link down", ErrLinkLost)
	c.mu.Unlock()

	c.logger.Warn("unexpected link down", "count", count)
	if c.notify(EventLinkDown) {
		return
	}
	if err := c.RecoverLink(ctx); err != nil {
		c.logger.Error("link recovery failed", "error", err)
	}
}

// RecoverLink power-cycles the link partner after an unexpected link loss:
// the device is unconfigured and then configured again. A failed removal
// does not stop the power-up.
func (c *Controller) RecoverLink(ctx context.Context) error {
	c.mu.Lock()
	c.stats.LinkRecoveries++
	c.mu.Unlock()
	c.logger.Info("recovering link")

	if err := c.UnconfigureDevice(ctx); err != nil && !errors.Is(err, ErrNotPowered) {
		c.logger.Warn("unconfigure during recovery failed", "error", err)
	}
	if err := c.ConfigureDevice(ctx); err != nil {
		c.recorder.Error("link recovery", err)
		return fmt.Errorf("recover link: %w", err)
	}
	c.logger.Info("link recovered")
	return nil
}

// LinkLost reports whether the link dropped unexpectedly and has not been
// recovered yet.
func (c *Controller) LinkLost() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Powered && c.linkState == LinkDownTry
}
