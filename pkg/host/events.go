package host

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
)

// Event is a bit mask of notifications delivered to a registration.
type Event uint32

const (
	// EventWake means an unpowered endpoint asked for attention.
	EventWake Event = 1 << iota

	// EventLinkUp means ConfigureDevice brought the link up.
	EventLinkUp

	// EventLinkDown means the link went down: UnconfigureDevice took it
	// down, a resume failed, or the link was lost unexpectedly.
	EventLinkDown

	// EventAll selects every event.
	EventAll = EventWake | EventLinkUp | EventLinkDown
)

// String returns the names of the set bits joined by '|'.
func (e Event) String() string {
	if e == 0 {
		return "NONE"
	}
	var names []string
	if e&EventWake != 0 {
		names = append(names, "WAKE")
	}
	if e&EventLinkUp != 0 {
		names = append(names, "LINK_UP")
	}
	if e&EventLinkDown != 0 {
		names = append(names, "LINK_DOWN")
	}
	if e&^EventAll != 0 {
		names = append(names, "UNKNOWN")
	}
	return strings.Join(names, "|")
}

// Registration errors.
var (
	ErrAlreadyRegistered   = errors.New("event callback already registered")
	ErrNotRegistered       = errors.New("event callback not registered")
	ErrInvalidRegistration = errors.New("invalid event registration")
)

// Callback receives one event. It runs without any controller lock held
// and may call back into the controller.
type Callback func(ev Event)

// Registration is a handle to a registered callback. It stays valid until
// passed to DeregisterEvent.
type Registration struct {
	mask  Event
	cb    Callback
	valid atomic.Bool
}

// Mask returns the events the registration receives.
func (r *Registration) Mask() Event { return r.mask }

// Valid reports whether the registration can still receive events.
func (r *Registration) Valid() bool { return r != nil && r.valid.Load() }

// RegisterEvent registers cb for the events in mask. Only one registration
// may exist at a time.
func (c *Controller) RegisterEvent(mask Event, cb Callback) (*Registration, error) {
	if cb == nil || mask&EventAll == 0 {
		return nil, ErrInvalidRegistration
	}

	c.regMu.Lock()
	defer c.regMu.Unlock()

	if c.reg.Valid() {
		return nil, ErrAlreadyRegistered
	}
	r := &Registration{mask: mask & EventAll, cb: cb}
	r.valid.Store(true)
	c.reg = r
	c.logger.Debug("event callback registered", "mask", r.mask.String())
	return r, nil
}

// DeregisterEvent invalidates r. After it returns no new delivery to r
// starts; a delivery already in progress may still complete.
func (c *Controller) DeregisterEvent(r *Registration) error {
	c.regMu.Lock()
	defer c.regMu.Unlock()

	if r == nil || r != c.reg {
		return ErrNotRegistered
	}
	r.valid.Store(false)
	c.reg = nil
	c.logger.Debug("event callback deregistered")
	return nil
}

// notify delivers ev to the registration if it asked for it and reports
// whether it did. Callers must not hold c.mu.
func (c *Controller) notify(ev Event) bool {
	if ev == 0 {
		return false
	}
	c.regMu.Lock()
	r := c.reg
	c.regMu.Unlock()

	if !r.Valid() || r.mask&ev == 0 {
		return false
	}
	c.mu.Lock()
	c.stats.Notifications++
	c.mu.Unlock()

	r.cb(ev & r.mask)
	return true
}

// HandleWake is the WAKE interrupt bottom half. asserted is the logical
// line level. A wake request from an unpowered endpoint is forwarded to
// the registered callback; nothing else happens here.
func (c *Controller) HandleWake(_ context.Context, asserted bool) {
	c.mu.Lock()
	c.stats.WakeIRQs++
	powered := c.state.Powered
	c.mu.Unlock()

	if !asserted {
		return
	}
	if powered {
		c.logger.Debug("wake ignored", "reason", "already powered")
		return
	}
	c.logger.Info("endpoint requested wake")
	c.notify(EventWake)
}
