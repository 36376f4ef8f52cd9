package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/linkpm/linkpm-go/pkg/retry"
	"github.com/linkpm/linkpm-go/pkg/wakeguard"
)

// ValidationError is one invalid config field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid field.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

type validator struct {
	errs ValidationErrors
}

func (v *validator) add(field, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) positive(field string, d time.Duration) {
	if d <= 0 {
		v.add(field, "must be positive, got %s", d)
	}
}

func (v *validator) policy(field string, p retry.Policy) {
	if p.Attempts < 1 {
		v.add(field+".attempts", "must be at least 1, got %d", p.Attempts)
	}
	b := p.Backoff
	if b.Initial < 0 || b.Max < 0 {
		v.add(field+".backoff", "delays must not be negative")
	}
	if b.Jitter < 0 || b.Jitter > 1 {
		v.add(field+".backoff.jitter", "must be within [0, 1], got %g", b.Jitter)
	}
}

func (v *validator) sequence(field, name string) {
	if name == "" {
		v.add(field, "must not be empty")
	}
}

// Validate checks the config. It returns ValidationErrors listing every
// invalid field.
func (c *Config) Validate() error {
	v := &validator{}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		v.add("log_level", "unknown level %q", c.LogLevel)
	}

	h := c.Host
	v.sequence("host.sequences.resume", h.Sequences.Resume)
	v.sequence("host.sequences.suspend", h.Sequences.Suspend)
	v.positive("host.settle_delay", h.SettleDelay)
	v.positive("host.link_timeout", h.LinkTimeout)
	v.positive("host.gate_timeout", h.GateTimeout)
	v.policy("host.configure_retry", h.ConfigureRetry)
	v.policy("host.identity_retry", h.IdentityRetry)
	v.policy("host.low_power_retry", h.LowPowerRetry)
	seen := make(map[uint32]bool, len(h.Snapshot))
	for i, f := range h.Snapshot {
		if f.Offset%4 != 0 {
			v.add(fmt.Sprintf("host.snapshot[%d].offset", i), "%#x is not word aligned", f.Offset)
		}
		if seen[f.Offset] {
			v.add(fmt.Sprintf("host.snapshot[%d].offset", i), "%#x listed twice", f.Offset)
		}
		seen[f.Offset] = true
	}

	e := c.Endpoint
	v.sequence("endpoint.sequences.startup", e.Sequences.Startup)
	v.sequence("endpoint.sequences.shutdown", e.Sequences.Shutdown)
	v.sequence("endpoint.sequences.wake_release", e.Sequences.WakeRelease)
	v.positive("endpoint.settle_delay", e.SettleDelay)
	v.positive("endpoint.link_timeout", e.LinkTimeout)
	v.policy("endpoint.identity_retry", e.IdentityRetry)
	if e.WakeWindow < wakeguard.MinWindow || e.WakeWindow > wakeguard.MaxWindow {
		v.add("endpoint.wake_window", "must be within [%s, %s], got %s",
			wakeguard.MinWindow, wakeguard.MaxWindow, e.WakeWindow)
	}

	for name, l := range map[string]LineConfig{"lines.wake": c.Lines.Wake, "lines.perst": c.Lines.Perst} {
		if l.Offset < 0 {
			v.add(name+".offset", "must not be negative")
		}
		if l.StayAwake < 0 {
			v.add(name+".stay_awake", "must not be negative")
		}
	}
	if w, p := c.Lines.Wake, c.Lines.Perst; w.Chip != "" && w.Chip == p.Chip && w.Offset == p.Offset {
		v.add("lines.perst", "shares %s line %d with lines.wake", p.Chip, p.Offset)
	}

	if len(v.errs) == 0 {
		return nil
	}
	return v.errs
}
