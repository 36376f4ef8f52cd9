package endpoint

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linkpm/linkpm-go/pkg/hw"
	"github.com/linkpm/linkpm-go/pkg/log"
	"github.com/linkpm/linkpm-go/pkg/retry"
	"github.com/linkpm/linkpm-go/pkg/wakeguard"
)

// Defaults.
const (
	// DefaultSettleDelay is the wait between power-up and the first
	// identity read.
	DefaultSettleDelay = 20 * time.Millisecond

	// DefaultLinkTimeout bounds link training during Reinit.
	DefaultLinkTimeout = 1 * time.Second

	// DefaultIdentityAttempts is the identity read budget.
	DefaultIdentityAttempts = 10

	// DefaultIdentityInterval is the sleep between identity reads.
	DefaultIdentityInterval = 10 * time.Millisecond
)

// Sequences names the syscon sequences the endpoint applies.
type Sequences struct {
	Startup     string `yaml:"startup"`
	Shutdown    string `yaml:"shutdown"`
	WakeRelease string `yaml:"wake_release"`

	// Fixup is optional; empty skips the step.
	Fixup string `yaml:"fixup"`
}

// DefaultSequences returns the standard sequence names.
func DefaultSequences() Sequences {
	return Sequences{
		Startup:     hw.SequenceStartup,
		Shutdown:    hw.SequenceShutdown,
		WakeRelease: hw.SequenceWakeRelease,
		Fixup:       hw.SequenceFixup,
	}
}

// Config holds endpoint tunables.
type Config struct {
	// Sequences to apply. Zero value selects DefaultSequences.
	Sequences Sequences

	// SettleDelay is the electrical settling time after power-up.
	SettleDelay time.Duration

	// IdentityRetry bounds identity verification.
	IdentityRetry retry.Policy

	// ExpectedIdentity is compared against the identity read during
	// Reinit. Zero accepts any successful read.
	ExpectedIdentity hw.Identity

	// LinkTimeout bounds WaitForLink.
	LinkTimeout time.Duration

	// WakeWindow is how long a wake-down waits for Reinit before the
	// wake signal is released.
	WakeWindow time.Duration

	// Logger receives operational logs. Nil discards.
	Logger *slog.Logger

	// TraceLogger receives lifecycle trace events. Nil disables tracing.
	TraceLogger log.Logger
}

// Deps are the hardware collaborators.
type Deps struct {
	Sequencer hw.Sequencer
	Link      hw.LinkTrainer
	Bus       hw.BusManager
	Identity  hw.IdentityReader
}

// ErrMissingDependency is returned by New when a collaborator is nil.
var ErrMissingDependency = errors.New("missing hardware dependency")

func (d Deps) validate() error {
	switch {
	case d.Sequencer == nil:
		return fmt.Errorf("%w: sequencer", ErrMissingDependency)
	case d.Link == nil:
		return fmt.Errorf("%w: link trainer", ErrMissingDependency)
	case d.Bus == nil:
		return fmt.Errorf("%w: bus manager", ErrMissingDependency)
	case d.Identity == nil:
		return fmt.Errorf("%w: identity reader", ErrMissingDependency)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Sequences == (Sequences{}) {
		c.Sequences = DefaultSequences()
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.IdentityRetry.Attempts == 0 {
		c.IdentityRetry.Attempts = DefaultIdentityAttempts
	}
	if c.IdentityRetry.Backoff == (retry.BackoffConfig{}) {
		c.IdentityRetry.Backoff = retry.Fixed(DefaultIdentityInterval)
	}
	if c.LinkTimeout == 0 {
		c.LinkTimeout = DefaultLinkTimeout
	}
	if c.WakeWindow == 0 {
		c.WakeWindow = wakeguard.DefaultWindow
	}
}
