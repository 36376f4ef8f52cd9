package host

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linkpm/linkpm-go/pkg/hw"
	"github.com/linkpm/linkpm-go/pkg/log"
	"github.com/linkpm/linkpm-go/pkg/retry"
	"github.com/linkpm/linkpm-go/pkg/snapshot"
)

// Defaults.
const (
	// DefaultSettleDelay is the wait between the resume sequence and the
	// first identity read.
	DefaultSettleDelay = 20 * time.Millisecond

	// DefaultLinkTimeout bounds link training.
	DefaultLinkTimeout = 1 * time.Second

	// DefaultGateTimeout bounds how long ConfigureDevice waits for a
	// sleep transition to finish.
	DefaultGateTimeout = 4 * time.Second

	// DefaultConfigureAttempts is the reinit budget of ConfigureDevice.
	DefaultConfigureAttempts = 3

	// DefaultIdentityAttempts is the identity read budget per reinit.
	DefaultIdentityAttempts = 10

	// DefaultLowPowerAttempts is the low-power link entry budget.
	DefaultLowPowerAttempts = 3
)

// Sequences names the syscon sequences the host applies.
type Sequences struct {
	Resume  string `yaml:"resume"`
	Suspend string `yaml:"suspend"`
}

// DefaultSequences returns the standard sequence names.
func DefaultSequences() Sequences {
	return Sequences{
		Resume:  hw.SequenceResume,
		Suspend: hw.SequenceSuspend,
	}
}

// Config holds host tunables.
type Config struct {
	// Sequences to apply. Zero value selects DefaultSequences.
	Sequences Sequences

	SettleDelay time.Duration
	LinkTimeout time.Duration

	// GateTimeout bounds the wait for a sleep transition to finish.
	GateTimeout time.Duration

	// ConfigureRetry bounds the reinit attempts of ConfigureDevice.
	ConfigureRetry retry.Policy

	// IdentityRetry bounds identity verification within one reinit.
	IdentityRetry retry.Policy

	// LowPowerRetry bounds low-power link entry before power-down.
	LowPowerRetry retry.Policy

	// ExpectedIdentity is compared against the link partner's identity.
	// Zero accepts any successful read.
	ExpectedIdentity hw.Identity

	// SnapshotLayout lists the registers preserved across power-down.
	// Empty disables snapshots.
	SnapshotLayout snapshot.Layout

	// VetoSuspendWhenPowered makes Prepare refuse system sleep while the
	// link partner is powered.
	VetoSuspendWhenPowered bool

	// Logger receives operational logs. Nil discards.
	Logger *slog.Logger

	// TraceLogger receives lifecycle trace events. Nil disables tracing.
	TraceLogger log.Logger
}

// Deps are the hardware collaborators. Registers is only needed when a
// snapshot layout is configured.
type Deps struct {
	Sequencer hw.Sequencer
	Link      hw.LinkTrainer
	Bus       hw.BusManager
	Identity  hw.IdentityReader
	Registers hw.RegisterFile
}

// ErrMissingDependency is returned by New when a collaborator is nil.
var ErrMissingDependency = errors.New("missing hardware dependency")

func (d Deps) validate(cfg Config) error {
	switch {
	case d.Sequencer == nil:
		return fmt.Errorf("%w: sequencer", ErrMissingDependency)
	case d.Link == nil:
		return fmt.Errorf("%w: link trainer", ErrMissingDependency)
	case d.Bus == nil:
		return fmt.Errorf("%w: bus manager", ErrMissingDependency)
	case d.Identity == nil:
		return fmt.Errorf("%w: identity reader", ErrMissingDependency)
	case len(cfg.SnapshotLayout) > 0 && d.Registers == nil:
		return fmt.Errorf("%w: register file", ErrMissingDependency)
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
	if c.LinkTimeout == 0 {
		c.LinkTimeout = DefaultLinkTimeout
	}
	if c.GateTimeout == 0 {
		c.GateTimeout = DefaultGateTimeout
	}
	if c.ConfigureRetry.Attempts == 0 {
		c.ConfigureRetry.Attempts = DefaultConfigureAttempts
	}
	if c.IdentityRetry.Attempts == 0 {
		c.IdentityRetry.Attempts = DefaultIdentityAttempts
	}
	if c.IdentityRetry.Backoff == (retry.BackoffConfig{}) {
		c.IdentityRetry.Backoff = retry.Fixed(10 * time.Millisecond)
	}
	if c.LowPowerRetry.Attempts == 0 {
		c.LowPowerRetry.Attempts = DefaultLowPowerAttempts
	}
	if c.LowPowerRetry.Backoff == (retry.BackoffConfig{}) {
		c.LowPowerRetry.Backoff = retry.Fixed(10 * time.Millisecond)
	}
}
