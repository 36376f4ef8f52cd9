package hw

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Hardware errors.
var (
	// ErrLinkTimeout is returned when link training or a low-power link
	// transition does not complete within its budget.
	ErrLinkTimeout = errors.New("link training timeout")

	// ErrSequenceFailed is returned by a Sequencer when a step of a named
	// sequence fails or times out.
	ErrSequenceFailed = errors.New("syscon sequence failed")

	// ErrUnknownSequence is returned when a sequence name is not known.
	ErrUnknownSequence = errors.New("unknown syscon sequence")
)

// Default syscon sequence names.
const (
	// SequenceStartup powers the endpoint and asserts the software wake
	// signal toward the host.
	SequenceStartup = "startup"

	// SequenceShutdown powers the endpoint down.
	SequenceShutdown = "shutdown"

	// SequenceWakeRelease releases the software wake signal.
	SequenceWakeRelease = "wake-release"

	// SequenceFixup applies vendor-specific fixups after power-up.
	SequenceFixup = "fixup"

	// SequenceResume powers the root complex and its PHY back up.
	SequenceResume = "resume"

	// SequenceSuspend powers the root complex and its PHY down.
	SequenceSuspend = "suspend"
)

// Sequencer applies named register sequences on shared syscon registers.
type Sequencer interface {
	ApplySequence(ctx context.Context, name string) error
}

// LinkTrainer drives electrical link training.
type LinkTrainer interface {
	// WaitForLink trains the link and waits up to timeout for it to come up.
	// Returns ErrLinkTimeout if the link does not come up in time.
	WaitForLink(ctx context.Context, timeout time.Duration) error

	// EnterLowPower requests the defined low-power link state before
	// power-off. Returns ErrLinkTimeout if the partner does not acknowledge.
	EnterLowPower(ctx context.Context) error
}

// BusManager enumerates and removes devices behind the link.
type BusManager interface {
	Rescan(ctx context.Context) error
	Remove(ctx context.Context) error
}

// Identity is the vendor/device pair read from the link partner.
type Identity struct {
	VendorID uint16 `yaml:"vendor_id"`
	DeviceID uint16 `yaml:"device_id"`
}

// String returns the identity as vvvv:dddd.
func (i Identity) String() string {
	return fmt.Sprintf("%04x:%04x", i.VendorID, i.DeviceID)
}

// IsZero reports whether no identity was set.
func (i Identity) IsZero() bool {
	return i.VendorID == 0 && i.DeviceID == 0
}

// IdentityReader reads the hardware identity of the link partner.
type IdentityReader interface {
	ReadIdentity(ctx context.Context) (Identity, error)
}

// RegisterFile gives word access to controller registers.
type RegisterFile interface {
	ReadRegister(offset uint32) (uint32, error)
	WriteRegister(offset, value uint32) error
}

// Line is a level-polled signal such as WAKE or PERST.
type Line interface {
	// Level returns the raw electrical level (true = high).
	Level() (bool, error)
}

// WakeLock holds the system awake for a bounded window.
type WakeLock interface {
	StayAwake(d time.Duration)
}

// NoopWakeLock is a WakeLock that does nothing.
type NoopWakeLock struct{}

// StayAwake does nothing.
func (NoopWakeLock) StayAwake(time.Duration) {}

var _ WakeLock = NoopWakeLock{}
