package sim

import (
	"sync"

	"github.com/linkpm/linkpm-go/pkg/endpoint"
	"github.com/linkpm/linkpm-go/pkg/host"
	"github.com/linkpm/linkpm-go/pkg/hw"
)

// DefaultIdentity is the identity the simulated endpoint reports.
var DefaultIdentity = hw.Identity{VendorID: 0x1e0f, DeviceID: 0x0001}

// BoardOptions configures a Board.
type BoardOptions struct {
	// Identity reported by the endpoint. Zero selects DefaultIdentity.
	Identity hw.Identity

	HostSequences     host.Sequences
	EndpointSequences endpoint.Sequences

	// WakeActiveLow and PerstActiveLow set the electrical polarity.
	WakeActiveLow  bool
	PerstActiveLow bool
}

// Board is a simulated host and endpoint joined by a link.
type Board struct {
	Wake  *Line
	Perst *Line

	// LinkDown is the host controller's link-down status. It asserts when
	// a trained link drops and clears when the root complex powers down.
	LinkDown *Line

	HostSeq     *Sequencer
	EndpointSeq *Sequencer

	HostLink     *LinkTrainer
	EndpointLink *LinkTrainer

	HostBus     *Bus
	EndpointBus *Bus

	HostIdentity     *IdentityReader
	EndpointIdentity *IdentityReader

	Registers *RegisterFile

	HostWakeLock     *WakeLock
	EndpointWakeLock *WakeLock

	mu              sync.Mutex
	hostPowered     bool
	endpointPowered bool
	linkLost        bool
}

// NewBoard creates a board with both sides powered off and both lines
// deasserted.
func NewBoard(opts BoardOptions) *Board {
	if opts.Identity.IsZero() {
		opts.Identity = DefaultIdentity
	}
	if opts.HostSequences == (host.Sequences{}) {
		opts.HostSequences = host.DefaultSequences()
	}
	if opts.EndpointSequences == (endpoint.Sequences{}) {
		opts.EndpointSequences = endpoint.DefaultSequences()
	}
	hs, es := opts.HostSequences, opts.EndpointSequences

	b := &Board{
		Wake:             NewLine("WAKE", opts.WakeActiveLow),
		Perst:            NewLine("PERST", opts.PerstActiveLow),
		LinkDown:         NewLine("LINKDOWN", false),
		HostSeq:          NewSequencer(hs.Resume, hs.Suspend),
		EndpointSeq:      NewSequencer(es.Startup, es.Shutdown, es.WakeRelease, es.Fixup),
		HostBus:          &Bus{},
		EndpointBus:      &Bus{},
		Registers:        NewRegisterFile(),
		HostWakeLock:     &WakeLock{},
		EndpointWakeLock: &WakeLock{},
	}
	b.HostLink = newLinkTrainer(b.LinkReady)
	b.EndpointLink = newLinkTrainer(b.LinkReady)
	b.HostIdentity = &IdentityReader{id: opts.Identity, powered: b.EndpointPowered}
	b.EndpointIdentity = &IdentityReader{id: opts.Identity, powered: b.EndpointPowered}

	b.EndpointSeq.On(es.Startup, func() {
		b.setEndpointPowered(true)
		b.Wake.Set(true)
	})
	b.EndpointSeq.On(es.WakeRelease, func() {
		b.Wake.Set(false)
	})
	b.EndpointSeq.On(es.Shutdown, func() {
		b.setEndpointPowered(false)
		b.Wake.Set(false)
	})

	b.HostSeq.On(hs.Resume, func() {
		b.setHostPowered(true)
		b.Perst.Set(true)
	})
	b.HostSeq.On(hs.Suspend, func() {
		b.Perst.Set(false)
		b.setHostPowered(false)
		b.Registers.Clear()
		b.mu.Lock()
		b.linkLost = false
		b.mu.Unlock()
		b.LinkDown.Set(false)
	})
	return b
}

// HostDeps returns the host controller's collaborators.
func (b *Board) HostDeps() host.Deps {
	return host.Deps{
		Sequencer: b.HostSeq,
		Link:      b.HostLink,
		Bus:       b.HostBus,
		Identity:  b.HostIdentity,
		Registers: b.Registers,
	}
}

// EndpointDeps returns the endpoint controller's collaborators.
func (b *Board) EndpointDeps() endpoint.Deps {
	return endpoint.Deps{
		Sequencer: b.EndpointSeq,
		Link:      b.EndpointLink,
		Bus:       b.EndpointBus,
		Identity:  b.EndpointIdentity,
	}
}

// HostPowered reports whether the root complex is powered.
func (b *Board) HostPowered() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hostPowered
}

// EndpointPowered reports whether the endpoint is powered.
func (b *Board) EndpointPowered() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.endpointPowered
}

// LinkReady reports whether the link can train.
func (b *Board) LinkReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hostPowered && b.endpointPowered && !b.linkLost
}

// DropLink makes the link fail without either side asking for it. The
// link stays down and LinkDown stays asserted until the root complex is
// powered down.
func (b *Board) DropLink() {
	b.mu.Lock()
	b.linkLost = true
	b.mu.Unlock()
	b.LinkDown.Set(true)
}

func (b *Board) setHostPowered(v bool) {
	b.mu.Lock()
	b.hostPowered = v
	b.mu.Unlock()
}

func (b *Board) setEndpointPowered(v bool) {
	b.mu.Lock()
	b.endpointPowered = v
	b.mu.Unlock()
}
