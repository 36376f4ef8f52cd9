package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkpm/linkpm-go/pkg/action"
	"github.com/linkpm/linkpm-go/pkg/config"
	"github.com/linkpm/linkpm-go/pkg/host"
	"github.com/linkpm/linkpm-go/pkg/hw"
	"github.com/linkpm/linkpm-go/pkg/irq"
	"github.com/linkpm/linkpm-go/pkg/log"
	"github.com/linkpm/linkpm-go/pkg/retry"
	"github.com/linkpm/linkpm-go/pkg/snapshot"
)

const waitFor = 2 * time.Second

func fastConfig() *config.Config {
	cfg := config.Default()
	cfg.Host.SettleDelay = time.Millisecond
	cfg.Host.LinkTimeout = 200 * time.Millisecond
	cfg.Host.ConfigureRetry.Backoff = retry.Fixed(time.Millisecond)
	cfg.Host.IdentityRetry = retry.Policy{Attempts: 50, Backoff: retry.Fixed(2 * time.Millisecond)}
	cfg.Host.Snapshot = snapshot.Layout{{Offset: 0x0}, {Offset: 0x4, Mask: 0xffff}}
	cfg.Endpoint.SettleDelay = time.Millisecond
	cfg.Endpoint.LinkTimeout = 200 * time.Millisecond
	return cfg
}

func startSystem(t *testing.T, cfg *config.Config, auto bool) (*System, *log.MemoryLogger) {
	t.Helper()
	trace := log.NewMemoryLogger(0)
	s, err := NewSystem(cfg, SystemOptions{Trace: trace, AutoConfigure: auto})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)
	return s, trace
}

func TestBootPerstBringsEndpointUp(t *testing.T) {
	s, _ := startSystem(t, fastConfig(), false)
	assert.False(t, s.Board.LinkReady())

	require.NoError(t, s.Host.ConfigureDevice(context.Background()))
	assert.True(t, s.Host.State().Powered)
	assert.True(t, s.Board.HostBus.Enumerated())

	// PERST assert reached the endpoint, which reinitialised and
	// announced the link.
	require.Eventually(t, func() bool {
		return s.Endpoint.State().Powered && s.Board.EndpointBus.Enumerated()
	}, waitFor, time.Millisecond)
	assert.Equal(t, 1, s.Board.EndpointBus.Rescans())
	assert.GreaterOrEqual(t, s.PerstIRQ.Stats().Handled, uint64(1))
	assert.GreaterOrEqual(t, s.Board.EndpointWakeLock.Holds(), 1)
}

func TestUnconfigureShutsEndpointDown(t *testing.T) {
	s, _ := startSystem(t, fastConfig(), false)
	ctx := context.Background()
	require.NoError(t, s.Host.ConfigureDevice(ctx))
	require.Eventually(t, func() bool { return s.Endpoint.State().Powered }, waitFor, time.Millisecond)

	require.NoError(t, s.Host.UnconfigureDevice(ctx))
	assert.False(t, s.Host.State().Powered)
	assert.False(t, s.Board.HostBus.Enumerated())

	require.Eventually(t, func() bool {
		return !s.Endpoint.State().Powered && !s.Board.EndpointPowered()
	}, waitFor, time.Millisecond)
	assert.Equal(t, 1, s.Board.EndpointBus.Removes())
}

func TestEndpointWakeIsAnsweredByHost(t *testing.T) {
	s, trace := startSystem(t, fastConfig(), true)

	require.NoError(t, s.Endpoint.Enqueue(action.WakeAssert))

	require.Eventually(t, func() bool {
		st := s.Endpoint.State()
		return st.Powered && !st.WakeDown && s.Host.State().Powered
	}, waitFor, time.Millisecond)
	s.WaitOwner()

	require.NoError(t, s.LastOwnerError())
	assert.False(t, s.Board.Wake.Asserted(), "wake released after reinit")
	assert.Equal(t, 1, s.Board.EndpointSeq.Count(hw.SequenceWakeRelease))
	assert.Equal(t, 1, s.Board.EndpointSeq.Count(hw.SequenceStartup))
	assert.Equal(t, uint64(0), s.Endpoint.Stats().GuardExpiries)
	assert.GreaterOrEqual(t, s.Host.Stats().WakeIRQs, uint64(1))

	irqs := trace.Filter(log.Filter{Category: categoryPtr(log.CategoryIRQ)})
	assert.NotEmpty(t, irqs)
}

func TestEndpointWakeTimesOutWithoutHost(t *testing.T) {
	cfg := fastConfig()
	cfg.Endpoint.WakeWindow = 50 * time.Millisecond
	s, _ := startSystem(t, cfg, false)

	require.NoError(t, s.Endpoint.Enqueue(action.WakeAssert))
	require.Eventually(t, func() bool { return s.Endpoint.State().WakeDown }, waitFor, time.Millisecond)
	assert.True(t, s.Board.Wake.Asserted())

	require.Eventually(t, func() bool { return !s.Endpoint.State().WakeDown }, waitFor, time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	assert.False(t, s.Board.Wake.Asserted())
	assert.Equal(t, 1, s.Board.EndpointSeq.Count(hw.SequenceWakeRelease))
	assert.Equal(t, uint64(1), s.Endpoint.Stats().GuardExpiries)
	assert.False(t, s.Host.State().Powered)
	assert.GreaterOrEqual(t, s.Host.Stats().Notifications, uint64(1))
}

func TestHostConfigureFailsAfterThreeLinkTimeouts(t *testing.T) {
	s, _ := startSystem(t, fastConfig(), false)
	s.Board.HostLink.FailNext(3)

	err := s.Host.ConfigureDevice(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, hw.ErrLinkTimeout)

	assert.False(t, s.Host.State().Powered)
	assert.Equal(t, 0, s.Board.HostBus.Rescans())
	assert.False(t, s.Board.HostPowered())

	// PERST went back down, so the endpoint ends up off too.
	require.Eventually(t, func() bool {
		return !s.Endpoint.State().Powered && !s.Board.EndpointPowered()
	}, waitFor, time.Millisecond)
}

func TestSuspendResumeRestoresRegisters(t *testing.T) {
	s, _ := startSystem(t, fastConfig(), false)
	ctx := context.Background()
	require.NoError(t, s.Host.ConfigureDevice(ctx))

	require.NoError(t, s.Board.Registers.WriteRegister(0x0, 0x11223344))
	require.NoError(t, s.Board.Registers.WriteRegister(0x4, 0xaabbccdd))

	require.NoError(t, s.Host.Prepare())
	require.NoError(t, s.Host.Suspend(ctx))
	v, _ := s.Board.Registers.ReadRegister(0x0)
	assert.Equal(t, uint32(0), v, "power-down clears registers")

	require.NoError(t, s.Host.Resume(ctx))
	s.Host.Complete()

	v0, _ := s.Board.Registers.ReadRegister(0x0)
	v4, _ := s.Board.Registers.ReadRegister(0x4)
	assert.Equal(t, uint32(0x11223344), v0)
	assert.Equal(t, uint32(0x0000ccdd), v4)
	assert.True(t, s.Host.State().Powered)
	assert.False(t, s.Host.State().Suspended)
}

func TestLostLinkIsRecoveredByOwner(t *testing.T) {
	s, trace := startSystem(t, fastConfig(), true)
	ctx := context.Background()
	require.NoError(t, s.Host.ConfigureDevice(ctx))
	require.Eventually(t, func() bool { return s.Endpoint.State().Powered }, waitFor, time.Millisecond)
	require.NoError(t, s.Board.Registers.WriteRegister(0x0, 0x5a5a5a5a))

	s.Board.DropLink()

	require.Eventually(t, func() bool {
		return s.Host.Stats().LinkRecoveries == 1 && s.Host.LinkState() == host.LinkUp
	}, waitFor, time.Millisecond)
	s.WaitOwner()
	require.NoError(t, s.LastOwnerError())

	assert.False(t, s.Board.LinkDown.Asserted())
	assert.True(t, s.Board.LinkReady())
	assert.Equal(t, uint64(1), s.Host.Stats().LinkDowns)
	assert.Equal(t, 2, s.Board.HostBus.Rescans())
	v, _ := s.Board.Registers.ReadRegister(0x0)
	assert.Equal(t, uint32(0x5a5a5a5a), v)
	require.Eventually(t, func() bool { return s.Endpoint.State().Powered }, waitFor, time.Millisecond)

	var linkDownIRQs int
	for _, ev := range trace.Filter(log.Filter{Category: categoryPtr(log.CategoryIRQ)}) {
		if ev.IRQ.Line == irq.LineLinkDown {
			linkDownIRQs++
		}
	}
	assert.GreaterOrEqual(t, linkDownIRQs, 1)
}

func TestLostLinkWaitsForOwner(t *testing.T) {
	s, _ := startSystem(t, fastConfig(), false)
	ctx := context.Background()
	require.NoError(t, s.Host.ConfigureDevice(ctx))
	notified := s.Host.Stats().Notifications

	s.Board.DropLink()

	require.Eventually(t, func() bool {
		return s.Host.LinkLost() && s.Host.Stats().Notifications == notified+1
	}, waitFor, time.Millisecond)
	assert.Equal(t, host.LinkDownTry, s.Host.LinkState())
	assert.Equal(t, uint64(0), s.Host.Stats().LinkRecoveries)
	assert.True(t, s.Host.State().Powered)

	// The owner recovers later, by hand.
	require.NoError(t, s.Host.RecoverLink(ctx))
	assert.Equal(t, host.LinkUp, s.Host.LinkState())
	assert.True(t, s.Board.LinkReady())
}

func TestStopDropsPendingAndRejectsEdges(t *testing.T) {
	s, err := NewSystem(fastConfig(), SystemOptions{})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	s.Stop()

	s.Board.Perst.Set(true)
	assert.False(t, s.PerstIRQ.Enabled())
	assert.Equal(t, uint64(1), s.PerstIRQ.Stats().Ignored)
	assert.ErrorIs(t, s.Endpoint.Enqueue(action.Reinit), action.ErrQueueStopped)
}

func categoryPtr(c log.Category) *log.Category { return &c }
