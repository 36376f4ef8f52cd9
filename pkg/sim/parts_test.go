package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkpm/linkpm-go/pkg/hw"
)

func TestLinePolarityAndEdges(t *testing.T) {
	l := NewLine("PERST", true)
	edges := 0
	l.OnEdge(func() { edges++ })

	level, err := l.Level()
	require.NoError(t, err)
	assert.True(t, level, "active-low line idles high")
	assert.False(t, l.Asserted())

	l.Set(true)
	level, _ = l.Level()
	assert.False(t, level)
	assert.True(t, l.Asserted())

	l.Set(true) // no change, no edge
	assert.Equal(t, 1, edges)

	l.Pulse()
	assert.Equal(t, 3, edges)
	assert.True(t, l.Asserted())
}

type brokenLine struct{ *Line }

func (brokenLine) Level() (bool, error) { return false, errors.New("gpio read") }

func TestLineFollowsSource(t *testing.T) {
	src := NewLine("jig", false)
	perst := NewLine("PERST", true)
	edges := 0
	perst.OnEdge(func() { edges++ })

	// The idle jig drives the active-low line low, asserting it.
	require.NoError(t, perst.Follow(src))
	assert.True(t, perst.Asserted())
	assert.Equal(t, 1, edges)

	src.Set(true)
	level, _ := perst.Level()
	assert.True(t, level)
	assert.False(t, perst.Asserted())
	assert.Equal(t, 2, edges)

	err := NewLine("WAKE", true).Follow(brokenLine{src})
	assert.ErrorContains(t, err, "follow WAKE")
}

func TestSequencerFailureInjection(t *testing.T) {
	s := NewSequencer("a", "b")
	ran := 0
	s.On("a", func() { ran++ })
	ctx := context.Background()

	s.FailNext("a", 1)
	assert.ErrorIs(t, s.ApplySequence(ctx, "a"), hw.ErrSequenceFailed)
	require.NoError(t, s.ApplySequence(ctx, "a"))
	require.NoError(t, s.ApplySequence(ctx, "b"))
	assert.ErrorIs(t, s.ApplySequence(ctx, "c"), hw.ErrUnknownSequence)

	assert.Equal(t, 1, ran)
	assert.Equal(t, []string{"a", "b"}, s.Applied())
	assert.Equal(t, 1, s.Count("a"))
}

func TestLinkTrainerWaitsForBothSides(t *testing.T) {
	b := NewBoard(BoardOptions{})
	ctx := context.Background()

	assert.ErrorIs(t, b.HostLink.WaitForLink(ctx, 5*time.Millisecond), hw.ErrLinkTimeout)

	b.setHostPowered(true)
	go func() {
		time.Sleep(5 * time.Millisecond)
		b.setEndpointPowered(true)
	}()
	require.NoError(t, b.HostLink.WaitForLink(ctx, time.Second))
	assert.Equal(t, uint64(1), b.HostLink.Trainings())

	b.HostLink.FailNext(2)
	assert.ErrorIs(t, b.HostLink.WaitForLink(ctx, time.Second), hw.ErrLinkTimeout)
	assert.ErrorIs(t, b.HostLink.WaitForLink(ctx, time.Second), hw.ErrLinkTimeout)
	require.NoError(t, b.HostLink.WaitForLink(ctx, time.Second))

	require.NoError(t, b.HostLink.EnterLowPower(ctx))
	b.HostLink.FailLowPowerNext(1)
	assert.ErrorIs(t, b.HostLink.EnterLowPower(ctx), hw.ErrLinkTimeout)
}

func TestBoardSequenceEffects(t *testing.T) {
	b := NewBoard(BoardOptions{WakeActiveLow: true})
	ctx := context.Background()

	_, err := b.HostIdentity.ReadIdentity(ctx)
	assert.ErrorIs(t, err, ErrNoResponse)

	require.NoError(t, b.EndpointSeq.ApplySequence(ctx, hw.SequenceStartup))
	assert.True(t, b.EndpointPowered())
	assert.True(t, b.Wake.Asserted())
	id, err := b.HostIdentity.ReadIdentity(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultIdentity, id)

	require.NoError(t, b.EndpointSeq.ApplySequence(ctx, hw.SequenceWakeRelease))
	assert.False(t, b.Wake.Asserted())

	require.NoError(t, b.Registers.WriteRegister(0x8, 1))
	require.NoError(t, b.HostSeq.ApplySequence(ctx, hw.SequenceResume))
	assert.True(t, b.Perst.Asserted())
	assert.True(t, b.LinkReady())

	require.NoError(t, b.HostSeq.ApplySequence(ctx, hw.SequenceSuspend))
	assert.False(t, b.Perst.Asserted())
	assert.False(t, b.HostPowered())
	v, _ := b.Registers.ReadRegister(0x8)
	assert.Equal(t, uint32(0), v)
}

func TestBoardDropLink(t *testing.T) {
	b := NewBoard(BoardOptions{})
	ctx := context.Background()
	require.NoError(t, b.EndpointSeq.ApplySequence(ctx, hw.SequenceStartup))
	require.NoError(t, b.HostSeq.ApplySequence(ctx, hw.SequenceResume))
	require.True(t, b.LinkReady())

	var edges int
	b.LinkDown.OnEdge(func() { edges++ })

	b.DropLink()
	assert.True(t, b.LinkDown.Asserted())
	assert.False(t, b.LinkReady())
	assert.ErrorIs(t, b.HostLink.WaitForLink(ctx, 20*time.Millisecond), hw.ErrLinkTimeout)

	// Powering the root complex down clears the loss.
	require.NoError(t, b.HostSeq.ApplySequence(ctx, hw.SequenceSuspend))
	assert.False(t, b.LinkDown.Asserted())
	require.NoError(t, b.HostSeq.ApplySequence(ctx, hw.SequenceResume))
	assert.True(t, b.LinkReady())
	assert.Equal(t, 2, edges)
}

func TestWakeLock(t *testing.T) {
	var w WakeLock
	assert.False(t, w.Held())
	w.StayAwake(time.Hour)
	assert.True(t, w.Held())
	assert.Equal(t, 1, w.Holds())
}
