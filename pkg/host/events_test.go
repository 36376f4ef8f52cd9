package host

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEventString(t *testing.T) {
	assert.Equal(t, "NONE", Event(0).String())
	assert.Equal(t, "WAKE", EventWake.String())
	assert.Equal(t, "WAKE|LINK_UP|LINK_DOWN", EventAll.String())
	assert.Equal(t, "LINK_DOWN|UNKNOWN", (EventLinkDown | 1<<10).String())
}

func TestRegisterEventSingleRegistration(t *testing.T) {
	f := newFixture(t, nil)
	cb := func(Event) {}

	_, err := f.ctrl.RegisterEvent(EventWake, nil)
	assert.ErrorIs(t, err, ErrInvalidRegistration)
	_, err = f.ctrl.RegisterEvent(0, cb)
	assert.ErrorIs(t, err, ErrInvalidRegistration)

	reg, err := f.ctrl.RegisterEvent(EventWake, cb)
	require.NoError(t, err)
	assert.True(t, reg.Valid())
	assert.Equal(t, EventWake, reg.Mask())

	_, err = f.ctrl.RegisterEvent(EventLinkUp, cb)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	require.NoError(t, f.ctrl.DeregisterEvent(reg))
	assert.False(t, reg.Valid())
	assert.ErrorIs(t, f.ctrl.DeregisterEvent(reg), ErrNotRegistered)

	reg2, err := f.ctrl.RegisterEvent(EventLinkUp, cb)
	require.NoError(t, err)
	assert.ErrorIs(t, f.ctrl.DeregisterEvent(reg), ErrNotRegistered, "stale handle must not remove the new one")
	assert.True(t, reg2.Valid())
}

func TestHandleWakeNotifiesWhenUnpowered(t *testing.T) {
	f := newFixture(t, nil)
	var got atomic.Int32
	_, err := f.ctrl.RegisterEvent(EventWake, func(ev Event) {
		assert.Equal(t, EventWake, ev)
		got.Add(1)
	})
	require.NoError(t, err)

	ctx := context.Background()
	f.ctrl.HandleWake(ctx, true)
	f.ctrl.HandleWake(ctx, false)

	assert.Equal(t, int32(1), got.Load())
	assert.Equal(t, uint64(2), f.ctrl.Stats().WakeIRQs)
	assert.Equal(t, uint64(1), f.ctrl.Stats().Notifications)
}

func TestHandleWakeIgnoredWhenPowered(t *testing.T) {
	f := newFixture(t, nil)
	f.configure(t)

	var got atomic.Int32
	_, err := f.ctrl.RegisterEvent(EventWake, func(Event) { got.Add(1) })
	require.NoError(t, err)

	f.ctrl.HandleWake(context.Background(), true)
	assert.Equal(t, int32(0), got.Load())
	assert.Equal(t, uint64(1), f.ctrl.Stats().WakeIRQs)
}

func TestHandleWakeWithoutRegistration(t *testing.T) {
	f := newFixture(t, nil)
	f.ctrl.HandleWake(context.Background(), true)
	assert.Equal(t, uint64(0), f.ctrl.Stats().Notifications)
}

func TestHandleWakeAfterDeregister(t *testing.T) {
	f := newFixture(t, nil)
	var got atomic.Int32
	reg, err := f.ctrl.RegisterEvent(EventWake, func(Event) { got.Add(1) })
	require.NoError(t, err)
	require.NoError(t, f.ctrl.DeregisterEvent(reg))

	f.ctrl.HandleWake(context.Background(), true)
	assert.Equal(t, int32(0), got.Load())
}

func TestEventMaskFilters(t *testing.T) {
	f := newFixture(t, nil)
	var got []Event
	_, err := f.ctrl.RegisterEvent(EventLinkUp|EventLinkDown, func(ev Event) { got = append(got, ev) })
	require.NoError(t, err)

	f.ctrl.HandleWake(context.Background(), true)
	f.configure(t)
	f.bus.EXPECT().Remove(mock.Anything).Return(nil).Once()
	f.expectPowerDown()
	require.NoError(t, f.ctrl.UnconfigureDevice(context.Background()))

	assert.Equal(t, []Event{EventLinkUp, EventLinkDown}, got)
}

// The callback runs without controller locks, so it may configure the
// device directly.
func TestWakeCallbackMayConfigure(t *testing.T) {
	f := newFixture(t, nil)
	f.expectConfigure()

	ctx := context.Background()
	var cbErr error
	_, err := f.ctrl.RegisterEvent(EventWake, func(Event) {
		cbErr = f.ctrl.ConfigureDevice(ctx)
	})
	require.NoError(t, err)

	f.ctrl.HandleWake(ctx, true)
	require.NoError(t, cbErr)
	assert.True(t, f.ctrl.State().Powered)
}
