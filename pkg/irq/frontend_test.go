package irq

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkpm/linkpm-go/pkg/action"
	"github.com/linkpm/linkpm-go/pkg/log"
)

type testLine struct {
	level atomic.Bool
	err   error
}

func (l *testLine) Level() (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	return l.level.Load(), nil
}

type countingWakeLock struct {
	calls atomic.Int32
	last  atomic.Int64
}

func (w *countingWakeLock) StayAwake(d time.Duration) {
	w.calls.Add(1)
	w.last.Store(int64(d))
}

type wakeRecorder struct {
	mu  sync.Mutex
	got []bool
}

func (w *wakeRecorder) HandleWake(_ context.Context, asserted bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.got = append(w.got, asserted)
}

func (w *wakeRecorder) levels() []bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]bool(nil), w.got...)
}

type linkDownRecorder struct {
	wakeRecorder
}

func (l *linkDownRecorder) HandleLinkDown(ctx context.Context, asserted bool) {
	l.HandleWake(ctx, asserted)
}

type enqueueRecorder struct {
	mu  sync.Mutex
	got []action.Kind
	err error
}

func (e *enqueueRecorder) Enqueue(k action.Kind) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.got = append(e.got, k)
	return nil
}

func (e *enqueueRecorder) kinds() []action.Kind {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]action.Kind(nil), e.got...)
}

func TestNewRequiresLine(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.ErrorIs(t, err, ErrNoLine)
}

func TestWakeFrontEnd(t *testing.T) {
	line := &testLine{}
	wl := &countingWakeLock{}
	h := &wakeRecorder{}
	mem := log.NewMemoryLogger(0)

	fe, err := NewWake(Config{
		Line:      line,
		ActiveLow: true,
		WakeLock:  wl,
		StayAwake: 200 * time.Millisecond,
		Recorder:  log.NewRecorder(mem, "host", log.SideHost),
	}, h)
	require.NoError(t, err)
	assert.Equal(t, LineWake, fe.Name())

	fe.Start(context.Background())
	defer fe.Stop()
	fe.Enable()

	// Active-low: electrical low means asserted.
	line.level.Store(false)
	fe.Fire()
	require.Eventually(t, func() bool { return len(h.levels()) == 1 }, time.Second, time.Millisecond)
	line.level.Store(true)
	fe.Fire()
	require.Eventually(t, func() bool { return len(h.levels()) == 2 }, time.Second, time.Millisecond)

	assert.Equal(t, []bool{true, false}, h.levels())
	assert.Equal(t, int32(2), wl.calls.Load())
	assert.Equal(t, int64(200*time.Millisecond), wl.last.Load())

	irqs := mem.Filter(log.Filter{Category: categoryPtr(log.CategoryIRQ)})
	require.Len(t, irqs, 2)
	assert.Equal(t, "WAKE", irqs[0].IRQ.Line)
	assert.True(t, irqs[0].IRQ.Asserted)
}

func TestLinkDownFrontEnd(t *testing.T) {
	line := &testLine{}
	h := &linkDownRecorder{}
	fe, err := NewLinkDown(Config{Line: line}, h)
	require.NoError(t, err)
	assert.Equal(t, LineLinkDown, fe.Name())

	fe.Start(context.Background())
	defer fe.Stop()
	fe.Enable()

	line.level.Store(true)
	fe.Fire()
	require.Eventually(t, func() bool { return len(h.levels()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []bool{true}, h.levels())
}

func TestPerstFrontEndEnqueuesActions(t *testing.T) {
	line := &testLine{}
	q := &enqueueRecorder{}
	fe, err := NewPerst(Config{Line: line}, q)
	require.NoError(t, err)
	assert.Equal(t, LinePerst, fe.Name())

	fe.Start(context.Background())
	defer fe.Stop()
	fe.Enable()

	line.level.Store(true)
	fe.Fire()
	require.Eventually(t, func() bool { return len(q.kinds()) == 1 }, time.Second, time.Millisecond)
	line.level.Store(false)
	fe.Fire()
	require.Eventually(t, func() bool { return len(q.kinds()) == 2 }, time.Second, time.Millisecond)

	assert.Equal(t, []action.Kind{action.Reinit, action.Shutdown}, q.kinds())
}

func TestPerstEnqueueFailureIsSwallowed(t *testing.T) {
	line := &testLine{}
	q := &enqueueRecorder{err: action.ErrQueueStopped}
	fe, err := NewPerst(Config{Line: line}, q)
	require.NoError(t, err)

	fe.Start(context.Background())
	defer fe.Stop()
	fe.Enable()
	fe.Fire()

	require.Eventually(t, func() bool { return fe.Stats().Handled == 1 }, time.Second, time.Millisecond)
	assert.Empty(t, q.kinds())
}

func TestFireIgnoredWhileDisabled(t *testing.T) {
	h := &wakeRecorder{}
	wl := &countingWakeLock{}
	fe, err := NewWake(Config{Line: &testLine{}, WakeLock: wl}, h)
	require.NoError(t, err)
	fe.Start(context.Background())
	defer fe.Stop()

	assert.False(t, fe.Enabled())
	fe.Fire()
	time.Sleep(10 * time.Millisecond)

	assert.Empty(t, h.levels())
	assert.Equal(t, int32(0), wl.calls.Load())
	assert.Equal(t, uint64(1), fe.Stats().Ignored)
}

func TestFireNeverBlocks(t *testing.T) {
	block := make(chan struct{})
	fe, err := New(Config{Name: "TEST", Line: &testLine{}, Buffer: 2}, func(context.Context, bool) {
		<-block
	})
	require.NoError(t, err)
	fe.Start(context.Background())
	fe.Enable()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			fe.Fire()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Fire blocked")
	}

	st := fe.Stats()
	assert.Equal(t, uint64(100), st.Fired)
	// One edge in the bottom half, two buffered, the rest dropped.
	assert.GreaterOrEqual(t, st.Dropped, uint64(97))

	close(block)
	fe.Stop()
}

func TestLevelReadErrorSkipsHandler(t *testing.T) {
	var calls atomic.Int32
	fe, err := New(Config{Name: "TEST", Line: &testLine{err: errors.New("gpio gone")}}, func(context.Context, bool) {
		calls.Add(1)
	})
	require.NoError(t, err)
	fe.Start(context.Background())
	defer fe.Stop()
	fe.Enable()
	fe.Fire()

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, uint64(0), fe.Stats().Handled)
}

func TestStopDisablesAndRestarts(t *testing.T) {
	h := &wakeRecorder{}
	fe, err := NewWake(Config{Line: &testLine{}}, h)
	require.NoError(t, err)

	fe.Start(context.Background())
	fe.Enable()
	fe.Stop()
	assert.False(t, fe.Enabled())

	fe.Start(context.Background())
	defer fe.Stop()
	fe.Enable()
	fe.Fire()
	require.Eventually(t, func() bool { return len(h.levels()) == 1 }, time.Second, time.Millisecond)
}

func categoryPtr(c log.Category) *log.Category { return &c }
