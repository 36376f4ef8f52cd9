package host

import (
	"context"
	"sync"
	"time"
)

// sleepGate is closed between sleep prepare and complete. Waiters block on
// a condition variable instead of polling the flag.
type sleepGate struct {
	mu     sync.Mutex
	cond   *sync.Cond
	closed bool
}

func newSleepGate() *sleepGate {
	g := &sleepGate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

func (g *sleepGate) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

func (g *sleepGate) open() {
	g.mu.Lock()
	g.closed = false
	g.cond.Broadcast()
	g.mu.Unlock()
}

func (g *sleepGate) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// wait blocks until the gate is open. It returns ErrBusy once timeout has
// passed, or the context error.
func (g *sleepGate) wait(ctx context.Context, timeout time.Duration) error {
	wake := func() {
		g.mu.Lock()
		g.cond.Broadcast()
		g.mu.Unlock()
	}
	deadline := time.Now().Add(timeout)
	t := time.AfterFunc(timeout, wake)
	defer t.Stop()
	stop := context.AfterFunc(ctx, wake)
	defer stop()

	g.mu.Lock()
	defer g.mu.Unlock()
	for g.closed {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !time.Now().Before(deadline) {
			return ErrBusy
		}
		g.cond.Wait()
	}
	return nil
}
