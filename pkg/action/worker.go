package action

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/linkpm/linkpm-go/pkg/log"
)

// Stats counts worker activity.
type Stats struct {
	Executed uint64
	Failed   uint64
	Dropped  uint64
}

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	// Logger receives operational logs. Nil discards.
	Logger *slog.Logger

	// Recorder receives trace events. Nil records nothing.
	Recorder *log.Recorder
}

// Worker executes queued actions one at a time.
type Worker struct {
	queue   *Queue
	handler Handler

	logger   *slog.Logger
	recorder *log.Recorder

	mu      sync.Mutex
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool

	executed atomic.Uint64
	failed   atomic.Uint64
	dropped  atomic.Uint64
}

// NewWorker creates a worker draining q into h.
func NewWorker(q *Queue, h Handler, cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Worker{
		queue:    q,
		handler:  h,
		logger:   logger,
		recorder: cfg.Recorder,
	}
}

// Start runs the worker loop in a new goroutine.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running.Load() {
		return ErrAlreadyRunning
	}
	// A loop that exited on its context may still be unwinding.
	w.wg.Wait()
	w.queue.reopen()
	w.stopCh = make(chan struct{})
	w.running.Store(true)

	w.wg.Add(1)
	go func(stop <-chan struct{}) {
		defer w.wg.Done()
		w.run(ctx, stop)
	}(w.stopCh)
	return nil
}

// Stop asks the worker to exit and waits for it. The action in flight
// completes; actions still queued are dropped. Enqueue returns
// ErrQueueStopped until the worker is started again.
//
// Stop must not be called from a Handler.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running.Swap(false) {
		// Never started, or the loop already exited on its context:
		// nothing will drain what was queued.
		w.drop(w.queue.close())
		w.wg.Wait()
		return
	}
	close(w.stopCh)
	w.wg.Wait()
}

// Running reports whether the worker loop is active.
func (w *Worker) Running() bool {
	return w.running.Load()
}

// Stats returns a snapshot of the counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Executed: w.executed.Load(),
		Failed:   w.failed.Load(),
		Dropped:  w.dropped.Load(),
	}
}

func (w *Worker) run(ctx context.Context, stop <-chan struct{}) {
	defer func() {
		w.drop(w.queue.close())
		w.running.Store(false)
	}()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-w.queue.notify:
		}

		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			default:
			}

			kind, ok := w.queue.pop()
			if !ok {
				break
			}
			w.execute(ctx, kind)
		}
	}
}

func (w *Worker) execute(ctx context.Context, kind Kind) {
	start := time.Now()
	err := w.handler.Execute(ctx, kind)
	took := time.Since(start)

	w.executed.Add(1)
	if err != nil {
		w.failed.Add(1)
		w.logger.Warn("action failed", "action", kind.String(), "took", took, "error", err)
		w.recorder.Action(kind.String(), log.PhaseFailed, took, err)
		return
	}
	w.logger.Debug("action done", "action", kind.String(), "took", took)
	w.recorder.Action(kind.String(), log.PhaseDone, took, nil)
}

func (w *Worker) drop(kinds []Kind) {
	for _, k := range kinds {
		w.dropped.Add(1)
		w.recorder.Action(k.String(), log.PhaseDropped, 0, nil)
	}
	if len(kinds) > 0 {
		w.logger.Info("dropped pending actions", "count", len(kinds))
	}
}
