// Package action carries deferred lifecycle work from interrupt bottom
// halves to a single worker goroutine.
//
// A Queue accepts actions from any goroutine without blocking. A Worker
// drains the queue in FIFO order and executes one action at a time through
// a Handler, so lifecycle operations never run concurrently with each
// other. Stopping the worker is cooperative: the action in flight runs to
// completion and whatever is still queued is dropped and counted.
package action
