package action

import (
	"context"
	"errors"
)

// Kind identifies a deferred lifecycle action.
type Kind uint8

const (
	// Reinit powers the controller (if needed) and brings the link up.
	Reinit Kind = iota

	// Shutdown tears the link down and powers the controller off.
	Shutdown

	// WakeAssert powers the controller and signals wake toward the host.
	WakeAssert
)

// String returns the action name.
func (k Kind) String() string {
	switch k {
	case Reinit:
		return "REINIT"
	case Shutdown:
		return "SHUTDOWN"
	case WakeAssert:
		return "WAKE_ASSERT"
	default:
		return "UNKNOWN"
	}
}

// ParseKind parses an action name as returned by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "REINIT", "reinit":
		return Reinit, nil
	case "SHUTDOWN", "shutdown":
		return Shutdown, nil
	case "WAKE_ASSERT", "wake_assert", "wake":
		return WakeAssert, nil
	}
	return 0, ErrUnknownKind
}

// Action errors.
var (
	// ErrQueueStopped is returned by Enqueue once the queue was closed.
	ErrQueueStopped = errors.New("action queue stopped")

	// ErrUnknownKind is returned for an action the handler does not know.
	ErrUnknownKind = errors.New("unknown action kind")

	// ErrAlreadyRunning is returned when starting a running worker.
	ErrAlreadyRunning = errors.New("worker already running")
)

// Handler executes dequeued actions.
type Handler interface {
	Execute(ctx context.Context, kind Kind) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, kind Kind) error

// Execute calls f(ctx, kind).
func (f HandlerFunc) Execute(ctx context.Context, kind Kind) error {
	return f(ctx, kind)
}

// Enqueuer is the producer side of a Queue.
type Enqueuer interface {
	Enqueue(kind Kind) error
}
