package log

import (
	"time"
)

// Event is one lifecycle trace record.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ControllerID identifies the controller instance (UUID).
	ControllerID string `cbor:"2,keyasint"`

	// Side is the controller side that emitted the event.
	Side Side `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Type-specific payload (one of these will be set).
	Action      *ActionEvent      `cbor:"10,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"`
	IRQ         *IRQEvent         `cbor:"12,keyasint,omitempty"`
	Sequence    *SequenceEvent    `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Side identifies which end of the link a controller drives.
type Side uint8

const (
	// SideHost is the root-complex side.
	SideHost Side = 0
	// SideEndpoint is the endpoint side.
	SideEndpoint Side = 1
)

// String returns the side name.
func (s Side) String() string {
	switch s {
	case SideHost:
		return "HOST"
	case SideEndpoint:
		return "ENDPOINT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryAction is an action queue/worker event.
	CategoryAction Category = 0
	// CategoryState is a controller state change.
	CategoryState Category = 1
	// CategoryIRQ is a line interrupt such as WAKE or PERST.
	CategoryIRQ Category = 2
	// CategorySequence is a syscon sequence application.
	CategorySequence Category = 3
	// CategoryError is an error event.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryAction:
		return "ACTION"
	case CategoryState:
		return "STATE"
	case CategoryIRQ:
		return "IRQ"
	case CategorySequence:
		return "SEQUENCE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ActionPhase is the point in an action's life the event describes.
type ActionPhase uint8

const (
	// PhaseQueued means the action was accepted by the queue.
	PhaseQueued ActionPhase = 0
	// PhaseDone means the action executed successfully.
	PhaseDone ActionPhase = 1
	// PhaseFailed means the action executed and returned an error.
	PhaseFailed ActionPhase = 2
	// PhaseDropped means the action was discarded at worker stop.
	PhaseDropped ActionPhase = 3
)

// String returns the phase name.
func (p ActionPhase) String() string {
	switch p {
	case PhaseQueued:
		return "QUEUED"
	case PhaseDone:
		return "DONE"
	case PhaseFailed:
		return "FAILED"
	case PhaseDropped:
		return "DROPPED"
	default:
		return "UNKNOWN"
	}
}

// ActionEvent captures an action passing through the queue.
type ActionEvent struct {
	// Kind is the action name (REINIT, SHUTDOWN, WAKE_ASSERT).
	Kind string `cbor:"1,keyasint"`

	// Phase is where in its lifetime the action is.
	Phase ActionPhase `cbor:"2,keyasint"`

	// Duration is the execution time (done/failed only).
	Duration *time.Duration `cbor:"3,keyasint,omitempty"`

	// Err is the error text for failed actions.
	Err string `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent captures a controller or link state transition.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// IRQEvent captures a line interrupt.
type IRQEvent struct {
	// Line is the line name (WAKE, PERST).
	Line string `cbor:"1,keyasint"`

	// Asserted is the logical level read by the bottom half.
	Asserted bool `cbor:"2,keyasint"`

	// Dropped is set when the top half could not schedule the bottom half.
	Dropped bool `cbor:"3,keyasint,omitempty"`
}

// SequenceEvent captures a syscon sequence application.
type SequenceEvent struct {
	// Name is the sequence name.
	Name string `cbor:"1,keyasint"`

	// Err is the error text if the sequence failed.
	Err string `cbor:"2,keyasint,omitempty"`
}

// ErrorEventData captures an error reported by a lifecycle operation.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"2,keyasint,omitempty"`
}
