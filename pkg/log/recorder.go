package log

import "time"

// Recorder stamps trace events with one controller's ID and side.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	logger       Logger
	controllerID string
	side         Side
}

// NewRecorder creates a Recorder writing to l.
func NewRecorder(l Logger, controllerID string, side Side) *Recorder {
	return &Recorder{
		logger:       OrNoop(l),
		controllerID: controllerID,
		side:         side,
	}
}

// ControllerID returns the controller ID stamped on every event.
func (r *Recorder) ControllerID() string {
	if r == nil {
		return ""
	}
	return r.controllerID
}

func (r *Recorder) emit(cat Category, fill func(*Event)) {
	if r == nil {
		return
	}
	ev := Event{
		Timestamp:    time.Now(),
		ControllerID: r.controllerID,
		Side:         r.side,
		Category:     cat,
	}
	fill(&ev)
	r.logger.Log(ev)
}

// Action records an action queue event. took is ignored for queued and
// dropped actions.
func (r *Recorder) Action(kind string, phase ActionPhase, took time.Duration, err error) {
	r.emit(CategoryAction, func(ev *Event) {
		a := &ActionEvent{Kind: kind, Phase: phase}
		if phase == PhaseDone || phase == PhaseFailed {
			a.Duration = &took
		}
		if err != nil {
			a.Err = err.Error()
		}
		ev.Action = a
	})
}

// State records a state transition.
func (r *Recorder) State(oldState, newState, reason string) {
	r.emit(CategoryState, func(ev *Event) {
		ev.StateChange = &StateChangeEvent{OldState: oldState, NewState: newState, Reason: reason}
	})
}

// IRQ records an interrupt.
func (r *Recorder) IRQ(line string, asserted, dropped bool) {
	r.emit(CategoryIRQ, func(ev *Event) {
		ev.IRQ = &IRQEvent{Line: line, Asserted: asserted, Dropped: dropped}
	})
}

// Sequence records a syscon sequence application.
func (r *Recorder) Sequence(name string, err error) {
	r.emit(CategorySequence, func(ev *Event) {
		s := &SequenceEvent{Name: name}
		if err != nil {
			s.Err = err.Error()
		}
		ev.Sequence = s
	})
}

// Error records an operation error.
func (r *Recorder) Error(context string, err error) {
	if err == nil {
		return
	}
	r.emit(CategoryError, func(ev *Event) {
		ev.Error = &ErrorEventData{Message: err.Error(), Context: context}
	})
}
