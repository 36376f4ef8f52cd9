package log

import (
	"testing"
	"time"
)

func TestMultiLoggerFansOut(t *testing.T) {
	a := NewMemoryLogger(0)
	b := NewMemoryLogger(0)
	m := NewMultiLogger(a, nil, b)

	m.Log(Event{Timestamp: time.Now(), Category: CategoryState})
	m.Log(Event{Timestamp: time.Now(), Category: CategoryIRQ})

	if len(a.Events()) != 2 || len(b.Events()) != 2 {
		t.Errorf("got %d/%d events, want 2/2", len(a.Events()), len(b.Events()))
	}
}

func TestMemoryLoggerLimit(t *testing.T) {
	m := NewMemoryLogger(3)
	for i := 0; i < 5; i++ {
		m.Log(Event{ControllerID: string(rune('a' + i))})
	}

	events := m.Events()
	if len(events) != 3 {
		t.Fatalf("len = %d, want 3", len(events))
	}
	if events[0].ControllerID != "c" || events[2].ControllerID != "e" {
		t.Errorf("kept %q..%q, want c..e", events[0].ControllerID, events[2].ControllerID)
	}

	m.Reset()
	if len(m.Events()) != 0 {
		t.Error("Reset should discard events")
	}
}

func TestMemoryLoggerFilter(t *testing.T) {
	m := NewMemoryLogger(0)
	m.Log(Event{Category: CategoryIRQ})
	m.Log(Event{Category: CategoryAction})
	m.Log(Event{Category: CategoryIRQ})

	cat := CategoryIRQ
	if got := len(m.Filter(Filter{Category: &cat})); got != 2 {
		t.Errorf("Filter(IRQ) = %d events, want 2", got)
	}
}
