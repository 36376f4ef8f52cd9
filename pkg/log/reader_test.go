package log

import (
	"testing"
	"time"
)

func TestFilteredReader(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	events := []Event{
		{Timestamp: base, ControllerID: "host-1", Side: SideHost, Category: CategoryState},
		{Timestamp: base.Add(time.Second), ControllerID: "ep-1", Side: SideEndpoint, Category: CategoryAction},
		{Timestamp: base.Add(2 * time.Second), ControllerID: "ep-1", Side: SideEndpoint, Category: CategoryIRQ},
		{Timestamp: base.Add(3 * time.Second), ControllerID: "host-1", Side: SideHost, Category: CategoryError},
	}
	path := createTestTraceFile(t, events)

	side := SideEndpoint
	cat := CategoryError
	start := base.Add(time.Second)
	end := base.Add(3 * time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"All", Filter{}, 4},
		{"ByController", Filter{ControllerID: "host-1"}, 2},
		{"BySide", Filter{Side: &side}, 2},
		{"ByCategory", Filter{Category: &cat}, 1},
		{"ByTimeWindow", Filter{TimeStart: &start, TimeEnd: &end}, 2},
		{"NoMatch", Filter{ControllerID: "nobody"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewFilteredReader(path, tt.filter)
			if err != nil {
				t.Fatalf("NewFilteredReader: %v", err)
			}
			defer r.Close()

			if got := len(readAll(t, r)); got != tt.want {
				t.Errorf("got %d events, want %d", got, tt.want)
			}
		})
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader("/nonexistent/trace.lptrace"); err == nil {
		t.Error("expected error opening missing file")
	}
}
