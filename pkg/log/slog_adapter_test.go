package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	a := NewSlogAdapter(slog.New(handler))

	took := 5 * time.Millisecond
	a.Log(Event{
		Timestamp:    time.Now(),
		ControllerID: "0123456789abcdef",
		Side:         SideEndpoint,
		Category:     CategoryAction,
		Action:       &ActionEvent{Kind: "REINIT", Phase: PhaseDone, Duration: &took},
	})
	a.Log(Event{
		Timestamp: time.Now(),
		Category:  CategorySequence,
		Sequence:  &SequenceEvent{Name: "startup", Err: "poll timeout"},
	})

	out := buf.String()
	for _, want := range []string{
		"ctrl_id=01234567", "side=ENDPOINT", "action=REINIT", "phase=DONE",
		"sequence=startup", "level=WARN",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
