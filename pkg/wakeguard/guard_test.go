package wakeguard

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestGuard(t *testing.T, window time.Duration) *Guard {
	t.Helper()
	g, err := New(window)
	if err != nil {
		t.Fatalf("New(%v): %v", window, err)
	}
	t.Cleanup(g.Stop)
	return g
}

func TestNewWindow(t *testing.T) {
	tests := []struct {
		name    string
		window  time.Duration
		want    time.Duration
		wantErr bool
	}{
		{"Default", 0, DefaultWindow, false},
		{"Min", MinWindow, MinWindow, false},
		{"Max", MaxWindow, MaxWindow, false},
		{"TooShort", time.Millisecond, 0, true},
		{"TooLong", 2 * time.Minute, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.window)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%v) error = %v, wantErr %v", tt.window, err, tt.wantErr)
			}
			if err == nil && g.Window() != tt.want {
				t.Errorf("Window() = %v, want %v", g.Window(), tt.want)
			}
		})
	}
}

func TestGuardInitialState(t *testing.T) {
	g := newTestGuard(t, 0)

	if g.State() != StateIdle {
		t.Errorf("State() = %v, want IDLE", g.State())
	}
	if g.Current() != 0 {
		t.Errorf("Current() = %d, want 0", g.Current())
	}
	if g.RemainingTime() != 0 {
		t.Errorf("RemainingTime() = %v, want 0", g.RemainingTime())
	}
}

func TestGuardExpires(t *testing.T) {
	g := newTestGuard(t, 30*time.Millisecond)

	var mu sync.Mutex
	var fired []Token
	g.OnExpire(func(tok Token) {
		mu.Lock()
		fired = append(fired, tok)
		mu.Unlock()
	})

	tok := g.Arm()
	if g.State() != StateArmed {
		t.Fatalf("State() = %v after Arm, want ARMED", g.State())
	}
	if rem := g.RemainingTime(); rem <= 0 || rem > 30*time.Millisecond {
		t.Errorf("RemainingTime() = %v, want (0, 30ms]", rem)
	}

	time.Sleep(80 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 1 || fired[0] != tok {
		t.Fatalf("fired = %v, want [%d]", fired, tok)
	}
	if g.State() != StateIdle {
		t.Errorf("State() = %v after expiry, want IDLE", g.State())
	}
	if g.Expiries() != 1 {
		t.Errorf("Expiries() = %d, want 1", g.Expiries())
	}
}

func TestGuardCancelPreventsExpiry(t *testing.T) {
	g := newTestGuard(t, 20*time.Millisecond)

	var fired atomic.Int32
	g.OnExpire(func(Token) { fired.Add(1) })

	tok := g.Arm()
	if !g.Cancel(tok) {
		t.Fatal("Cancel(outstanding) = false, want true")
	}
	if g.Cancel(tok) {
		t.Error("second Cancel(tok) = true, want false")
	}

	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Errorf("cancelled guard fired %d times", fired.Load())
	}
	if g.Expiries() != 0 {
		t.Errorf("Expiries() = %d, want 0", g.Expiries())
	}
}

func TestGuardRearmSupersedes(t *testing.T) {
	g := newTestGuard(t, 40*time.Millisecond)

	var mu sync.Mutex
	var fired []Token
	g.OnExpire(func(tok Token) {
		mu.Lock()
		fired = append(fired, tok)
		mu.Unlock()
	})

	first := g.Arm()
	time.Sleep(20 * time.Millisecond)
	second := g.Arm()

	if first == second {
		t.Fatal("re-arming must issue a new token")
	}
	if g.Cancel(first) {
		t.Error("Cancel(superseded) = true, want false")
	}

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 1 || fired[0] != second {
		t.Errorf("fired = %v, want only [%d]", fired, second)
	}
}

func TestGuardCancelAfterExpiry(t *testing.T) {
	g := newTestGuard(t, MinWindow)
	tok := g.Arm()
	time.Sleep(50 * time.Millisecond)

	if g.Cancel(tok) {
		t.Error("Cancel after expiry = true, want false")
	}
	if g.Cancel(0) {
		t.Error("Cancel(0) = true, want false")
	}
}

func TestGuardConcurrentArmCancel(t *testing.T) {
	g := newTestGuard(t, MinWindow)

	var fired atomic.Int32
	g.OnExpire(func(Token) { fired.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tok := g.Arm()
				g.Cancel(tok)
			}
		}()
	}
	wg.Wait()
	g.Stop()

	time.Sleep(40 * time.Millisecond)
	if fired.Load() != int32(g.Expiries()) {
		t.Errorf("callback ran %d times, Expiries() = %d", fired.Load(), g.Expiries())
	}
	if g.State() != StateIdle {
		t.Errorf("State() = %v after Stop, want IDLE", g.State())
	}
}

func TestSetWindow(t *testing.T) {
	g := newTestGuard(t, 0)
	if err := g.SetWindow(time.Second); err != nil {
		t.Fatalf("SetWindow: %v", err)
	}
	if g.Window() != time.Second {
		t.Errorf("Window() = %v, want 1s", g.Window())
	}
	if err := g.SetWindow(0); err != ErrInvalidWindow {
		t.Errorf("SetWindow(0) error = %v, want ErrInvalidWindow", err)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "IDLE"},
		{StateArmed, "ARMED"},
		{State(9), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
