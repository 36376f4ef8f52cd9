package wakeguard

import (
	"errors"
	"sync"
	"time"
)

// Guard window limits.
const (
	// MinWindow is the shortest accepted guard window.
	MinWindow = 10 * time.Millisecond

	// MaxWindow is the longest accepted guard window.
	MaxWindow = 60 * time.Second

	// DefaultWindow is how long the endpoint holds WAKE waiting for Reinit.
	DefaultWindow = 5 * time.Second
)

// ErrInvalidWindow is returned for a window outside [MinWindow, MaxWindow].
var ErrInvalidWindow = errors.New("invalid wake guard window")

// Token identifies one arming of the guard. The zero Token is never issued.
type Token uint64

// State is the guard state.
type State uint8

const (
	// StateIdle means no arming is outstanding.
	StateIdle State = iota

	// StateArmed means the timer is running.
	StateArmed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateArmed:
		return "ARMED"
	default:
		return "UNKNOWN"
	}
}

// Guard is a single-shot timer bound to at most one outstanding arming.
type Guard struct {
	mu sync.Mutex

	window time.Duration

	// Outstanding arming; zero when idle.
	current Token
	next    Token
	timer   *time.Timer
	armedAt time.Time

	expiries uint64

	onExpire func(tok Token)
}

// New creates a guard with the given window. A zero window selects
// DefaultWindow.
func New(window time.Duration) (*Guard, error) {
	if window == 0 {
		window = DefaultWindow
	}
	if window < MinWindow || window > MaxWindow {
		return nil, ErrInvalidWindow
	}
	return &Guard{window: window}, nil
}

// OnExpire sets the callback run when an arming expires. It runs on the
// timer goroutine without the guard lock held.
func (g *Guard) OnExpire(fn func(tok Token)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onExpire = fn
}

// Window returns the configured window.
func (g *Guard) Window() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.window
}

// SetWindow changes the window used by subsequent Arm calls.
func (g *Guard) SetWindow(d time.Duration) error {
	if d < MinWindow || d > MaxWindow {
		return ErrInvalidWindow
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.window = d
	return nil
}

// Arm starts the timer, cancelling any outstanding arming, and returns the
// token for the new one.
func (g *Guard) Arm() Token {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopLocked()

	g.next++
	tok := g.next
	g.current = tok
	g.armedAt = time.Now()
	g.timer = time.AfterFunc(g.window, func() {
		g.fire(tok)
	})
	return tok
}

// Cancel cancels the arming identified by tok. It returns true if tok was
// outstanding, false if it had already expired, been cancelled or been
// superseded.
func (g *Guard) Cancel(tok Token) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if tok == 0 || tok != g.current {
		return false
	}
	g.stopLocked()
	return true
}

// Stop cancels whatever arming is outstanding.
func (g *Guard) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopLocked()
}

func (g *Guard) stopLocked() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.current = 0
	g.armedAt = time.Time{}
}

// State returns the guard state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current != 0 {
		return StateArmed
	}
	return StateIdle
}

// Current returns the outstanding token, or zero when idle.
func (g *Guard) Current() Token {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// RemainingTime returns the time left on the outstanding arming, or 0.
func (g *Guard) RemainingTime() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.current == 0 {
		return 0
	}
	remaining := g.window - time.Since(g.armedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expiries returns how many armings have expired.
func (g *Guard) Expiries() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.expiries
}

// fire runs on the timer goroutine.
func (g *Guard) fire(tok Token) {
	g.mu.Lock()
	if tok != g.current {
		// Cancelled or superseded after the timer fired.
		g.mu.Unlock()
		return
	}
	g.current = 0
	g.timer = nil
	g.armedAt = time.Time{}
	g.expiries++
	fn := g.onExpire
	g.mu.Unlock()

	if fn != nil {
		fn(tok)
	}
}
