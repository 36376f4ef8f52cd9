package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/linkpm/linkpm-go/pkg/hw"
)

// ErrNoResponse is returned by identity reads when the partner is off.
var ErrNoResponse = errors.New("sim: link partner not responding")

// Line is a simulated GPIO line. Edge listeners run synchronously from Set.
type Line struct {
	name      string
	activeLow bool

	mu        sync.Mutex
	level     bool
	listeners []func()
}

// NewLine creates a deasserted line.
func NewLine(name string, activeLow bool) *Line {
	return &Line{name: name, activeLow: activeLow, level: activeLow}
}

// Name returns the line name.
func (l *Line) Name() string { return l.name }

// Level returns the electrical level.
func (l *Line) Level() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level, nil
}

// Asserted returns the logical level.
func (l *Line) Asserted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level != l.activeLow
}

// Set drives the logical level and notifies listeners on a change.
func (l *Line) Set(asserted bool) {
	l.setLevel(asserted != l.activeLow)
}

// EdgeSource is a line that reports its edges, such as a gpioline.Line.
type EdgeSource interface {
	hw.Line
	OnEdge(fn func())
}

// Follow mirrors the electrical level of src onto l, now and on every edge
// src reports. It lets a real line drive one side of the simulated board.
func (l *Line) Follow(src EdgeSource) error {
	level, err := src.Level()
	if err != nil {
		return fmt.Errorf("follow %s: %w", l.name, err)
	}
	l.setLevel(level)
	src.OnEdge(func() {
		if level, err := src.Level(); err == nil {
			l.setLevel(level)
		}
	})
	return nil
}

func (l *Line) setLevel(level bool) {
	l.mu.Lock()
	if level == l.level {
		l.mu.Unlock()
		return
	}
	l.level = level
	listeners := append([]func(){}, l.listeners...)
	l.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Pulse toggles the line without changing its final level, producing two
// edges.
func (l *Line) Pulse() {
	a := l.Asserted()
	l.Set(!a)
	l.Set(a)
}

// OnEdge adds an edge listener.
func (l *Line) OnEdge(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Sequencer is a simulated syscon sequencer.
type Sequencer struct {
	mu      sync.Mutex
	known   map[string]bool
	hooks   map[string][]func()
	fail    map[string]int
	applied []string
}

// NewSequencer creates a sequencer that knows the given sequence names.
func NewSequencer(names ...string) *Sequencer {
	s := &Sequencer{
		known: make(map[string]bool),
		hooks: make(map[string][]func()),
		fail:  make(map[string]int),
	}
	for _, n := range names {
		if n != "" {
			s.known[n] = true
		}
	}
	return s
}

// On runs fn after each successful application of name.
func (s *Sequencer) On(name string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.known[name] = true
	s.hooks[name] = append(s.hooks[name], fn)
}

// FailNext makes the next n applications of name fail.
func (s *Sequencer) FailNext(name string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[name] = n
}

// ApplySequence implements hw.Sequencer.
func (s *Sequencer) ApplySequence(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if !s.known[name] {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", hw.ErrUnknownSequence, name)
	}
	if s.fail[name] > 0 {
		s.fail[name]--
		s.mu.Unlock()
		return fmt.Errorf("%w: %s: injected", hw.ErrSequenceFailed, name)
	}
	s.applied = append(s.applied, name)
	hooks := append([]func(){}, s.hooks[name]...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	return nil
}

// Applied returns the successfully applied sequences in order.
func (s *Sequencer) Applied() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.applied...)
}

// Count returns how often name was applied.
func (s *Sequencer) Count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.applied {
		if a == name {
			n++
		}
	}
	return n
}

// LinkTrainer is one side's view of the simulated link.
type LinkTrainer struct {
	ready        func() bool
	failLink     atomic.Int32
	failLowPower atomic.Int32
	trainings    atomic.Uint64
	poll         time.Duration
}

func newLinkTrainer(ready func() bool) *LinkTrainer {
	return &LinkTrainer{ready: ready, poll: time.Millisecond}
}

// FailNext makes the next n WaitForLink calls time out immediately.
func (t *LinkTrainer) FailNext(n int) { t.failLink.Store(int32(n)) }

// FailLowPowerNext makes the next n EnterLowPower calls time out.
func (t *LinkTrainer) FailLowPowerNext(n int) { t.failLowPower.Store(int32(n)) }

// Trainings returns how many link trainings succeeded.
func (t *LinkTrainer) Trainings() uint64 { return t.trainings.Load() }

// WaitForLink implements hw.LinkTrainer. It polls until both sides are
// powered.
func (t *LinkTrainer) WaitForLink(ctx context.Context, timeout time.Duration) error {
	if consume(&t.failLink) {
		return fmt.Errorf("%w: injected", hw.ErrLinkTimeout)
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(t.poll)
	defer tick.Stop()

	for {
		if t.ready() {
			t.trainings.Add(1)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return hw.ErrLinkTimeout
		case <-tick.C:
		}
	}
}

// EnterLowPower implements hw.LinkTrainer.
func (t *LinkTrainer) EnterLowPower(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if consume(&t.failLowPower) || !t.ready() {
		return hw.ErrLinkTimeout
	}
	return nil
}

func consume(n *atomic.Int32) bool {
	for {
		v := n.Load()
		if v <= 0 {
			return false
		}
		if n.CompareAndSwap(v, v-1) {
			return true
		}
	}
}

// Bus is a simulated bus manager.
type Bus struct {
	mu         sync.Mutex
	enumerated bool
	rescans    int
	removes    int
	failRescan error
}

// FailRescan makes every Rescan return err until cleared with nil.
func (b *Bus) FailRescan(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failRescan = err
}

// Rescan implements hw.BusManager.
func (b *Bus) Rescan(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failRescan != nil {
		return b.failRescan
	}
	b.rescans++
	b.enumerated = true
	return nil
}

// Remove implements hw.BusManager.
func (b *Bus) Remove(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removes++
	b.enumerated = false
	return nil
}

// Enumerated reports whether devices behind the link are present.
func (b *Bus) Enumerated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enumerated
}

// Rescans returns the number of successful rescans.
func (b *Bus) Rescans() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rescans
}

// Removes returns the number of removes.
func (b *Bus) Removes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.removes
}

// IdentityReader reads a fixed identity while its partner is powered.
type IdentityReader struct {
	id      hw.Identity
	powered func() bool
}

// ReadIdentity implements hw.IdentityReader.
func (r *IdentityReader) ReadIdentity(ctx context.Context) (hw.Identity, error) {
	if err := ctx.Err(); err != nil {
		return hw.Identity{}, err
	}
	if !r.powered() {
		return hw.Identity{}, ErrNoResponse
	}
	return r.id, nil
}

// RegisterFile is a simulated controller register block.
type RegisterFile struct {
	mu   sync.Mutex
	vals map[uint32]uint32
}

// NewRegisterFile creates an all-zero register file.
func NewRegisterFile() *RegisterFile {
	return &RegisterFile{vals: make(map[uint32]uint32)}
}

// ReadRegister implements hw.RegisterFile.
func (r *RegisterFile) ReadRegister(offset uint32) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vals[offset], nil
}

// WriteRegister implements hw.RegisterFile.
func (r *RegisterFile) WriteRegister(offset, value uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vals[offset] = value
	return nil
}

// Clear zeroes every register, as a power-down does.
func (r *RegisterFile) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.vals)
}

// WakeLock records stay-awake requests.
type WakeLock struct {
	mu    sync.Mutex
	holds int
	until time.Time
}

// StayAwake implements hw.WakeLock.
func (w *WakeLock) StayAwake(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.holds++
	if u := time.Now().Add(d); u.After(w.until) {
		w.until = u
	}
}

// Holds returns the number of stay-awake requests.
func (w *WakeLock) Holds() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.holds
}

// Held reports whether the system is currently kept awake.
func (w *WakeLock) Held() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return time.Now().Before(w.until)
}

var (
	_ hw.Line           = (*Line)(nil)
	_ hw.Sequencer      = (*Sequencer)(nil)
	_ hw.LinkTrainer    = (*LinkTrainer)(nil)
	_ hw.BusManager     = (*Bus)(nil)
	_ hw.IdentityReader = (*IdentityReader)(nil)
	_ hw.RegisterFile   = (*RegisterFile)(nil)
	_ hw.WakeLock       = (*WakeLock)(nil)
)
