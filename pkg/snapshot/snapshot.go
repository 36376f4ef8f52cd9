// Package snapshot saves and replays controller registers across power-down.
//
// The set of registers to preserve is a fixed Layout of (offset, mask) pairs
// chosen per platform. Capture reads them into a Snapshot of (offset, mask,
// value) entries before power-down; Restore replays them after power-up.
// Only bits under the mask are restored; other bits keep whatever the
// power-up sequence left in them.
package snapshot

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/linkpm/linkpm-go/pkg/hw"
)

// Snapshot errors.
var (
	ErrNoSnapshot  = errors.New("no saved register snapshot")
	ErrReadFailed  = errors.New("register read failed")
	ErrWriteFailed = errors.New("register write failed")
)

// Field is one register to preserve. A zero Mask means all bits.
type Field struct {
	Offset uint32 `yaml:"offset"`
	Mask   uint32 `yaml:"mask"`
}

// Layout is the fixed set of registers a platform preserves.
type Layout []Field

// Entry is one captured register.
type Entry struct {
	Offset uint32
	Mask   uint32
	Value  uint32
}

// Snapshot is a captured register table.
type Snapshot struct {
	entries []Entry
	takenAt time.Time
}

// Capture reads every field of layout from rf.
func Capture(rf hw.RegisterFile, layout Layout) (*Snapshot, error) {
	s := &Snapshot{
		entries: make([]Entry, 0, len(layout)),
		takenAt: time.Now(),
	}
	for _, f := range layout {
		mask := f.Mask
		if mask == 0 {
			mask = ^uint32(0)
		}
		v, err := rf.ReadRegister(f.Offset)
		if err != nil {
			return nil, fmt.Errorf("%w at %#x: %w", ErrReadFailed, f.Offset, err)
		}
		s.entries = append(s.entries, Entry{Offset: f.Offset, Mask: mask, Value: v & mask})
	}
	return s, nil
}

// Restore writes the captured values back. Partial masks are merged with
// the register's current contents.
func (s *Snapshot) Restore(rf hw.RegisterFile) error {
	for _, e := range s.entries {
		v := e.Value
		if e.Mask != ^uint32(0) {
			cur, err := rf.ReadRegister(e.Offset)
			if err != nil {
				return fmt.Errorf("%w at %#x: %w", ErrReadFailed, e.Offset, err)
			}
			v = (cur &^ e.Mask) | (e.Value & e.Mask)
		}
		if err := rf.WriteRegister(e.Offset, v); err != nil {
			return fmt.Errorf("%w at %#x: %w", ErrWriteFailed, e.Offset, err)
		}
	}
	return nil
}

// Entries returns a copy of the captured entries.
func (s *Snapshot) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of captured registers.
func (s *Snapshot) Len() int { return len(s.entries) }

// TakenAt returns when the snapshot was captured.
func (s *Snapshot) TakenAt() time.Time { return s.takenAt }

// Slot holds at most one pending snapshot between power-down and power-up.
// The snapshot is consumed by Restore and discarded.
type Slot struct {
	mu     sync.Mutex
	layout Layout
	snap   *Snapshot
}

// NewSlot creates a slot for the given layout.
func NewSlot(layout Layout) *Slot {
	l := make(Layout, len(layout))
	copy(l, layout)
	return &Slot{layout: l}
}

// Save captures the layout from rf, replacing any pending snapshot.
func (s *Slot) Save(rf hw.RegisterFile) error {
	snap, err := Capture(rf, s.layout)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	return nil
}

// Restore replays and discards the pending snapshot. The snapshot is
// discarded even if the replay fails; the next power-down captures a new one.
func (s *Slot) Restore(rf hw.RegisterFile) error {
	s.mu.Lock()
	snap := s.snap
	s.snap = nil
	s.mu.Unlock()

	if snap == nil {
		return ErrNoSnapshot
	}
	return snap.Restore(rf)
}

// Pending reports whether a snapshot is waiting to be restored.
func (s *Slot) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap != nil
}

// Peek returns the pending snapshot without consuming it.
func (s *Slot) Peek() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}
