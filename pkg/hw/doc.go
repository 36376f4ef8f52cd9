// Package hw defines the boundary between the link lifecycle controllers and
// the hardware they drive.
//
// The controllers never touch registers directly. Everything below the
// lifecycle state machine is reached through the small interfaces in this
// package:
//
//   - Sequencer: applies a named syscon sequence (power/clock domain steps)
//   - LinkTrainer: trains the physical link and requests low-power link states
//   - BusManager: enumerates or removes downstream devices
//   - IdentityReader: reads the link partner's vendor/device identity
//   - RegisterFile: register access used for snapshot save/restore
//   - Line: a polled GPIO-like signal (WAKE, PERST)
//   - WakeLock: keeps the system awake while an interrupt is processed
//
// Platform glue implements these; pkg/sim provides a simulated board and
// pkg/hw/mocks provides generated test doubles.
package hw
