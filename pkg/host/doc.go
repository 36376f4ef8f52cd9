// Package host manages the root-complex side of a PCIe link.
//
// The Controller brings the link partner up and down on behalf of three
// kinds of caller:
//
//   - the owner of the slot, through ConfigureDevice and UnconfigureDevice
//     (hot attach and detach);
//   - the system power manager, through Prepare, Suspend, Resume and
//     Complete;
//   - the WAKE interrupt bottom half, through HandleWake, which forwards a
//     wake request from an unpowered endpoint to the registered callback.
//
// All state changes happen under one controller mutex. A system sleep
// transition closes the sleep gate between Prepare and Complete; a
// ConfigureDevice arriving meanwhile waits for the gate to reopen, and
// gives up with ErrBusy after a bounded time.
package host
