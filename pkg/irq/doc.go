// Package irq implements the WAKE and PERST interrupt front-ends.
//
// A FrontEnd splits interrupt handling in two. Fire is the top half: it is
// called from the interrupt source (a GPIO edge callback), extends the
// wake lock and schedules the bottom half without ever blocking. If the
// bottom half is too far behind, the edge is dropped and counted. The
// bottom half runs on the front-end's own goroutine, reads the current
// line level and hands the logical level to the side-specific handler:
//
//   - WAKE (host side): forwards the level to the host controller, which
//     notifies its registered owner when an unpowered endpoint asks for
//     attention.
//   - PERST (endpoint side): enqueues Reinit on assert and Shutdown on
//     deassert.
//
// Errors never surface from interrupt context; they are logged and traced
// by the bottom half.
package irq
