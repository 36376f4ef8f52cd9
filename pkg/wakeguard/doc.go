// Package wakeguard implements the wake-down timeout guard.
//
// When the endpoint pulls WAKE toward the host it expects the host to answer
// with PERST and a Reinit. If that never happens (the host ignored the wake,
// or is itself mid-suspend) the endpoint must not hold WAKE forever. The
// guard is a single-shot timer armed on every wake-down; on expiry the owner
// releases the wake signal.
//
// # Tokens
//
// Arm returns a Token identifying that arming. Re-arming cancels and
// replaces the previous arming, and Cancel takes the token it is cancelling.
// A cancelled or superseded token never reaches the expiry callback, even if
// the underlying time.Timer had already fired and its callback was waiting
// for the lock.
//
// # Window
//
// Default 5 seconds; configurable from 10ms to 60s.
package wakeguard
