// Package retry provides bounded retry loops with backoff.
//
// Lifecycle operations retry in three places, always with a fixed attempt
// budget and never indefinitely:
//
//   - identity verification after power-up (short fixed sleep between reads)
//   - host hot-configure reinit (3 attempts, short backoff)
//   - low-power link entry before power-off
//
// The backoff calculator is exponential with optional jitter:
//
//	actual_delay = base_delay + random(0, base_delay * jitter)
//
// A Policy with Multiplier 1 and Jitter 0 gives a constant sleep.
package retry
