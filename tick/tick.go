// Package tick provides the kernel's monotonic tick counter and the
// critical-section primitive every other package serializes state
// mutation through.
//
// Grounded on eventloop's tickAnchor/tickElapsedTime pair (loop.go) and its
// test-hook pattern (SetTickAnchor/TickAnchor): a real source drives the
// counter during normal operation, and tests drive it directly for
// deterministic scenarios.
package tick

import "sync/atomic"

// Count is a 32-bit wrapping tick counter. All timeout and delay arithmetic
// against a Count must use wrapping comparisons (Before/After below) so that
// a wrap of the counter does not produce a false timeout.
type Count uint32

// Before reports whether a happened strictly before b, tolerating wraparound
// of the 32-bit counter. This is the signed-subtraction trick used by every
// wrapping-clock implementation: (a - b) interpreted as a signed delta is
// negative iff a is "before" b, for any pair within 2^31 ticks of each other.
func Before(a, b Count) bool {
	return int32(a-b) < 0
}

// After reports whether a happened strictly after b.
func After(a, b Count) bool {
	return Before(b, a)
}

// Counter is the kernel's tick source: a single atomically-incremented
// wrapping counter, advanced once per simulated timer-ISR firing.
type Counter struct {
	n atomic.Uint32
}

// Now returns the current tick count.
func (c *Counter) Now() Count {
	return Count(c.n.Load())
}

// Advance increments the counter by one tick and returns the new value.
// Called exactly once per tick by the scheduler's tick driver.
func (c *Counter) Advance() Count {
	return Count(c.n.Add(1))
}

// Set forces the counter to a specific value. Exposed for deterministic
// tests that need to exercise wraparound without advancing tick-by-tick.
func (c *Counter) Set(v Count) {
	c.n.Store(uint32(v))
}

// Deadline computes the absolute tick at which a timeout started at `now`
// and lasting `ticks` expires. A `ticks` of zero yields `now` itself, which
// Expired already reports as reached; Deadline has no "wait forever" value,
// so callers that wait forever (ksync.Forever) track that separately.
func Deadline(now Count, ticks uint32) Count {
	return Count(uint32(now) + ticks)
}

// Expired reports whether `now` has reached or passed `deadline`.
func Expired(now, deadline Count) bool {
	return !Before(now, deadline)
}
