// Package ksync implements the kernel's synchronization primitives: a
// priority-inheriting mutex, a counting semaphore, an event group, a
// condition variable, and a bounded message queue (spec §4.3-§4.7).
package ksync

import "github.com/nanorios/tinykernel/tick"

// Timeout expresses how long a blocking call may wait before giving up.
// Zero value is NoWait (try once, never block).
type Timeout struct {
	ticks   uint32
	forever bool
}

// NoWait returns a Timeout that never blocks: the call either succeeds
// immediately or returns kstatus.Timeout.
func NoWait() Timeout { return Timeout{} }

// Forever returns a Timeout that blocks indefinitely.
func Forever() Timeout { return Timeout{forever: true} }

// After returns a Timeout that blocks for up to the given number of
// ticks.
func After(ticks uint32) Timeout { return Timeout{ticks: ticks} }

func (d Timeout) blocks() bool { return d.forever || d.ticks > 0 }

func (d Timeout) deadline(now tick.Count) (tick.Count, bool) {
	if d.forever {
		return 0, true
	}
	return tick.Deadline(now, d.ticks), false
}
