package sched

import (
	"github.com/nanorios/tinykernel/task"
	"github.com/nanorios/tinykernel/tick"
)

// Yield unconditionally gives up the remainder of the calling task's time
// slice, requeues it at the tail of its priority's ready list, and blocks
// until the dispatcher grants the CPU again — to this same task if no
// other Ready task outranks or ties it, otherwise to whichever the
// dispatcher picks next (spec §4.2, "Yield").
func (k *Kernel) Yield() {
	self := k.CurrentLocked()
	if self == nil {
		return
	}
	self.PreemptRequested.Store(false)
	k.Atomically(func() {
		self.State = task.Ready
		self.SliceRemaining = self.Quantum
		k.ready.PushBack(self)
	})
	self.Yield()
}

// Checkpoint is the cheap cooperative preemption point: a single atomic
// load, and only a full Yield if PreemptRequested is actually set (slice
// exhausted, or a higher-priority task became Ready). Busy loops that
// never otherwise call into the kernel are expected to call Checkpoint
// periodically — see SPEC_FULL.md's EXECUTION MODEL section.
func (k *Kernel) Checkpoint() {
	self := k.CurrentLocked()
	if self == nil || !self.PreemptRequested.Load() {
		return
	}
	k.Yield()
}

// Delay blocks the calling task for the given number of ticks (spec §4.2).
// A delay of exactly zero ticks yields without blocking, matching the
// "delay(0) behaves like yield" edge case.
func (k *Kernel) Delay(ticks uint32) {
	if ticks == 0 {
		k.Yield()
		return
	}
	self := k.CurrentLocked()
	if self == nil {
		return
	}
	k.Atomically(func() {
		self.State = task.Blocked
		self.WaitingIn = nil
		self.WakeTick = tick.Deadline(k.ticks.Now(), ticks)
		k.delayed = append(k.delayed, self)
	})
	self.Yield()
}
