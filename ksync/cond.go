package ksync

import (
	"github.com/nanorios/tinykernel/kstatus"
	"github.com/nanorios/tinykernel/sched"
	"github.com/nanorios/tinykernel/task"
)

// Cond is a FIFO condition variable associated with a Mutex (spec §4.6).
// Wait always reacquires the mutex before returning, even on timeout —
// the one rule this primitive cannot relax, since every caller's critical
// section logic after Wait assumes the mutex is held again.
type Cond struct {
	waiters task.WaitList
}

// NewCond returns a condition variable.
func NewCond() *Cond {
	return &Cond{}
}

// Wait atomically releases mu and blocks the calling task on the
// condition, for up to timeout. Regardless of whether it wakes via
// Signal, Broadcast, or timeout, mu is reacquired (with Forever timeout)
// before Wait returns.
func (c *Cond) Wait(k *sched.Kernel, mu *Mutex, timeout Timeout) kstatus.Status {
	self := k.CurrentLocked()
	if self == nil {
		return kstatus.PermissionDenied
	}

	// The unlock-then-block transition must be atomic with respect to a
	// concurrent Signal/Broadcast, or a wakeup could be missed between
	// releasing the mutex and joining the wait list. Both halves run
	// under the same kernel critical section Mutex.Unlock itself uses, so
	// there is no window for that race.
	blocked := false
	k.Atomically(func() {
		k.ResetPriorityLocked(mu.Owner())
		mu.owner = nil
		mu.Ceiling = task.IdlePriority
		if !timeout.blocks() {
			return
		}
		k.BlockLocked(self, &c.waiters, timeout.ticks, timeout.forever)
		blocked = true
	})

	var status kstatus.Status
	if !blocked {
		status = kstatus.Timeout
	} else {
		self.Yield()
		if self.TimedOut {
			status = kstatus.Timeout
		} else {
			status = kstatus.Ok
		}
	}

	if lockStatus := mu.Lock(k, Forever()); !lockStatus.OK() {
		return lockStatus
	}
	return status
}

// Signal wakes the longest-waiting task, if any.
func (c *Cond) Signal(k *sched.Kernel) {
	k.Atomically(func() {
		if w := c.waiters.PopFront(); w != nil {
			k.MakeReadyLocked(w)
		}
	})
}

// Broadcast wakes every waiting task, in FIFO order.
func (c *Cond) Broadcast(k *sched.Kernel) {
	k.Atomically(func() {
		for _, w := range c.waiters.PopAll() {
			k.MakeReadyLocked(w)
		}
	})
}
