package ksync

import (
	"github.com/nanorios/tinykernel/kstatus"
	"github.com/nanorios/tinykernel/sched"
	"github.com/nanorios/tinykernel/task"
)

// Semaphore is a counting semaphore (spec §4.4). The invariant count >= 0
// and (count > 0 => waiters list is empty) holds at every observation
// point: Post transfers ownership directly to a waiter when one is
// present instead of incrementing count and letting the waiter re-check,
// which is what keeps the two halves of the invariant from ever both
// being true at once.
type Semaphore struct {
	max     uint32
	count   uint32
	waiters task.WaitList
}

// NewSemaphore returns a semaphore with the given initial count and
// maximum count (Post beyond max is a no-op, mirroring a bounded counting
// semaphore).
func NewSemaphore(initial, max uint32) *Semaphore {
	if max == 0 {
		max = ^uint32(0)
	}
	if initial > max {
		initial = max
	}
	return &Semaphore{count: initial, max: max}
}

// Wait decrements the count, blocking for up to timeout if it is
// currently zero.
func (s *Semaphore) Wait(k *sched.Kernel, timeout Timeout) kstatus.Status {
	self := k.CurrentLocked()
	if self == nil {
		return kstatus.PermissionDenied
	}
	acquired, blocked := false, false
	k.Atomically(func() {
		if s.count > 0 {
			s.count--
			acquired = true
			return
		}
		if !timeout.blocks() {
			return
		}
		k.BlockLocked(self, &s.waiters, timeout.ticks, timeout.forever)
		blocked = true
	})
	if acquired {
		return kstatus.Ok
	}
	if !blocked {
		return kstatus.Timeout
	}
	self.Yield()
	if self.TimedOut {
		return kstatus.Timeout
	}
	return kstatus.Ok
}

// Post increments the count, or — if a task is waiting — wakes the
// longest-waiting one directly without ever letting count become visibly
// nonzero with a nonempty wait list.
func (s *Semaphore) Post(k *sched.Kernel) kstatus.Status {
	k.Atomically(func() {
		if w := s.waiters.PopFront(); w != nil {
			k.MakeReadyLocked(w)
			return
		}
		if s.count < s.max {
			s.count++
		}
	})
	return kstatus.Ok
}

// Count returns the current count (diagnostic only; may be stale the
// instant it is read).
func (s *Semaphore) Count() uint32 {
	return s.count
}
