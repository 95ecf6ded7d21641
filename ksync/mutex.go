package ksync

import (
	"github.com/nanorios/tinykernel/kstatus"
	"github.com/nanorios/tinykernel/sched"
	"github.com/nanorios/tinykernel/task"
	"github.com/nanorios/tinykernel/tick"
)

// Mutex is a priority-inheriting lock (spec §4.3). Unlike the other
// primitives in this package it has no wait list: contention is resolved
// by polling, with the calling task ceding the CPU via the kernel's Yield
// between attempts. This keeps a blocked-on-mutex task visible to the
// ready queue at its (possibly boosted) priority the whole time it is
// contending, which is what makes priority inheritance observable — a
// wait-queued design would need the same boost-then-requeue dance
// anyway, so polling-yield was kept as the simpler of two equivalent
// designs (spec §9's open question on this point).
type Mutex struct {
	owner *task.TCB
	// Ceiling is the highest priority (lowest number) ever inherited by
	// the current owner while holding this mutex; reset on each Unlock.
	// Exposed for diagnostics only.
	Ceiling uint8
}

// NewMutex returns an unlocked Mutex.
func NewMutex() *Mutex {
	return &Mutex{Ceiling: task.IdlePriority}
}

// Lock acquires the mutex, blocking (by polling and yielding) for up to
// timeout. While blocked, if the current owner has a lower priority
// (higher numeric value) than the calling task, the owner inherits the
// caller's priority for as long as it holds the mutex (one hop only —
// spec §5 is explicit this does not chain transitively through a
// second mutex).
func (m *Mutex) Lock(k *sched.Kernel, timeout Timeout) kstatus.Status {
	self := k.CurrentLocked()
	if self == nil {
		return kstatus.PermissionDenied
	}
	var deadline tick.Count
	var forever bool
	armed := false

	for {
		acquired := false
		k.Atomically(func() {
			if m.owner == nil {
				m.owner = self
				m.Ceiling = self.Priority
				acquired = true
				return
			}
			if self.Priority < m.owner.Priority {
				k.RaisePriorityLocked(m.owner, self.Priority)
				if self.Priority < m.Ceiling {
					m.Ceiling = self.Priority
				}
			}
		})
		if acquired {
			return kstatus.Ok
		}
		if !armed {
			if !timeout.blocks() {
				return kstatus.Timeout
			}
			deadline, forever = timeout.deadline(k.Now())
			armed = true
		}
		if !forever && tick.Expired(k.Now(), deadline) {
			return kstatus.Timeout
		}
		k.Yield()
	}
}

// Unlock releases the mutex. Only the owner may unlock it; any other
// caller gets PermissionDenied (spec §4.3). The owner's priority is
// restored to its base priority, undoing any inheritance boost.
func (m *Mutex) Unlock(k *sched.Kernel) kstatus.Status {
	self := k.CurrentLocked()
	status := kstatus.Ok
	k.Atomically(func() {
		if m.owner != self {
			status = kstatus.PermissionDenied
			return
		}
		k.ResetPriorityLocked(self)
		m.owner = nil
		m.Ceiling = task.IdlePriority
	})
	return status
}

// Owner returns the task currently holding the lock, or nil.
func (m *Mutex) Owner() *task.TCB {
	return m.owner
}
