package sched

import "github.com/nanorios/tinykernel/task"

// requeueForPriorityChangeLocked moves t to the tail of its new priority's
// ready list if it is currently Ready. Must be called from within
// Atomically, after t.Priority has already been updated.
func (k *Kernel) requeueForPriorityChangeLocked(t *task.TCB, old uint8) {
	if t.State != task.Ready {
		return
	}
	k.ready.Remove(t, old)
	k.ready.PushBack(t)
}

// SetPriority permanently changes t's priority, resetting its base
// priority too (spec §4.2, "dynamic priority adjustment"). A task moved
// while Ready goes to the tail of its new priority's list.
func (k *Kernel) SetPriority(t *task.TCB, p uint8) {
	k.Atomically(func() {
		old := t.Priority
		t.Priority = p
		t.BasePriority = p
		k.requeueForPriorityChangeLocked(t, old)
		k.requestPreemptIfNeededLocked()
	})
}

// RaisePriorityLocked temporarily boosts t above its base priority without
// touching BasePriority, used by package ksync's mutex for priority
// inheritance (spec §4.3: the owner of a contended mutex inherits the
// priority of the highest-priority blocked waiter, one hop only). A no-op
// if p does not actually outrank t's current priority. Must be called from
// within Atomically.
func (k *Kernel) RaisePriorityLocked(t *task.TCB, p uint8) {
	if p >= t.Priority {
		return
	}
	old := t.Priority
	t.Priority = p
	k.requeueForPriorityChangeLocked(t, old)
	k.requestPreemptIfNeededLocked()
}

// ResetPriorityLocked restores t to its BasePriority, undoing any
// inheritance boost once the mutex it was boosted for is released. A
// no-op if t is already at its base priority. Must be called from within
// Atomically.
func (k *Kernel) ResetPriorityLocked(t *task.TCB) {
	if t.Priority == t.BasePriority {
		return
	}
	old := t.Priority
	t.Priority = t.BasePriority
	k.requeueForPriorityChangeLocked(t, old)
	k.requestPreemptIfNeededLocked()
}
