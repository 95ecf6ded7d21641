package ksync

import (
	"github.com/nanorios/tinykernel/kstatus"
	"github.com/nanorios/tinykernel/sched"
	"github.com/nanorios/tinykernel/task"
)

// WaitMode selects how WaitBits evaluates a waiter's mask against the
// group's current bits.
type WaitMode int

const (
	// WaitAny is satisfied as soon as any bit in the mask is set.
	WaitAny WaitMode = iota
	// WaitAll is satisfied only once every bit in the mask is set.
	WaitAll
)

// EventGroup holds a set of bits that tasks can wait on in ANY or ALL
// mode (spec §4.5). A waiter is re-checked against the current bits
// whenever SetBits changes them; waiters parked here form a single FIFO
// list re-walked on every SetBits, since different waiters can be
// satisfied by different subsets of the same bit change.
type EventGroup struct {
	bits    uint32
	waiters task.WaitList
	pending pendingRequests
}

// NewEventGroup returns an EventGroup with no bits set.
func NewEventGroup() *EventGroup {
	return &EventGroup{}
}

// SetBits ORs mask into the group's bits and wakes every waiter whose
// condition is now satisfied.
func (e *EventGroup) SetBits(k *sched.Kernel, mask uint32) kstatus.Status {
	if mask == 0 {
		return kstatus.InvalidParam
	}
	k.Atomically(func() {
		e.bits |= mask
		e.wakeSatisfiedLocked(k)
	})
	return kstatus.Ok
}

// ClearBits clears mask from the group's bits.
func (e *EventGroup) ClearBits(k *sched.Kernel, mask uint32) kstatus.Status {
	if mask == 0 {
		return kstatus.InvalidParam
	}
	k.Atomically(func() {
		e.bits &^= mask
	})
	return kstatus.Ok
}

// GetBits returns the group's current bits.
func (e *EventGroup) GetBits(k *sched.Kernel) uint32 {
	var bits uint32
	k.Atomically(func() { bits = e.bits })
	return bits
}

// waitRequest is stashed per-waiter since the event group's wait list
// carries plain TCBs; the mask/mode/clearOnExit a given waiter is
// blocked on is tracked alongside it here rather than added to TCB,
// which would otherwise need to know about every primitive that might
// ever park a task on it.
type waitRequest struct {
	t           *task.TCB
	mask        uint32
	mode        WaitMode
	clearOnExit bool
	// matched is the intersection (bits & mask) captured at the instant
	// the request was satisfied, before clearOnExit clears anything —
	// this is the "received bits" value §4.5 specifies, not the group's
	// full bitset.
	matched uint32
}

// pending maps a blocked TCB to the request it is waiting on. A map
// keyed by *task.TCB is fine at kernel scale (bounded task count) and
// keeps WaitList itself primitive-agnostic.
type pendingRequests map[*task.TCB]*waitRequest

func (e *EventGroup) satisfied(bits uint32, req *waitRequest) bool {
	if req.mode == WaitAll {
		return bits&req.mask == req.mask
	}
	return bits&req.mask != 0
}

// wakeSatisfiedLocked scans every waiter and makes Ready the ones whose
// condition the current bits now satisfy, clearing their bits first if
// they asked for clear-on-exit. Must be called from within Atomically.
func (e *EventGroup) wakeSatisfiedLocked(k *sched.Kernel) {
	if e.pending == nil {
		return
	}
	all := e.waiters.PopAll()
	var keep []*task.TCB
	for _, t := range all {
		req := e.pending[t]
		if req == nil {
			continue
		}
		if e.satisfied(e.bits, req) {
			req.matched = e.bits & req.mask
			if req.clearOnExit {
				e.bits &^= req.mask
			}
			delete(e.pending, t)
			k.MakeReadyLocked(t)
			continue
		}
		keep = append(keep, t)
	}
	for _, t := range keep {
		e.waiters.PushBack(t)
	}
}

// WaitBits blocks until the group's bits satisfy mask under mode, or
// timeout elapses. If clearOnExit is set and the wait is satisfied
// (never on timeout), the matched bits are cleared atomically with the
// wake.
func (e *EventGroup) WaitBits(k *sched.Kernel, mask uint32, mode WaitMode, clearOnExit bool, timeout Timeout) (uint32, kstatus.Status) {
	if mask == 0 {
		return 0, kstatus.InvalidParam
	}
	self := k.CurrentLocked()
	if self == nil {
		return 0, kstatus.PermissionDenied
	}

	req := &waitRequest{t: self, mask: mask, mode: mode, clearOnExit: clearOnExit}
	satisfied, blocked := false, false
	k.Atomically(func() {
		if e.satisfied(e.bits, req) {
			req.matched = e.bits & mask
			if clearOnExit {
				e.bits &^= mask
			}
			satisfied = true
			return
		}
		if !timeout.blocks() {
			return
		}
		if e.pending == nil {
			e.pending = make(pendingRequests)
		}
		e.pending[self] = req
		k.BlockLocked(self, &e.waiters, timeout.ticks, timeout.forever)
		blocked = true
	})
	if satisfied {
		return req.matched, kstatus.Ok
	}
	if !blocked {
		return 0, kstatus.Timeout
	}
	self.Yield()
	k.Atomically(func() {
		delete(e.pending, self)
	})
	if self.TimedOut {
		return 0, kstatus.Timeout
	}
	return req.matched, kstatus.Ok
}
