// Package task implements the kernel's task control block and the
// per-priority ready-queue discipline described in spec §3 and §4.2.
package task

import (
	"sync/atomic"

	"github.com/nanorios/tinykernel/tick"
)

// Func is a task's entry point. It receives the TCB it was created for
// (mirroring an "opaque parameter" handed to the entry function, per §3,
// via TCB.Param) so it can call back into the kernel that owns it.
type Func func(self *TCB)

// TCB is the kernel's record of one schedulable flow of control.
//
// Fields follow spec §3 closely. Where the original spec describes a stack
// region owned by the TCB and a saved-stack-pointer slot written by the
// context switcher, this Go port instead gives each TCB its own goroutine,
// parked on Resume between dispatches and reporting back on Parked — see
// SPEC_FULL.md's EXECUTION MODEL section. Next is the single intrusive link
// shared by the ready queue and every synchronization primitive's wait list;
// the invariant that a TCB is in at most one such list at a time (spec §9,
// "Cyclic references") is the caller's (the kernel's) responsibility, not
// this type's.
type TCB struct {
	Name string

	// Priority is the task's current priority (0 = highest). Param is the
	// opaque value supplied at creation, threaded through to Entry.
	Priority     uint8
	BasePriority uint8
	Param        any

	State State

	// SliceRemaining is the number of ticks left in the task's current
	// time slice; reset to Quantum on every dispatch.
	SliceRemaining uint32
	Quantum        uint32

	// RunTicks is the cumulative count of ticks observed with this TCB in
	// state Running (spec §3, "cumulative run-time counter").
	RunTicks uint64
	// SwitchCount is the number of times this TCB has been dispatched;
	// supplements spec §3 for the task-statistics feature pulled in from
	// original_source/examples/task_statistics.c.
	SwitchCount uint64

	// WakeTick is the absolute tick at which a delayed task becomes Ready
	// again; meaningful only while State == Blocked due to Delay or a
	// primitive wait with a finite timeout.
	WakeTick tick.Count

	Entry Func

	// Next is the single intrusive link used by exactly one of {ready
	// queue, a primitive's wait list} at a time (spec §9).
	Next *TCB

	// Resume is signalled by the kernel to grant this TCB the baton.
	// Parked is signalled by the TCB's goroutine to give the baton back
	// (buffered size 1: the kernel only ever needs to observe "has it given
	// up the CPU yet", never a backlog of signals).
	Resume chan struct{}
	Parked chan struct{}

	// PreemptRequested is set by the tick driver (slice exhausted) or by any
	// operation that makes a higher-priority task ready (spec §4.2,
	// "Preemption"). The running TCB's own goroutine observes it at the
	// next Checkpoint/Yield call — see SPEC_FULL.md's EXECUTION MODEL
	// section for why this can't be instantaneous in a hosted Go process.
	PreemptRequested atomic.Bool

	// WaitingIn is the wait list this TCB is currently linked into, if any
	// (nil when Ready, Running, Suspended, or delayed by a plain Delay
	// rather than a primitive wait). TimedOut records whether the most
	// recent block ended via deadline expiry rather than a signal/post.
	WaitingIn *WaitList
	TimedOut  bool

	terminated atomic.Bool
	started    atomic.Bool
}

// New constructs a TCB in state Suspended; the caller (sched.Kernel) is
// responsible for starting its goroutine and transitioning it to Ready.
func New(name string, priority uint8, quantum uint32, entry Func, param any) *TCB {
	return &TCB{
		Name:           name,
		Priority:       priority,
		BasePriority:   priority,
		Param:          param,
		State:          Suspended,
		SliceRemaining: quantum,
		Quantum:        quantum,
		Entry:          entry,
		Resume:         make(chan struct{}),
		Parked:         make(chan struct{}, 1),
	}
}

// MarkStarted records that this TCB's goroutine has been launched; returns
// false if it had already been started, so the kernel never double-launches
// a goroutine for the same TCB.
func (t *TCB) MarkStarted() bool {
	return t.started.CompareAndSwap(false, true)
}

// Terminated reports whether the TCB's entry function has returned.
func (t *TCB) Terminated() bool {
	return t.terminated.Load()
}

// MarkTerminated records that the TCB's goroutine has exited for good.
func (t *TCB) MarkTerminated() {
	t.terminated.Store(true)
}

// GiveCPU grants the TCB the baton and blocks until it parks again (either
// because it called back into a blocking kernel API, or because its entry
// function returned).
func (t *TCB) GiveCPU() {
	t.Resume <- struct{}{}
	<-t.Parked
}

// Yield is called from inside the TCB's own goroutine to give the baton
// back to the kernel and block until it is granted again.
func (t *TCB) Yield() {
	t.Parked <- struct{}{}
	<-t.Resume
}
