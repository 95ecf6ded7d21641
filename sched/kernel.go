// Package sched implements the preemptive, priority-based scheduler core
// described in spec §3 and §4.2: task creation and teardown, the dispatch
// loop, dynamic priority adjustment, and the tick-driven bookkeeping that
// wakes delayed tasks and requests preemption.
//
// See SPEC_FULL.md's EXECUTION MODEL section for why a hosted Go process
// cannot interrupt a running goroutine mid-instruction the way the
// original spec's ISR-driven model assumes. The short version: every TCB
// runs on its own goroutine, holding a single-slot baton (task.TCB.Resume /
// Parked) granted by the kernel's dispatch loop. Preemption becomes
// possible only when the running task cooperatively calls Checkpoint,
// Yield, or any blocking kernel API — exactly the same set of points a
// real RTOS task gives up the CPU at, minus true mid-loop interruption.
package sched

import (
	"context"

	"github.com/nanorios/tinykernel/kstatus"
	"github.com/nanorios/tinykernel/platform"
	"github.com/nanorios/tinykernel/task"
	"github.com/nanorios/tinykernel/tick"
)

// TimerService is the subset of timer.Service the kernel drives on every
// tick. Declared here instead of importing package timer to keep the
// dependency one-directional (timer never needs to import sched).
type TimerService interface {
	ProcessExpired(now tick.Count)
}

// Options configures a Kernel at construction time.
type Options struct {
	// Capacity bounds the number of tasks that may exist at once, the idle
	// task included; TaskCreate returns NoMemory once the table is full
	// (spec §4.2, "Task creation").
	Capacity int
	// Quantum is the default time-slice, in ticks, granted to a task on
	// dispatch (spec §4.2).
	Quantum uint32
	// IdleHook runs on the built-in idle task between Checkpoints.
	IdleHook platform.IdleHook
	// Logger receives scheduling diagnostics; nil disables logging.
	Logger Logger
}

// Logger is the narrow logging surface the kernel needs. It is satisfied by
// internal/klog.Adapter, which wraps a klog.Logger, so package sched never
// imports klog.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Infof(string, ...any)  {}

// Kernel is the scheduler: the task table, the ready queue, the tick
// counter, and the dispatch loop that ties them together.
type Kernel struct {
	cs     tick.CriticalSection
	ticks  tick.Counter
	ready  task.ReadyQueue
	tasks  []*task.TCB
	delayed []*task.TCB

	capacity int
	quantum  uint32

	current *task.TCB
	idle    *task.TCB

	tickSource platform.TickSource
	idleHook   platform.IdleHook
	timers     TimerService
	log        Logger
}

// New constructs a Kernel and its idle task. The idle task's goroutine is
// started immediately, matching the eager-start policy TaskCreate uses for
// every other task (see kernel.go's startGoroutine).
func New(opts Options) *Kernel {
	if opts.Capacity <= 0 {
		opts.Capacity = 32
	}
	if opts.Quantum == 0 {
		opts.Quantum = 10
	}
	if opts.IdleHook == nil {
		opts.IdleHook = platform.DefaultIdleHook
	}
	k := &Kernel{
		capacity: opts.Capacity,
		quantum:  opts.Quantum,
		idleHook: opts.IdleHook,
		log:      opts.Logger,
	}
	if k.log == nil {
		k.log = noopLogger{}
	}
	k.idle = task.New("idle", task.IdlePriority, opts.Quantum, k.idleLoop, nil)
	k.tasks = append(k.tasks, k.idle)
	k.idle.State = task.Ready
	k.ready.PushBack(k.idle)
	k.startGoroutine(k.idle)
	return k
}

// SetTimerService wires the timer service this kernel drives on every
// tick. Optional: a kernel with no timer service simply never calls
// ProcessExpired.
func (k *Kernel) SetTimerService(t TimerService) {
	k.timers = t
}

func (k *Kernel) idleLoop(self *task.TCB) {
	for {
		k.idleHook()
		k.Checkpoint()
	}
}

// startGoroutine launches t's goroutine, parked on its Resume channel until
// the dispatch loop first grants it the baton.
func (k *Kernel) startGoroutine(t *task.TCB) {
	if !t.MarkStarted() {
		return
	}
	go func() {
		<-t.Resume
		t.Entry(t)
		t.MarkTerminated()
		t.Parked <- struct{}{}
	}()
}

// TaskCreate creates a new task at the given priority (0 = highest, 255
// reserved for the idle task) and enqueues it Ready. Returns NoMemory if
// the task table is at Capacity, InvalidParam if entry is nil.
func (k *Kernel) TaskCreate(name string, priority uint8, entry task.Func, param any) (*task.TCB, kstatus.Status) {
	if entry == nil {
		return nil, kstatus.InvalidParam
	}
	var t *task.TCB
	status := kstatus.Ok
	k.cs.With(func() {
		if len(k.tasks) >= k.capacity {
			status = kstatus.NoMemory
			return
		}
		t = task.New(name, priority, k.quantum, entry, param)
		k.tasks = append(k.tasks, t)
		t.State = task.Ready
		k.ready.PushBack(t)
		k.requestPreemptIfNeededLocked()
	})
	if status != kstatus.Ok {
		return nil, status
	}
	k.startGoroutine(t)
	k.log.Debugf("task %q created at priority %d", name, priority)
	return t, kstatus.Ok
}

// Suspend removes t from scheduling consideration until Resume is called.
func (k *Kernel) Suspend(t *task.TCB) kstatus.Status {
	if t == nil {
		return kstatus.InvalidParam
	}
	k.cs.With(func() {
		if t.State == task.Ready {
			k.ready.Remove(t, t.Priority)
		}
		t.State = task.Suspended
	})
	return kstatus.Ok
}

// Resume makes a previously Suspended task Ready again.
func (k *Kernel) Resume(t *task.TCB) kstatus.Status {
	if t == nil {
		return kstatus.InvalidParam
	}
	k.cs.With(func() {
		if t.State == task.Suspended {
			t.State = task.Ready
			k.ready.PushBack(t)
			k.requestPreemptIfNeededLocked()
		}
	})
	return kstatus.Ok
}

// Delete tears down a task permanently. If t is blocked somewhere other
// than the ready queue (a primitive's wait list, or a delay), the caller
// is responsible for having removed it first: Delete only removes t from
// the ready queue and marks it Terminated so the dispatcher never selects
// it again. A goroutine already parked inside a blocking kernel call has
// no way to be forcibly unblocked in Go, so a task should generally only
// be deleted after it reaches a quiescent point of its own choosing.
func (k *Kernel) Delete(t *task.TCB) kstatus.Status {
	if t == nil {
		return kstatus.InvalidParam
	}
	k.cs.With(func() {
		if t.State == task.Ready {
			k.ready.Remove(t, t.Priority)
		}
		t.State = task.Terminated
	})
	t.MarkTerminated()
	return kstatus.Ok
}

// requestPreemptIfNeededLocked sets current's PreemptRequested flag if the
// ready queue now holds a strictly higher-priority task. Must be called
// with cs held. This is the single choke point every operation in spec
// §4.2's preemption-trigger list (task_create, task_resume, semaphore_post,
// event_group_set_bits, cond signal/broadcast, priority changes, and the
// tick driver itself) funnels through.
func (k *Kernel) requestPreemptIfNeededLocked() {
	if k.current == nil {
		return
	}
	if p, ok := k.ready.HighestReady(); ok && p < k.current.Priority {
		k.current.PreemptRequested.Store(true)
	}
}

// Run drives the dispatch loop until ctx is cancelled. A real-time tick
// source (platform.TickSource) is started on its own goroutine and fed
// into Tick; tests typically skip Run's tick source and call Tick
// directly, driving the dispatch loop with a separate goroutine.
func (k *Kernel) Run(ctx context.Context, ts platform.TickSource) error {
	if ts != nil {
		stop := make(chan struct{})
		go ts.Run(stop, k.Tick)
		defer close(stop)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		k.dispatchOnce()
	}
}

// dispatchOnce picks the next Ready task, grants it the CPU, and blocks
// until it parks (spec §4.2's context switch). A terminated task is
// reaped from the task table before the next pick.
func (k *Kernel) dispatchOnce() {
	var next *task.TCB
	k.cs.With(func() {
		var ok bool
		next, ok = k.ready.PickNext()
		if !ok {
			next = nil
			return
		}
		next.State = task.Running
		next.SliceRemaining = next.Quantum
		next.SwitchCount++
		k.current = next
	})
	if next == nil {
		// No Ready task at all, not even idle: nothing left to schedule
		// (idle only reaches this state if it has terminated, which its
		// infinite loop never does in practice).
		return
	}
	next.GiveCPU()
	if next.Terminated() {
		k.cs.With(func() {
			if k.current == next {
				k.current = nil
			}
			for i, t := range k.tasks {
				if t == next {
					k.tasks = append(k.tasks[:i], k.tasks[i+1:]...)
					break
				}
			}
		})
	}
}

// Tick advances the tick counter by one, decrements the running task's
// time slice, wakes any delayed tasks whose deadline has arrived, and
// scans the wired timer service for expired timers. It is safe to call
// from a goroutine other than the dispatch loop's.
func (k *Kernel) Tick() {
	var now tick.Count
	k.cs.With(func() {
		now = k.ticks.Advance()
		if k.current != nil {
			k.current.RunTicks++
			if k.current.SliceRemaining > 0 {
				k.current.SliceRemaining--
			}
			if k.current.SliceRemaining == 0 {
				k.current.PreemptRequested.Store(true)
			}
		}
		if len(k.delayed) > 0 {
			remaining := k.delayed[:0]
			for _, t := range k.delayed {
				if tick.Expired(now, t.WakeTick) {
					if t.WaitingIn != nil {
						t.WaitingIn.Remove(t)
						t.WaitingIn = nil
						t.TimedOut = true
					}
					t.State = task.Ready
					k.ready.PushBack(t)
				} else {
					remaining = append(remaining, t)
				}
			}
			k.delayed = remaining
		}
		k.requestPreemptIfNeededLocked()
	})
	if k.timers != nil {
		k.timers.ProcessExpired(now)
	}
}

// Now returns the kernel's current tick count.
func (k *Kernel) Now() tick.Count {
	return k.ticks.Now()
}

// Atomically runs fn with the kernel's single critical section held. This
// is the same lock every scheduling operation uses; package ksync's
// primitives use it too rather than taking one lock per primitive, so that
// a wait-list push and a ready-queue push can never be observed torn with
// respect to each other (spec's single global critical section guarding
// every kernel object).
func (k *Kernel) Atomically(fn func()) {
	k.cs.With(fn)
}

// CurrentLocked returns the currently-running TCB. Must be called from
// within Atomically, or from the running task's own goroutine where it is
// safe unlocked (k.current cannot change while this task holds the baton).
func (k *Kernel) CurrentLocked() *task.TCB {
	return k.current
}

// MakeReadyLocked transitions t to Ready, enqueues it, cancels any pending
// delay-timeout it was waiting on, and requests preemption if t now
// outranks the running task. Must be called from within Atomically.
func (k *Kernel) MakeReadyLocked(t *task.TCB) {
	k.cancelDelayLocked(t)
	t.WaitingIn = nil
	t.TimedOut = false
	t.State = task.Ready
	k.ready.PushBack(t)
	k.requestPreemptIfNeededLocked()
}

// BlockLocked transitions t to Blocked, links it into list, and — unless
// forever is set — arms a delay-timeout deadline so Tick will wake it (and
// unlink it from list) if nothing signals it first. Must be called from
// within Atomically.
func (k *Kernel) BlockLocked(t *task.TCB, list *task.WaitList, ticks uint32, forever bool) {
	t.State = task.Blocked
	t.TimedOut = false
	t.WaitingIn = list
	list.PushBack(t)
	if !forever {
		t.WakeTick = tick.Deadline(k.ticks.Now(), ticks)
		k.delayed = append(k.delayed, t)
	}
}

// cancelDelayLocked removes t from the delayed-wake list if present. Used
// both by MakeReadyLocked (a primitive woke the task before its timeout
// expired) and by Tick (the timeout expired first).
func (k *Kernel) cancelDelayLocked(t *task.TCB) {
	for i, d := range k.delayed {
		if d == t {
			k.delayed = append(k.delayed[:i], k.delayed[i+1:]...)
			return
		}
	}
}

// NowLocked returns the current tick count; equivalent to Now but named
// for symmetry with the other *Locked helpers used inside Atomically.
func (k *Kernel) NowLocked() tick.Count {
	return k.ticks.Now()
}
