// Package tinykernel is the top-level facade tying the scheduler, the
// software timer service, and the block allocator into one runnable unit
// (spec's OVERVIEW: a scheduler, synchronization primitives, a timer
// service, and a heap allocator, composed into a single kernel core).
package tinykernel

import (
	"context"
	"errors"
	"time"

	"github.com/nanorios/tinykernel/config"
	"github.com/nanorios/tinykernel/heap"
	"github.com/nanorios/tinykernel/internal/klog"
	"github.com/nanorios/tinykernel/platform"
	"github.com/nanorios/tinykernel/sched"
	"github.com/nanorios/tinykernel/task"
	"github.com/nanorios/tinykernel/timer"
)

// ErrAlreadyRunning is returned by Run if called while an earlier Run on
// the same Kernel has not yet returned.
var ErrAlreadyRunning = errors.New("tinykernel: already running")

// Kernel composes the scheduler, the timer service, and the heap
// allocator behind a single entrypoint. Most callers only need New and
// Run; the component fields (Sched, Timers, Heap) are exported for tests
// and for code that wants to reach a specific subsystem directly.
type Kernel struct {
	Sched  *sched.Kernel
	Timers *timer.Service
	Heap   *heap.Heap

	cfg     config.Config
	logger  klog.Logger
	running bool
}

// New wires up a Kernel from cfg: a scheduler sized per cfg's task
// capacity and quantum, a timer service driven by the scheduler's tick,
// and a block allocator sized per cfg's heap settings.
func New(cfg config.Config, opts ...Option) *Kernel {
	k := &Kernel{cfg: cfg, logger: klog.NoOpLogger{}}
	for _, opt := range opts {
		opt(k)
	}

	timers := timer.NewService()
	schedLogger := sched.Logger(klog.Adapter{Logger: k.logger, Category: "sched"})
	kernel := sched.New(sched.Options{
		Capacity: cfg.TaskCapacity,
		Quantum:  cfg.Quantum,
		Logger:   schedLogger,
	})
	kernel.SetTimerService(timers)

	k.Sched = kernel
	k.Timers = timers
	k.Heap = heap.New(cfg.HeapBytes, cfg.BlockSize)
	return k
}

// Option configures a Kernel at construction time.
type Option func(*Kernel)

// WithLogger sets the structured logger every subsystem's diagnostics
// are routed through.
func WithLogger(l klog.Logger) Option {
	return func(k *Kernel) { k.logger = l }
}

// TaskCreate creates a new task (delegates to the scheduler; see
// sched.Kernel.TaskCreate for the full contract).
func (k *Kernel) TaskCreate(name string, priority uint8, entry task.Func, param any) (*task.TCB, error) {
	t, status := k.Sched.TaskCreate(name, priority, entry, param)
	if !status.OK() {
		return nil, errors.New("tinykernel: " + status.String())
	}
	return t, nil
}

// Run starts the real-time tick source (platform.NewTickerSource at
// cfg.TickRateMS) and the dispatch loop, blocking until ctx is cancelled.
func (k *Kernel) Run(ctx context.Context) error {
	if k.running {
		return ErrAlreadyRunning
	}
	k.running = true
	defer func() { k.running = false }()

	rate := time.Duration(k.cfg.TickRateMS) * time.Millisecond
	return k.Sched.Run(ctx, platform.NewTickerSource(rate))
}
