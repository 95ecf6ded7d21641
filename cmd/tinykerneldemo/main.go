// Command tinykerneldemo exercises every subsystem of the kernel core
// end-to-end: round-robin fairness among equal-priority tasks, priority
// preemption, priority-inheriting mutex contention, a producer/consumer
// bounded queue, software-timer expiry ordering, and condition-variable
// broadcast — spec §8's scenario list, run against one live kernel
// instance instead of as separate unit tests.
package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"

	"github.com/joeycumines/go-longpoll"

	tinykernel "github.com/nanorios/tinykernel"
	"github.com/nanorios/tinykernel/config"
	"github.com/nanorios/tinykernel/internal/klog"
	"github.com/nanorios/tinykernel/ksync"
	"github.com/nanorios/tinykernel/task"
	"github.com/nanorios/tinykernel/timer"
)

func main() {
	// GOMAXPROCS/GOMEMLIMIT tuning for whatever container this demo
	// happens to run in — irrelevant to the kernel's own semantics, but
	// exactly the kind of ambient process tuning a real Go service does
	// at startup regardless of what it otherwise does.
	if _, err := maxprocs.Set(maxprocs.Logger(log.Printf)); err != nil {
		log.Printf("tinykerneldemo: maxprocs.Set: %v", err)
	}
	if _, err := memlimit.SetGoMemLimitWithOpts(); err != nil {
		log.Printf("tinykerneldemo: memlimit.SetGoMemLimitWithOpts: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := klog.NewDefaultLogger(klog.LevelInfo)
	cfg := config.Default()
	cfg.TaskCapacity = 16
	cfg.Quantum = 5
	cfg.TickRateMS = 1
	cfg.HeapBytes = 1 << 16
	cfg.BlockSize = 64

	k := tinykernel.New(cfg, tinykernel.WithLogger(logger))

	diagnostics := make(chan string, 256)
	emit := func(format string, args ...any) {
		select {
		case diagnostics <- fmt.Sprintf(format, args...):
		default:
		}
	}

	runRoundRobinScenario(k, emit)
	runPreemptionScenario(k, emit)
	runPriorityInversionScenario(k, emit)
	runQueueScenario(k, emit)
	runTimerScenario(k, emit)
	runCondBroadcastScenario(k, emit)

	var g errgroup.Group
	g.Go(func() error {
		return k.Run(ctx)
	})
	g.Go(func() error {
		return drainDiagnostics(ctx, diagnostics)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Fatalf("tinykerneldemo: %v", err)
	}
}

// drainDiagnostics batches diagnostic lines using go-longpoll's Channel
// helper instead of logging one line per event, so a burst of scenario
// output reads as a handful of grouped log calls rather than hundreds of
// individual ones.
func drainDiagnostics(ctx context.Context, diagnostics <-chan string) error {
	cfg := &longpoll.ChannelConfig{
		MaxSize:        32,
		MinSize:        1,
		PartialTimeout: 200 * time.Millisecond,
	}
	for {
		err := longpoll.Channel(ctx, cfg, diagnostics, func(line string) error {
			log.Println(line)
			return nil
		})
		if err != nil {
			return err
		}
	}
}

func runRoundRobinScenario(k *tinykernel.Kernel, emit func(string, ...any)) {
	const workers = 3
	for i := 0; i < workers; i++ {
		name := fmt.Sprintf("rr-%d", i)
		_, _ = k.TaskCreate(name, 100, func(self *task.TCB) {
			for i := 0; i < 5; i++ {
				emit("round-robin: %s iteration %d", self.Name, i)
				k.Sched.Yield()
			}
		}, nil)
	}
}

func runPreemptionScenario(k *tinykernel.Kernel, emit func(string, ...any)) {
	_, _ = k.TaskCreate("background", 200, func(self *task.TCB) {
		for {
			k.Sched.Checkpoint()
		}
	}, nil)
	_, _ = k.TaskCreate("urgent", 1, func(self *task.TCB) {
		emit("preemption: urgent task ran ahead of background")
	}, nil)
}

func runPriorityInversionScenario(k *tinykernel.Kernel, emit func(string, ...any)) {
	mu := ksync.NewMutex()
	held := make(chan struct{})
	release := make(chan struct{})

	_, _ = k.TaskCreate("resource-owner", 150, func(self *task.TCB) {
		_ = mu.Lock(k, ksync.Forever())
		close(held)
		<-release
		_ = mu.Unlock(k)
	}, nil)

	go func() {
		<-held
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()

	_, _ = k.TaskCreate("high-priority-waiter", 5, func(self *task.TCB) {
		status := mu.Lock(k, ksync.After(1000))
		emit("priority inversion: waiter acquired mutex with status %s, ceiling was %d", status, mu.Ceiling)
		_ = mu.Unlock(k)
	}, nil)
}

func runQueueScenario(k *tinykernel.Kernel, emit func(string, ...any)) {
	q := ksync.NewQueue[int](4)
	_, _ = k.TaskCreate("producer", 80, func(self *task.TCB) {
		for i := 0; i < 8; i++ {
			_ = q.Send(k, i, ksync.Forever())
		}
	}, nil)
	_, _ = k.TaskCreate("consumer", 80, func(self *task.TCB) {
		for i := 0; i < 8; i++ {
			v, _ := q.Receive(k, ksync.Forever())
			emit("queue: consumed %d", v)
		}
	}, nil)
}

func runTimerScenario(k *tinykernel.Kernel, emit func(string, ...any)) {
	for _, period := range []uint32{5, 15, 30} {
		period := period
		tm := k.Timers.NewTimer(fmt.Sprintf("timer-%d", period), period, timer.OneShot, func() {
			emit("timer: period %d expired", period)
		})
		_ = k.Timers.Start(tm, k.Sched.Now())
	}
}

func runCondBroadcastScenario(k *tinykernel.Kernel, emit func(string, ...any)) {
	mu := ksync.NewMutex()
	cond := ksync.NewCond()
	const waiters = 3
	for i := 0; i < waiters; i++ {
		i := i
		_, _ = k.TaskCreate(fmt.Sprintf("cond-waiter-%d", i), 90, func(self *task.TCB) {
			_ = mu.Lock(k, ksync.Forever())
			_ = cond.Wait(k, mu, ksync.Forever())
			emit("cond: waiter %d woke from broadcast", i)
			_ = mu.Unlock(k)
		}, nil)
	}
	_, _ = k.TaskCreate("cond-broadcaster", 90, func(self *task.TCB) {
		k.Sched.Delay(50)
		cond.Broadcast(k)
	}, nil)
}
