package ksync_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanorios/tinykernel/ksync"
	"github.com/nanorios/tinykernel/sched"
	"github.com/nanorios/tinykernel/task"
)

func newRunningKernel(t *testing.T, quantum uint32) (*sched.Kernel, func()) {
	t.Helper()
	k := sched.New(sched.Options{Capacity: 16, Quantum: quantum})
	ctx, cancel := context.WithCancel(context.Background())
	go k.Run(ctx, nil)
	stopTicks := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stopTicks:
				return
			case <-ticker.C:
				k.Tick()
			}
		}
	}()
	return k, func() {
		close(stopTicks)
		cancel()
	}
}

func TestSemaphoreHandsOffDirectlyToWaiter(t *testing.T) {
	k, stop := newRunningKernel(t, 5)
	defer stop()

	sem := ksync.NewSemaphore(0, 1)
	acquired := make(chan struct{})
	_, status := k.TaskCreate("waiter", 50, func(self *task.TCB) {
		s := sem.Wait(k, ksync.Forever())
		assert.True(t, s.OK())
		close(acquired)
	}, nil)
	require.True(t, status.OK())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, uint32(0), sem.Count())
	assert.True(t, sem.Post(k).OK())

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the semaphore")
	}
}

func TestSemaphoreWaitTimesOut(t *testing.T) {
	k, stop := newRunningKernel(t, 5)
	defer stop()

	sem := ksync.NewSemaphore(0, 1)
	result := make(chan bool, 1)
	_, status := k.TaskCreate("waiter", 50, func(self *task.TCB) {
		s := sem.Wait(k, ksync.After(10))
		result <- s.OK()
	}, nil)
	require.True(t, status.OK())

	select {
	case ok := <-result:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("wait never returned")
	}
}

func TestMutexPriorityInheritance(t *testing.T) {
	k, stop := newRunningKernel(t, 3)
	defer stop()

	mu := ksync.NewMutex()
	lowHasLock := make(chan struct{})
	release := make(chan struct{})
	lowDone := make(chan struct{})
	var lowRanAfterBoost bool
	var mx sync.Mutex

	_, status := k.TaskCreate("low", 200, func(self *task.TCB) {
		require.True(t, mu.Lock(k, ksync.Forever()).OK())
		close(lowHasLock)
		// Keep handing the CPU back to the kernel while holding the mutex,
		// so the high-priority task can run and contend for it.
		for waiting := true; waiting; {
			select {
			case <-release:
				waiting = false
			default:
				k.Yield()
			}
		}
		mx.Lock()
		lowRanAfterBoost = true
		mx.Unlock()
		require.True(t, mu.Unlock(k).OK())
		close(lowDone)
	}, nil)
	require.True(t, status.OK())

	<-lowHasLock

	highBlocked := make(chan struct{})
	_, status = k.TaskCreate("high", 10, func(self *task.TCB) {
		close(highBlocked)
		require.True(t, mu.Lock(k, ksync.Forever()).OK())
		require.True(t, mu.Unlock(k).OK())
	}, nil)
	require.True(t, status.OK())
	<-highBlocked

	time.Sleep(30 * time.Millisecond)

	var ownerPriority uint8
	for _, s := range k.TaskStats() {
		if s.Name == "low" {
			ownerPriority = s.Priority
		}
	}
	assert.Equal(t, uint8(10), ownerPriority, "low-priority owner should have inherited the high task's priority")

	close(release)
	select {
	case <-lowDone:
	case <-time.After(time.Second):
		t.Fatal("low-priority owner never released the mutex")
	}
	mx.Lock()
	assert.True(t, lowRanAfterBoost)
	mx.Unlock()
}

func TestEventGroupWaitAllAndClearOnExit(t *testing.T) {
	k, stop := newRunningKernel(t, 5)
	defer stop()

	eg := ksync.NewEventGroup()
	woke := make(chan uint32, 1)
	_, status := k.TaskCreate("waiter", 50, func(self *task.TCB) {
		bits, s := eg.WaitBits(k, 0b011, ksync.WaitAll, true, ksync.Forever())
		require.True(t, s.OK())
		woke <- bits
	}, nil)
	require.True(t, status.OK())

	time.Sleep(10 * time.Millisecond)
	require.True(t, eg.SetBits(k, 0b001).OK())
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, uint32(0), eg.GetBits(k)&0b011, "no bits satisfied yet, nothing should have cleared")
	require.True(t, eg.SetBits(k, 0b010).OK())

	select {
	case bits := <-woke:
		assert.Equal(t, uint32(0b011), bits&0b011)
	case <-time.After(time.Second):
		t.Fatal("waiter never woke")
	}
	assert.Equal(t, uint32(0), eg.GetBits(k)&0b011, "clear-on-exit should have cleared the matched bits")
}

func TestCondWaitReacquiresMutex(t *testing.T) {
	k, stop := newRunningKernel(t, 5)
	defer stop()

	mu := ksync.NewMutex()
	cond := ksync.NewCond()
	woke := make(chan struct{})

	_, status := k.TaskCreate("waiter", 50, func(self *task.TCB) {
		require.True(t, mu.Lock(k, ksync.Forever()).OK())
		require.True(t, cond.Wait(k, mu, ksync.Forever()).OK())
		assert.Equal(t, self, mu.Owner(), "Wait must reacquire the mutex before returning")
		require.True(t, mu.Unlock(k).OK())
		close(woke)
	}, nil)
	require.True(t, status.OK())

	time.Sleep(20 * time.Millisecond)
	cond.Signal(k)

	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("waiter never woke from Wait")
	}
}

func TestQueueFIFOProducerConsumer(t *testing.T) {
	k, stop := newRunningKernel(t, 5)
	defer stop()

	q := ksync.NewQueue[int](2)
	const n = 10
	received := make(chan int, n)

	_, status := k.TaskCreate("consumer", 50, func(self *task.TCB) {
		for i := 0; i < n; i++ {
			v, s := q.Receive(k, ksync.Forever())
			require.True(t, s.OK())
			received <- v
		}
	}, nil)
	require.True(t, status.OK())

	_, status = k.TaskCreate("producer", 50, func(self *task.TCB) {
		for i := 0; i < n; i++ {
			require.True(t, q.Send(k, i, ksync.Forever()).OK())
		}
	}, nil)
	require.True(t, status.OK())

	for i := 0; i < n; i++ {
		select {
		case v := <-received:
			assert.Equal(t, i, v)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
}
