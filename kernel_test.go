package tinykernel_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tinykernel "github.com/nanorios/tinykernel"
	"github.com/nanorios/tinykernel/config"
	"github.com/nanorios/tinykernel/task"
	"github.com/nanorios/tinykernel/timer"
)

func TestKernelRunsTasksAndTimersTogether(t *testing.T) {
	cfg := config.Default()
	cfg.TaskCapacity = 8
	cfg.Quantum = 5
	cfg.TickRateMS = 1
	cfg.HeapBytes = 4096
	cfg.BlockSize = 32

	k := tinykernel.New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go k.Run(ctx)

	fired := make(chan struct{}, 1)
	tm := k.Timers.NewTimer("probe", 10, timer.OneShot, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	require.True(t, k.Timers.Start(tm, k.Sched.Now()).OK())

	done := make(chan struct{})
	_, err := k.TaskCreate("worker", 50, func(self *task.TCB) {
		close(done)
	}, nil)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}

	ptr, buf, status := k.Heap.Malloc(64)
	require.True(t, status.OK())
	assert.Len(t, buf, 64)
	assert.True(t, k.Heap.Free(ptr).OK())
}
