package sched

import "github.com/nanorios/tinykernel/task"

// Stats is a snapshot of one task's scheduling history, supplementing the
// base spec with the task-statistics feature pulled in from
// original_source/'s task_statistics.c (see SPEC_FULL.md's DOMAIN STACK
// section).
type Stats struct {
	Name         string
	Priority     uint8
	BasePriority uint8
	State        task.State
	RunTicks     uint64
	SwitchCount  uint64
}

// TaskStats returns a point-in-time snapshot for every task currently
// known to the kernel, including the idle task.
func (k *Kernel) TaskStats() []Stats {
	var out []Stats
	k.Atomically(func() {
		out = make([]Stats, 0, len(k.tasks))
		for _, t := range k.tasks {
			out = append(out, Stats{
				Name:         t.Name,
				Priority:     t.Priority,
				BasePriority: t.BasePriority,
				State:        t.State,
				RunTicks:     t.RunTicks,
				SwitchCount:  t.SwitchCount,
			})
		}
	})
	return out
}

// TaskCount returns the number of tasks currently in the task table
// (including idle).
func (k *Kernel) TaskCount() int {
	n := 0
	k.Atomically(func() { n = len(k.tasks) })
	return n
}
