package timer

import (
	"context"

	"github.com/joeycumines/go-microbatch"
)

// Dispatcher offloads Timer callbacks onto a dedicated goroutine pool
// instead of running them inline on ProcessExpired's caller (ordinarily
// the kernel's tick driver, which must return quickly). Wrap a Callback
// with Dispatcher.Wrap before passing it to Service.NewTimer to have it
// dispatched this way; this is the "dedicated timer task" dispatch mode
// spec §9 leaves as an open question rather than mandating.
//
// Batching several fired callbacks from the same tick into one
// microbatch.Batcher submission round is exactly what go-microbatch was
// built for (see its ExampleBatcher_bulkInsert): many independent jobs,
// amortized over a small number of worker invocations.
type Dispatcher struct {
	batcher *microbatch.Batcher[func()]
}

// NewDispatcher starts a Dispatcher with up to maxConcurrency batches of
// callbacks running at once.
func NewDispatcher(maxConcurrency int) *Dispatcher {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	d := &Dispatcher{}
	d.batcher = microbatch.NewBatcher(&microbatch.BatcherConfig{
		MaxConcurrency: maxConcurrency,
	}, func(ctx context.Context, jobs []func()) error {
		for _, job := range jobs {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			job()
		}
		return nil
	})
	return d
}

// Wrap returns a Callback that submits cb to the dispatcher's batcher
// instead of running it directly.
func (d *Dispatcher) Wrap(cb Callback) Callback {
	return func() {
		_, _ = d.batcher.Submit(context.Background(), func() { cb() })
	}
}

// Close stops accepting new callbacks and waits for in-flight ones to
// finish.
func (d *Dispatcher) Close() error {
	return d.batcher.Close()
}
