// Package executor provides a managed worker pool with explicit, bounded
// lifecycle and coordinated batch submission.
//
// # Pool Policy
//
// A Pool is built from a small set of tunables:
//
//	pool, err := executor.New("worker", executor.Options{
//	    MinThreads:  1,
//	    MaxThreads:  16,
//	    IdleTimeout: 30 * time.Minute,
//	    QueueSize:   100,
//	    Overflow:    executor.CallerRuns,
//	}, logger)
//
// Invalid tunables fail New with an error matching util.ErrInvalidConfig.
// MaxThreads 0 turns the pool off: every task runs synchronously on the
// submitting goroutine, which is useful for tests and debugging. QueueSize 0
// hands tasks directly to a free worker and applies the overflow policy when
// none is free and no more workers may be started.
//
// # Submitting Work
//
//	f, err := executor.Submit(ctx, pool, func(ctx context.Context) (string, error) {
//	    return fetch(ctx)
//	})
//	if err != nil {
//	    return err // shut down or rejected
//	}
//	v, err := f.Get(ctx)
//
// Every submission passes through the pool's wrapper chain at submit time.
// By default the chain propagates the submitter's delegate scope; WithSink
// adds enqueue/dequeue/exception timing.
//
// # Explosive Invocation
//
// InvokeAllExplosively submits a batch, returns futures in completion order,
// stops at the first failure (which is kept as the last element) and cancels
// everything still in flight.
//
// # Scoped Lifecycle
//
//	scope := executor.AutoTerminate(pool, 30*time.Second, logger)
//	defer scope.Close()
//
// AutoShutdown only requests shutdown. AutoTerminate additionally waits and
// reports util.ErrTimeout if tasks outlive the timeout.
//
// # Management
//
// Stats and the individual getters are lock-free reads meant for dashboards.
// Core size, maximum size and idle timeout can be changed at runtime.
package executor
