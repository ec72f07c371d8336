package wrapper

import (
	"context"

	"github.com/aryankumar/taskpool/internal/delegate"
)

// Delegating propagates the submitter's ambient scope to the goroutine that
// runs the task.
type Delegating struct{}

var delegating = &Delegating{}

// NewDelegating returns the shared delegating wrapper
func NewDelegating() *Delegating {
	return delegating
}

// Wrap captures the submitter's scope now and installs it around every call.
// The executing goroutine's own scope is restored when the call returns,
// fails or panics.
func (d *Delegating) Wrap(ctx context.Context, c Callable) Callable {
	captured := delegate.Current(ctx)
	return CallableFunc(func(runCtx context.Context) (any, error) {
		restore := delegate.Enter(runCtx, captured)
		defer restore()
		return c.Call(runCtx)
	})
}

// WrapRunnable is the fire-and-forget variant of Wrap
func (d *Delegating) WrapRunnable(ctx context.Context, r Runnable) Runnable {
	captured := delegate.Current(ctx)
	return RunnableFunc(func(runCtx context.Context) {
		restore := delegate.Enter(runCtx, captured)
		defer restore()
		r.Run(runCtx)
	})
}
