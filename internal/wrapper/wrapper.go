// Package wrapper layers cross-cutting behavior around tasks before they are
// handed to a pool.
//
// A Wrapper transforms a Callable (value-returning task) or a Runnable
// (fire-and-forget task) into another one with extra side effects. Wrapping
// never alters the wrapped task's return value, error or cancellation
// behavior. Wrappers are combined with Combine and applied exactly once each,
// in the order given; the first wrapper ends up innermost.
package wrapper

import (
	"context"
)

// Callable is a unit of work that produces a value
type Callable interface {
	Call(ctx context.Context) (any, error)
}

// CallableFunc adapts a function to Callable
type CallableFunc func(ctx context.Context) (any, error)

// Call implements Callable
func (f CallableFunc) Call(ctx context.Context) (any, error) {
	return f(ctx)
}

// Runnable is a unit of work run for its side effects only
type Runnable interface {
	Run(ctx context.Context)
}

// RunnableFunc adapts a function to Runnable
type RunnableFunc func(ctx context.Context)

// Run implements Runnable
func (f RunnableFunc) Run(ctx context.Context) {
	f(ctx)
}

// Wrapper decorates tasks at submission time.
//
// ctx is the submitter's context: anything a wrapper needs to capture from
// the submitting goroutine must be read from it inside Wrap, not later when
// the task runs. Implementations must be comparable (pointer receivers) so
// that Combine can de-duplicate them.
type Wrapper interface {
	Wrap(ctx context.Context, c Callable) Callable
	WrapRunnable(ctx context.Context, r Runnable) Runnable
}

// AdaptRunnable wraps r through wrap by converting it into a Callable.
// When wrap hands the conversion back untouched, r itself is returned so the
// passthrough case costs no extra indirection at run time.
func AdaptRunnable(ctx context.Context, r Runnable, wrap func(context.Context, Callable) Callable) Runnable {
	unwrapped := &runnableCallable{runnable: r}
	wrapped := wrap(ctx, unwrapped)
	if rc, ok := wrapped.(*runnableCallable); ok && rc == unwrapped {
		return r
	}
	return &callableRunnable{callable: wrapped}
}

// runnableCallable presents a Runnable as a Callable returning nil
type runnableCallable struct {
	runnable Runnable
}

func (c *runnableCallable) Call(ctx context.Context) (any, error) {
	c.runnable.Run(ctx)
	return nil, nil
}

// callableRunnable runs a Callable and drops its result
type callableRunnable struct {
	callable Callable
}

func (r *callableRunnable) Run(ctx context.Context) {
	_, _ = r.callable.Call(ctx)
}

// Combined applies an ordered, de-duplicated set of wrappers
type Combined struct {
	wrappers []Wrapper
}

// Combine builds a single Wrapper out of ws. Nil entries and repeated
// wrappers are dropped; the first occurrence keeps its position.
func Combine(ws ...Wrapper) *Combined {
	seen := make(map[Wrapper]struct{}, len(ws))
	wrappers := make([]Wrapper, 0, len(ws))
	for _, w := range ws {
		if w == nil {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		wrappers = append(wrappers, w)
	}
	return &Combined{wrappers: wrappers}
}

// Len returns the number of distinct wrappers
func (c *Combined) Len() int {
	return len(c.wrappers)
}

// Wrap feeds c through every wrapper in order
func (c *Combined) Wrap(ctx context.Context, callable Callable) Callable {
	for _, w := range c.wrappers {
		callable = w.Wrap(ctx, callable)
	}
	return callable
}

// WrapRunnable converts r once, runs the conversion through the chain and
// returns r unchanged if no wrapper replaced it.
func (c *Combined) WrapRunnable(ctx context.Context, r Runnable) Runnable {
	return AdaptRunnable(ctx, r, c.Wrap)
}
