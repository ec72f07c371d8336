package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aryankumar/taskpool/internal/util"
	"github.com/aryankumar/taskpool/internal/wrapper"
)

// State is the observable lifecycle state of a submitted task
type State int

const (
	// Pending tasks are queued and have not started
	Pending State = iota
	// Running tasks have been picked up by a worker or the caller
	Running
	// Succeeded tasks completed with a value
	Succeeded
	// Failed tasks completed with an error
	Failed
	// Cancelled tasks were cancelled or discarded before producing a result
	Cancelled
)

// String returns a lower-case name for the state
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition can happen
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed || s == Cancelled
}

// handle is the untyped state shared by a Future and the worker running it.
// Every transition happens under mu and done is closed exactly once.
type handle struct {
	id       string
	callable wrapper.Callable

	// detached handles have no Future; their failures are only logged
	detached bool

	mu        sync.Mutex
	state     State
	value     any
	err       error
	interrupt context.CancelCauseFunc
	listeners []func(*handle)
	submitted time.Time
	started   time.Time
	finished  time.Time

	done chan struct{}
}

func newHandle(c wrapper.Callable) *handle {
	return &handle{
		id:        uuid.NewString(),
		callable:  c,
		state:     Pending,
		submitted: time.Now(),
		done:      make(chan struct{}),
	}
}

// run executes the task on the calling goroutine. It reports false when the
// handle was already cancelled and the task never started.
func (h *handle) run(ctx context.Context) bool {
	h.mu.Lock()
	if h.state != Pending {
		h.mu.Unlock()
		return false
	}
	runCtx, interrupt := context.WithCancelCause(ctx)
	h.state = Running
	h.interrupt = interrupt
	h.started = time.Now()
	h.mu.Unlock()

	defer interrupt(nil)

	v, err := h.call(runCtx)
	h.complete(v, err)
	return true
}

func (h *handle) call(ctx context.Context) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v = nil
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return h.callable.Call(ctx)
}

// complete records the outcome unless the handle was cancelled meanwhile
func (h *handle) complete(v any, err error) {
	h.mu.Lock()
	if h.state != Running {
		h.mu.Unlock()
		return
	}
	h.finished = time.Now()
	if err != nil {
		h.state = Failed
		h.err = err
	} else {
		h.state = Succeeded
		h.value = v
	}
	h.finishLocked()
}

// cancel moves a pending or running handle to Cancelled. With interrupt set
// a running task also sees its context cancelled.
func (h *handle) cancel(interrupt bool) bool {
	return h.abandon(util.ErrCancelled, interrupt)
}

// discard drops a handle rejected by a discard policy
func (h *handle) discard() bool {
	return h.abandon(util.ErrDiscarded, false)
}

func (h *handle) abandon(reason error, interrupt bool) bool {
	h.mu.Lock()
	if h.state.Terminal() {
		h.mu.Unlock()
		return false
	}
	if h.state == Running && interrupt && h.interrupt != nil {
		h.interrupt(reason)
	}
	h.state = Cancelled
	h.err = reason
	h.finished = time.Now()
	h.finishLocked()
	return true
}

// finishLocked closes done, releases mu and notifies listeners
func (h *handle) finishLocked() {
	close(h.done)
	listeners := h.listeners
	h.listeners = nil
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(h)
	}
}

// whenDone calls fn once the handle reaches a terminal state. If it already
// has, fn runs immediately on the calling goroutine.
func (h *handle) whenDone(fn func(*handle)) {
	h.mu.Lock()
	if h.state.Terminal() {
		h.mu.Unlock()
		fn(h)
		return
	}
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

func (h *handle) snapshot() (State, any, error, time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var d time.Duration
	if !h.started.IsZero() && !h.finished.IsZero() {
		d = h.finished.Sub(h.started)
	}
	return h.state, h.value, h.err, d
}

// outcome converts a terminal handle into the value and error callers see
func (h *handle) outcome() (any, error) {
	state, v, err, _ := h.snapshot()
	switch state {
	case Succeeded:
		return v, nil
	case Failed:
		return nil, util.WrapTaskError(h.id, err)
	case Cancelled:
		return nil, fmt.Errorf("task %s: %w", h.id, err)
	default:
		return nil, fmt.Errorf("task %s is %s", h.id, state)
	}
}

// Future is the caller's view of a task submitted to a Pool
type Future[T any] struct {
	h *handle
}

// ID returns the unique identifier assigned at submission
func (f *Future[T]) ID() string {
	return f.h.id
}

// Done is closed once the task succeeded, failed or was cancelled
func (f *Future[T]) Done() <-chan struct{} {
	return f.h.done
}

// Get blocks until the task finishes or ctx is done.
//
// A task failure is returned as a *util.TaskError wrapping the task's own
// error. A cancelled task returns an error matching util.ErrCancelled (or
// util.ErrDiscarded when an overflow policy dropped it). If ctx ends first
// the error matches util.ErrInterrupted and the task keeps running.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	var zero T
	select {
	case <-f.h.done:
	case <-ctx.Done():
		return zero, fmt.Errorf("waiting for task %s: %w: %w", f.h.id, util.ErrInterrupted, context.Cause(ctx))
	}

	v, err := f.h.outcome()
	if err != nil {
		return zero, err
	}
	if typed, ok := v.(T); ok {
		return typed, nil
	}
	return zero, nil
}

// Cancel requests cancellation. A pending task will never run. A running
// task is only interrupted (its context cancelled) when interrupt is true
// and may still finish; its result is discarded either way. Cancel returns
// false if the task had already finished.
func (f *Future[T]) Cancel(interrupt bool) bool {
	return f.h.cancel(interrupt)
}

// State returns the current state
func (f *Future[T]) State() State {
	state, _, _, _ := f.h.snapshot()
	return state
}

// IsDone reports whether the task reached a terminal state
func (f *Future[T]) IsDone() bool {
	return f.State().Terminal()
}

// IsCancelled reports whether the task was cancelled or discarded
func (f *Future[T]) IsCancelled() bool {
	return f.State() == Cancelled
}

// Result returns a snapshot suitable for aggregation
func (f *Future[T]) Result() Result {
	state, _, _, d := f.h.snapshot()
	r := Result{
		TaskID:   f.h.id,
		State:    state,
		Duration: d,
	}
	if state.Terminal() {
		r.Data, r.Error = f.h.outcome()
	}
	return r
}
