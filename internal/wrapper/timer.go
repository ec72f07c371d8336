package wrapper

import (
	"context"
	"errors"
	"time"

	"github.com/aryankumar/taskpool/internal/util"
)

// Sink receives task instrumentation events
type Sink interface {
	// Mark increments the counter for event
	Mark(event string)
	// RecordDuration adds d to the timer for event
	RecordDuration(event string, d time.Duration)
}

// Event suffixes emitted by Timer, appended to "<pool>."
const (
	EventEnqueue        = "enqueue"
	EventDequeue        = "dequeue"
	EventException      = "exception"
	EventQueuedDuration = "queued-duration"
	EventTotalDuration  = "total-duration"
)

// Timer records enqueue/dequeue counts, queue wait, total latency and
// failures for every task of one pool.
type Timer struct {
	sink Sink

	enqueue   string
	dequeue   string
	exception string
	queued    string
	total     string

	now func() time.Time
}

// NewTimer creates a timing wrapper for pool. A nil sink makes the wrapper
// a passthrough.
func NewTimer(pool string, sink Sink) *Timer {
	base := pool + "."
	return &Timer{
		sink:      sink,
		enqueue:   base + EventEnqueue,
		dequeue:   base + EventDequeue,
		exception: base + EventException,
		queued:    base + EventQueuedDuration,
		total:     base + EventTotalDuration,
		now:       time.Now,
	}
}

// Wrap marks the enqueue immediately and times the call when it runs
func (t *Timer) Wrap(_ context.Context, c Callable) Callable {
	sink := t.sink
	if sink == nil {
		return c
	}

	enqueued := t.now()
	sink.Mark(t.enqueue)

	return CallableFunc(func(ctx context.Context) (v any, err error) {
		sink.RecordDuration(t.queued, t.now().Sub(enqueued))
		sink.Mark(t.dequeue)

		defer func() {
			if r := recover(); r != nil {
				sink.Mark(t.exception)
				sink.RecordDuration(t.total, t.now().Sub(enqueued))
				panic(r)
			}
			if err != nil && !cancellation(err) {
				sink.Mark(t.exception)
			}
			sink.RecordDuration(t.total, t.now().Sub(enqueued))
		}()

		return c.Call(ctx)
	})
}

// WrapRunnable times fire-and-forget work through Wrap
func (t *Timer) WrapRunnable(ctx context.Context, r Runnable) Runnable {
	return AdaptRunnable(ctx, r, t.Wrap)
}

// cancellation reports whether err only says the task was stopped from
// outside, which is not a task failure
func cancellation(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, util.ErrCancelled) ||
		errors.Is(err, util.ErrDiscarded)
}
