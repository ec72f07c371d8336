package executor

import (
	"context"
	"fmt"

	"github.com/aryankumar/taskpool/internal/util"
)

// InvokeAllExplosively submits every task to p at once and collects the
// futures in completion order, stopping at the first one that did not
// succeed.
//
// The failing future is the last element of the returned slice, so callers
// can inspect the failure with Get. Every future not yet observed when the
// collection stops is cancelled with interrupt; the sweep does not wait for
// running tasks to notice.
//
// If ctx is done while waiting, the remaining futures are cancelled the same
// way and the futures observed so far are returned together with an error
// matching util.ErrInterrupted. If a submission is refused, the futures
// already submitted are cancelled and the submission error is returned.
func InvokeAllExplosively[T any](ctx context.Context, p *Pool, tasks []func(context.Context) (T, error)) ([]*Future[T], error) {
	if len(tasks) == 0 {
		return []*Future[T]{}, nil
	}

	completions := make(chan *Future[T], len(tasks))
	inFlight := make(map[*Future[T]]struct{}, len(tasks))

	for i, task := range tasks {
		f, err := Submit(ctx, p, task)
		if err != nil {
			cancelInFlight(inFlight)
			return nil, fmt.Errorf("submitting task %d of %d: %w", i+1, len(tasks), err)
		}
		inFlight[f] = struct{}{}
		f.h.whenDone(func(*handle) {
			completions <- f
		})
	}

	results := make([]*Future[T], 0, len(tasks))
	var interrupted error

collect:
	for len(inFlight) > 0 {
		select {
		case <-ctx.Done():
			interrupted = fmt.Errorf("collecting %d of %d tasks: %w: %w",
				len(inFlight), len(tasks), util.ErrInterrupted, context.Cause(ctx))
			break collect

		case f := <-completions:
			delete(inFlight, f)
			results = append(results, f)
			if f.State() != Succeeded {
				break collect
			}
		}
	}

	if n := cancelInFlight(inFlight); n > 0 {
		p.logger.Debug("cancelled unfinished batch tasks", "cancelled", n, "observed", len(results))
	}

	if interrupted != nil {
		return results, interrupted
	}
	return results, nil
}

func cancelInFlight[T any](inFlight map[*Future[T]]struct{}) int {
	n := 0
	for f := range inFlight {
		if f.Cancel(true) {
			n++
		}
	}
	return n
}
