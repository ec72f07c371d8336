package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aryankumar/taskpool/internal/util"
)

func constant(v int) func(context.Context) (int, error) {
	return func(context.Context) (int, error) {
		return v, nil
	}
}

func TestInvokeAllExplosively_Empty(t *testing.T) {
	pool := newTestPool(t, DefaultOptions())

	futures, err := InvokeAllExplosively[int](context.Background(), pool, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if futures == nil || len(futures) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", futures)
	}
	if pool.TaskCount() != 0 {
		t.Errorf("TaskCount() = %d, want 0", pool.TaskCount())
	}
}

func TestInvokeAllExplosively_AllSucceed(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		n    int
	}{
		{
			name: "pooled",
			opts: Options{MinThreads: 2, MaxThreads: 4, IdleTimeout: time.Minute, QueueSize: 100},
			n:    25,
		},
		{
			name: "caller runs under saturation",
			opts: Options{MinThreads: 1, MaxThreads: 2, IdleTimeout: time.Minute, QueueSize: 2, Overflow: CallerRuns},
			n:    20,
		},
		{
			name: "synchronous",
			opts: Options{MaxThreads: 0},
			n:    10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := newTestPool(t, tt.opts)

			tasks := make([]func(context.Context) (int, error), tt.n)
			want := 0
			for i := range tasks {
				tasks[i] = constant(i)
				want += i
			}

			futures, err := InvokeAllExplosively(context.Background(), pool, tasks)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(futures) != tt.n {
				t.Fatalf("got %d futures, want %d", len(futures), tt.n)
			}

			seen := make(map[string]bool, tt.n)
			sum := 0
			for _, f := range futures {
				if !f.IsDone() || f.State() != Succeeded {
					t.Errorf("future %s in state %s, want succeeded", f.ID(), f.State())
				}
				if seen[f.ID()] {
					t.Errorf("future %s returned twice", f.ID())
				}
				seen[f.ID()] = true
				v, _ := f.Get(context.Background())
				sum += v
			}
			if sum != want {
				t.Errorf("sum of results = %d, want %d", sum, want)
			}
		})
	}
}

func TestInvokeAllExplosively_StopsAtFirstFailure(t *testing.T) {
	pool := newTestPool(t, Options{MinThreads: 3, MaxThreads: 3, IdleTimeout: time.Minute, QueueSize: 10})
	boom := errors.New("task 2 failed")

	firstDone := make(chan struct{})
	thirdInterrupted := make(chan struct{})

	tasks := []func(context.Context) (int, error){
		func(context.Context) (int, error) {
			defer close(firstDone)
			return 1, nil
		},
		func(ctx context.Context) (int, error) {
			select {
			case <-firstDone:
			case <-ctx.Done():
			}
			// let the first completion be observed before failing
			time.Sleep(20 * time.Millisecond)
			return 0, boom
		},
		func(ctx context.Context) (int, error) {
			<-ctx.Done()
			close(thirdInterrupted)
			return 3, ctx.Err()
		},
	}

	futures, err := InvokeAllExplosively(context.Background(), pool, tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(futures) != 2 {
		t.Fatalf("got %d futures, want 2", len(futures))
	}

	if v, err := futures[0].Get(context.Background()); err != nil || v != 1 {
		t.Errorf("first future = %d, %v; want 1, nil", v, err)
	}
	if _, err := futures[1].Get(context.Background()); !errors.Is(err, boom) {
		t.Errorf("second future error = %v, want %v", err, boom)
	}

	select {
	case <-thirdInterrupted:
	case <-time.After(5 * time.Second):
		t.Fatal("unobserved task was not interrupted")
	}
}

func TestInvokeAllExplosively_FailureIsLastEntry(t *testing.T) {
	pool := newTestPool(t, Options{MaxThreads: 0})
	boom := errors.New("boom")

	var ran []int
	tasks := make([]func(context.Context) (int, error), 5)
	for i := range tasks {
		tasks[i] = func(context.Context) (int, error) {
			ran = append(ran, i)
			if i == 2 {
				return 0, boom
			}
			return i, nil
		}
	}

	futures, err := InvokeAllExplosively(context.Background(), pool, tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// synchronous pools complete in submission order
	if len(futures) != 3 {
		t.Fatalf("got %d futures, want 3", len(futures))
	}
	last := futures[len(futures)-1]
	if _, err := last.Get(context.Background()); !errors.Is(err, boom) {
		t.Errorf("last future error = %v, want %v", err, boom)
	}
	if len(ran) != 5 {
		t.Errorf("synchronous submission runs every task, ran %v", ran)
	}
}

func TestInvokeAllExplosively_DiscardedTaskStopsCollection(t *testing.T) {
	pool := newTestPool(t, Options{MinThreads: 1, MaxThreads: 1, IdleTimeout: time.Minute, QueueSize: 0, Overflow: DiscardNewest})
	release := newLatch(t)

	tasks := []func(context.Context) (int, error){
		func(context.Context) (int, error) {
			<-release.ch
			return 1, nil
		},
		constant(2),
	}

	futures, err := InvokeAllExplosively(context.Background(), pool, tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(futures) != 1 {
		t.Fatalf("got %d futures, want only the discarded one", len(futures))
	}
	if _, err := futures[0].Get(context.Background()); !errors.Is(err, util.ErrDiscarded) {
		t.Errorf("future error = %v, want ErrDiscarded", err)
	}
}

func TestInvokeAllExplosively_Interrupted(t *testing.T) {
	pool := newTestPool(t, Options{MinThreads: 4, MaxThreads: 4, IdleTimeout: time.Minute, QueueSize: 10})

	var interrupted [3]chan struct{}
	tasks := make([]func(context.Context) (int, error), 3)
	for i := range tasks {
		interrupted[i] = make(chan struct{})
		tasks[i] = func(ctx context.Context) (int, error) {
			<-ctx.Done()
			close(interrupted[i])
			return 0, ctx.Err()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	futures, err := InvokeAllExplosively(ctx, pool, tasks)
	if !util.IsInterrupted(err) {
		t.Fatalf("error = %v, want interrupted", err)
	}
	if len(futures) != 0 {
		t.Errorf("no completion was observed, got %d futures", len(futures))
	}

	for i, ch := range interrupted {
		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			t.Fatalf("task %d was not interrupted", i)
		}
	}
}

func TestInvokeAllExplosively_SubmissionRefused(t *testing.T) {
	pool := newTestPool(t, DefaultOptions())
	pool.Shutdown()

	futures, err := InvokeAllExplosively(context.Background(), pool, []func(context.Context) (int, error){constant(1)})
	if !errors.Is(err, util.ErrShutdown) {
		t.Fatalf("error = %v, want ErrShutdown", err)
	}
	if futures != nil {
		t.Errorf("expected nil futures, got %v", futures)
	}
}

func TestInvokeAllExplosively_AbortCancelsSubmitted(t *testing.T) {
	pool := newTestPool(t, Options{MinThreads: 1, MaxThreads: 1, IdleTimeout: time.Minute, QueueSize: 0, Overflow: Abort})
	release := newLatch(t)

	var started atomic.Bool
	cause := make(chan error, 1)
	tasks := []func(context.Context) (int, error){
		func(ctx context.Context) (int, error) {
			started.Store(true)
			select {
			case <-ctx.Done():
				cause <- context.Cause(ctx)
			case <-release.ch:
				cause <- nil
			}
			return 1, nil
		},
		constant(2),
	}

	_, err := InvokeAllExplosively(context.Background(), pool, tasks)
	if !util.IsOverflow(err) {
		t.Fatalf("error = %v, want overflow", err)
	}
	if want := fmt.Sprintf("task %d of %d", 2, 2); !strings.Contains(err.Error(), want) {
		t.Errorf("error %q should mention %q", err, want)
	}

	pool.Shutdown()
	if ok, err := pool.AwaitTermination(context.Background(), 5*time.Second); err != nil || !ok {
		t.Fatalf("AwaitTermination() = %v, %v; want true, nil", ok, err)
	}

	// The first task is normally still pending when the second is refused,
	// so it is cancelled before a worker picks it up and never runs.
	if !started.Load() {
		if got := pool.CompletedTaskCount(); got != 0 {
			t.Errorf("CompletedTaskCount() = %d, want 0", got)
		}
		return
	}
	if got := <-cause; !errors.Is(got, util.ErrCancelled) {
		t.Errorf("first task cause = %v, want ErrCancelled", got)
	}
}
