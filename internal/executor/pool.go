package executor

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aryankumar/taskpool/internal/delegate"
	"github.com/aryankumar/taskpool/internal/util"
	"github.com/aryankumar/taskpool/internal/wrapper"
)

const (
	stateRunning int32 = iota
	stateShutdown
	stateTerminated
)

// Pool runs submitted tasks on a bounded, elastic set of worker goroutines.
//
// Admission follows the usual core/queue/max order: an idle worker takes the
// task directly, otherwise a new worker is started while fewer than the core
// size exist, otherwise the task is queued, otherwise a worker is started up
// to the maximum size, otherwise the overflow policy decides. Workers above
// the core size exit after sitting idle for the idle timeout.
//
// A Pool built with MaxThreads 0 has no workers at all; every task runs on
// the submitting goroutine with the same wrapping and Future semantics.
type Pool struct {
	name     string
	logger   *slog.Logger
	wrapper  *wrapper.Combined
	baseCtx  context.Context
	policy   OverflowPolicy
	queueCap int
	sync     bool

	// mu guards queue, idle, workers, inline and every state transition
	mu      sync.Mutex
	queue   *list.List
	idle    []*worker
	workers map[*worker]struct{}
	inline  int

	state      atomic.Int32
	terminated chan struct{}

	// tunables, written under mu and readable without it
	coreSize    atomic.Int64
	maxSize     atomic.Int64
	idleTimeout atomic.Int64

	// statistics mirrors, readable without mu
	poolSize  atomic.Int64
	largest   atomic.Int64
	active    atomic.Int64
	queued    atomic.Int64
	submitted atomic.Int64
	completed atomic.Int64
	rejected  atomic.Int64
}

// worker is a single pool goroutine. wake carries the next task handed to it
// while idle; a nil handle asks it to re-check the pool state.
type worker struct {
	wake chan *handle
}

// New validates opts and creates a pool. Workers are started lazily as
// tasks arrive.
func New(name string, opts Options, logger *slog.Logger, popts ...Option) (*Pool, error) {
	if name == "" {
		return nil, util.NewValidationError("name", name, "pool name must not be empty")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("creating pool %s: %w", name, err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := defaultSettings()
	for _, o := range popts {
		o(&s)
	}

	chain := make([]wrapper.Wrapper, 0, len(s.wrappers)+2)
	if s.delegation {
		chain = append(chain, wrapper.NewDelegating())
	}
	if s.sink != nil {
		chain = append(chain, wrapper.NewTimer(name, s.sink))
	}
	chain = append(chain, s.wrappers...)

	p := &Pool{
		name:       name,
		logger:     logger.With("pool", name),
		wrapper:    wrapper.Combine(chain...),
		baseCtx:    s.baseCtx,
		policy:     opts.Overflow,
		queueCap:   opts.QueueSize,
		sync:       opts.Synchronous(),
		queue:      list.New(),
		workers:    make(map[*worker]struct{}),
		terminated: make(chan struct{}),
	}
	p.coreSize.Store(int64(opts.MinThreads))
	p.maxSize.Store(int64(opts.MaxThreads))
	p.idleTimeout.Store(int64(opts.IdleTimeout))

	p.logger.Debug("pool created",
		"min_threads", opts.MinThreads,
		"max_threads", opts.MaxThreads,
		"queue_size", opts.QueueSize,
		"timeout", opts.IdleTimeout,
		"policy", opts.Overflow.String(),
		"synchronous", p.sync)

	return p, nil
}

// Name returns the pool name
func (p *Pool) Name() string {
	return p.name
}

// String implements Service and fmt.Stringer
func (p *Pool) String() string {
	return p.name
}

// Wrapper returns the wrapper chain applied to every submission
func (p *Pool) Wrapper() wrapper.Wrapper {
	return p.wrapper
}

// Submit wraps task with the pool's wrapper chain and schedules it.
//
// The error is non-nil only when the task was not accepted: the pool is shut
// down (util.ErrShutdown) or the abort policy rejected it (util.ErrOverflow).
// Tasks dropped by a discard policy are accepted and their Future reports
// util.ErrDiscarded.
func Submit[T any](ctx context.Context, p *Pool, task func(context.Context) (T, error)) (*Future[T], error) {
	if task == nil {
		return nil, fmt.Errorf("submitting to %s: task must not be nil", p.name)
	}

	callable := p.wrapper.Wrap(ctx, wrapper.CallableFunc(func(ctx context.Context) (any, error) {
		return task(ctx)
	}))

	h := newHandle(callable)
	if err := p.execute(ctx, h); err != nil {
		return nil, err
	}
	return &Future[T]{h: h}, nil
}

// Execute schedules fire-and-forget work. Failures and panics are logged.
func (p *Pool) Execute(ctx context.Context, fn func(context.Context)) error {
	if fn == nil {
		return fmt.Errorf("executing on %s: task must not be nil", p.name)
	}

	r := p.wrapper.WrapRunnable(ctx, wrapper.RunnableFunc(fn))
	h := newHandle(wrapper.CallableFunc(func(ctx context.Context) (any, error) {
		r.Run(ctx)
		return nil, nil
	}))
	h.detached = true
	return p.execute(ctx, h)
}

// execute admits h or reports why it could not
func (p *Pool) execute(ctx context.Context, h *handle) error {
	if p.sync {
		return p.runOnCaller(ctx, h)
	}

	p.mu.Lock()
	for {
		if p.state.Load() != stateRunning {
			p.mu.Unlock()
			p.rejected.Add(1)
			return fmt.Errorf("submitting task %s to %s: %w", h.id, p.name, util.ErrShutdown)
		}

		if w := p.popIdleLocked(); w != nil {
			p.submitted.Add(1)
			w.wake <- h
			p.mu.Unlock()
			return nil
		}

		workers := int64(len(p.workers))
		if workers < p.coreSize.Load() {
			p.submitted.Add(1)
			p.spawnLocked(h)
			p.mu.Unlock()
			return nil
		}

		if p.queueCap > 0 && p.queue.Len() < p.queueCap {
			p.submitted.Add(1)
			p.queue.PushBack(h)
			p.queued.Store(int64(p.queue.Len()))
			if len(p.workers) == 0 {
				p.spawnLocked(nil)
			}
			p.mu.Unlock()
			return nil
		}

		if workers < p.maxSize.Load() {
			p.submitted.Add(1)
			p.spawnLocked(h)
			p.mu.Unlock()
			return nil
		}

		switch p.policy {
		case CallerRuns:
			p.mu.Unlock()
			p.logger.Debug("pool saturated, running task on caller", "task_id", h.id)
			return p.runOnCaller(ctx, h)

		case Abort:
			depth, threads := p.queue.Len(), len(p.workers)
			p.mu.Unlock()
			p.rejected.Add(1)
			p.logger.Warn("task rejected", "task_id", h.id, "policy", p.policy.String())
			return fmt.Errorf("pool %s rejected task %s (queue %d/%d, threads %d/%d): %w",
				p.name, h.id, depth, p.queueCap, threads, p.maxSize.Load(), util.ErrOverflow)

		case DiscardOldest:
			front := p.queue.Front()
			if front == nil {
				p.mu.Unlock()
				p.dropped(h)
				return nil
			}
			oldest := p.queue.Remove(front).(*handle)
			p.queued.Store(int64(p.queue.Len()))
			p.mu.Unlock()
			p.dropped(oldest)
			p.mu.Lock()

		default:
			p.mu.Unlock()
			p.dropped(h)
			return nil
		}
	}
}

func (p *Pool) dropped(h *handle) {
	p.rejected.Add(1)
	if h.discard() {
		p.logger.Debug("task discarded", "task_id", h.id, "policy", p.policy.String())
	}
}

// runOnCaller runs h on the submitting goroutine and keeps the pool from
// terminating while it does
func (p *Pool) runOnCaller(ctx context.Context, h *handle) error {
	p.mu.Lock()
	if p.state.Load() != stateRunning {
		p.mu.Unlock()
		if p.sync {
			p.rejected.Add(1)
			return fmt.Errorf("submitting task %s to %s: %w", h.id, p.name, util.ErrShutdown)
		}
		// saturated and shut down concurrently: drop like a rejected task
		p.dropped(h)
		return nil
	}
	p.inline++
	p.submitted.Add(1)
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inline--
		p.tryTerminateLocked()
		p.mu.Unlock()
	}()

	if ctx == nil {
		ctx = p.baseCtx
	}
	p.runTask(ctx, h)
	return nil
}

func (p *Pool) runTask(ctx context.Context, h *handle) {
	p.active.Add(1)
	ran := h.run(ctx)
	p.active.Add(-1)
	if !ran {
		return
	}
	p.completed.Add(1)

	if state, _, err, d := h.snapshot(); state == Failed {
		if h.detached {
			p.logger.Warn("task failed", "task_id", h.id, "error", err, "duration", d)
		} else {
			p.logger.Debug("task failed", "task_id", h.id, "error", err, "duration", d)
		}
	}
}

// spawnLocked starts a worker whose first task is first (may be nil)
func (p *Pool) spawnLocked(first *handle) {
	w := &worker{wake: make(chan *handle, 1)}
	p.workers[w] = struct{}{}

	size := int64(len(p.workers))
	p.poolSize.Store(size)
	if size > p.largest.Load() {
		p.largest.Store(size)
	}

	go p.runWorker(w, first)
}

func (p *Pool) runWorker(w *worker, first *handle) {
	ctx := delegate.WithHolder(p.baseCtx)

	h := first
	for {
		if h != nil {
			p.runTask(ctx, h)
		}
		next, ok := p.nextTask(w)
		if !ok {
			return
		}
		h = next
	}
}

// nextTask blocks until w has work or should exit. On exit the worker has
// already been removed from the pool.
func (p *Pool) nextTask(w *worker) (*handle, bool) {
	p.mu.Lock()
	for {
		workers := int64(len(p.workers))
		if workers > p.maxSize.Load() || (p.state.Load() != stateRunning && p.queue.Len() == 0) {
			p.exitLocked(w)
			p.mu.Unlock()
			return nil, false
		}

		if front := p.queue.Front(); front != nil {
			h := p.queue.Remove(front).(*handle)
			p.queued.Store(int64(p.queue.Len()))
			p.mu.Unlock()
			return h, true
		}

		timed := workers > p.coreSize.Load()
		timeout := time.Duration(p.idleTimeout.Load())
		p.idle = append(p.idle, w)
		p.mu.Unlock()

		var h *handle
		if timed {
			timer := time.NewTimer(timeout)
			select {
			case h = <-w.wake:
				timer.Stop()
			case <-timer.C:
				p.mu.Lock()
				if p.removeIdleLocked(w) {
					if int64(len(p.workers)) > p.coreSize.Load() {
						p.logger.Debug("idle worker exiting", "timeout", timeout)
						p.exitLocked(w)
						p.mu.Unlock()
						return nil, false
					}
					continue
				}
				// a submitter claimed this worker before the timer fired
				p.mu.Unlock()
				h = <-w.wake
			}
		} else {
			h = <-w.wake
		}

		if h != nil {
			return h, true
		}
		p.mu.Lock()
	}
}

func (p *Pool) exitLocked(w *worker) {
	p.removeIdleLocked(w)
	delete(p.workers, w)
	p.poolSize.Store(int64(len(p.workers)))
	p.tryTerminateLocked()
}

func (p *Pool) popIdleLocked() *worker {
	n := len(p.idle)
	if n == 0 {
		return nil
	}
	w := p.idle[n-1]
	p.idle[n-1] = nil
	p.idle = p.idle[:n-1]
	return w
}

func (p *Pool) removeIdleLocked(w *worker) bool {
	for i, candidate := range p.idle {
		if candidate == w {
			p.idle = append(p.idle[:i], p.idle[i+1:]...)
			return true
		}
	}
	return false
}

// wakeIdleLocked makes every idle worker re-check the pool state
func (p *Pool) wakeIdleLocked() {
	for w := p.popIdleLocked(); w != nil; w = p.popIdleLocked() {
		w.wake <- nil
	}
}

// tryTerminateLocked moves a drained, shut down pool to terminated
func (p *Pool) tryTerminateLocked() {
	if p.state.Load() != stateShutdown {
		return
	}
	if len(p.workers) > 0 || p.queue.Len() > 0 || p.inline > 0 {
		return
	}
	// Nothing of the pool may touch the logger once termination is observable.
	p.logger.Info("pool terminated",
		"completed", p.completed.Load(),
		"largest_pool_size", p.largest.Load())
	p.state.Store(stateTerminated)
	close(p.terminated)
}

// Shutdown stops accepting new tasks. Queued and running tasks still finish.
// It does not wait; use AwaitTermination for that.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Load() == stateRunning {
		p.state.Store(stateShutdown)
		p.logger.Info("pool shutting down",
			"queued", p.queue.Len(),
			"workers", len(p.workers))
	}
	p.wakeIdleLocked()
	p.tryTerminateLocked()
}

// AwaitTermination blocks until the pool terminated, d elapsed or ctx is
// done. It reports whether the pool terminated; a done ctx yields an error
// matching util.ErrInterrupted.
func (p *Pool) AwaitTermination(ctx context.Context, d time.Duration) (bool, error) {
	select {
	case <-p.terminated:
		return true, nil
	default:
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-p.terminated:
		return true, nil
	case <-timer.C:
		return p.IsTerminated(), nil
	case <-ctx.Done():
		return false, fmt.Errorf("awaiting termination of %s: %w: %w", p.name, util.ErrInterrupted, context.Cause(ctx))
	}
}

// Terminated is closed when the pool has terminated
func (p *Pool) Terminated() <-chan struct{} {
	return p.terminated
}

// IsShutdown reports whether Shutdown has been called
func (p *Pool) IsShutdown() bool {
	return p.state.Load() != stateRunning
}

// IsTerminating reports whether the pool is shut down but still draining
func (p *Pool) IsTerminating() bool {
	return p.state.Load() == stateShutdown
}

// IsTerminated reports whether every task finished after Shutdown
func (p *Pool) IsTerminated() bool {
	return p.state.Load() == stateTerminated
}

// IsSynchronous reports whether tasks run on the submitting goroutine
func (p *Pool) IsSynchronous() bool {
	return p.sync
}

// SetCorePoolSize changes the number of workers kept alive while idle.
// Growing starts workers for already queued tasks.
func (p *Pool) SetCorePoolSize(n int) error {
	if p.sync {
		return p.unsupported("core pool size")
	}
	if n < 0 {
		return util.NewValidationError("min-threads", n, "must be >= 0")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if int64(n) > p.maxSize.Load() {
		return util.NewValidationError("min-threads", n, "must not exceed max-threads")
	}
	p.coreSize.Store(int64(n))

	if p.state.Load() == stateRunning {
		missing := min(n-len(p.workers), p.queue.Len())
		for range missing {
			p.spawnLocked(nil)
		}
	}
	p.wakeIdleLocked()
	p.logger.Info("core pool size changed", "min_threads", n)
	return nil
}

// SetMaxPoolSize changes the worker cap. Excess workers exit once idle.
func (p *Pool) SetMaxPoolSize(n int) error {
	if p.sync {
		return p.unsupported("maximum pool size")
	}
	if n < 1 {
		return util.NewValidationError("max-threads", n, "must be >= 1 on a running pool")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if int64(n) < p.coreSize.Load() {
		return util.NewValidationError("max-threads", n, "must not be below min-threads")
	}
	p.maxSize.Store(int64(n))
	p.wakeIdleLocked()
	p.logger.Info("maximum pool size changed", "max_threads", n)
	return nil
}

// SetIdleTimeout changes how long excess workers wait for work
func (p *Pool) SetIdleTimeout(d time.Duration) error {
	if p.sync {
		return p.unsupported("idle timeout")
	}
	if d <= 0 {
		return util.NewValidationError("timeout", d, "must be positive")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.idleTimeout.Store(int64(d))
	p.wakeIdleLocked()
	p.logger.Info("idle timeout changed", "timeout", d)
	return nil
}

// SetIdleTimeoutString parses s as a Go duration ("30m", "1h30m") and applies it
func (p *Pool) SetIdleTimeoutString(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return util.NewValidationError("timeout", s, err.Error())
	}
	return p.SetIdleTimeout(d)
}

func (p *Pool) unsupported(what string) error {
	return fmt.Errorf("pool %s runs tasks synchronously; %s cannot be changed: %w", p.name, what, util.ErrInvalidConfig)
}
