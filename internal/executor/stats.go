package executor

import "time"

// Stats is a point-in-time view of a pool for management tooling.
// Fields are read independently without locking, so a snapshot taken while
// tasks are moving may be slightly inconsistent across fields.
type Stats struct {
	Name string `json:"name" yaml:"name"`

	Shutdown    bool `json:"shutdown" yaml:"shutdown"`
	Terminating bool `json:"terminating" yaml:"terminating"`
	Terminated  bool `json:"terminated" yaml:"terminated"`
	Synchronous bool `json:"synchronous" yaml:"synchronous"`

	RejectedHandler string        `json:"rejected_handler" yaml:"rejected-handler"`
	CorePoolSize    int           `json:"core_pool_size" yaml:"core-pool-size"`
	MaxPoolSize     int           `json:"max_pool_size" yaml:"max-pool-size"`
	IdleTimeout     time.Duration `json:"idle_timeout" yaml:"idle-timeout"`

	QueueSize              int `json:"queue_size" yaml:"queue-size"`
	QueueRemainingCapacity int `json:"queue_remaining_capacity" yaml:"queue-remaining-capacity"`

	PoolSize        int `json:"pool_size" yaml:"pool-size"`
	ActiveCount     int `json:"active_count" yaml:"active-count"`
	LargestPoolSize int `json:"largest_pool_size" yaml:"largest-pool-size"`

	TaskCount          int64 `json:"task_count" yaml:"task-count"`
	CompletedTaskCount int64 `json:"completed_task_count" yaml:"completed-task-count"`
	RejectedTaskCount  int64 `json:"rejected_task_count" yaml:"rejected-task-count"`
}

// Stats returns a snapshot of every statistic
func (p *Pool) Stats() Stats {
	return Stats{
		Name:                   p.name,
		Shutdown:               p.IsShutdown(),
		Terminating:            p.IsTerminating(),
		Terminated:             p.IsTerminated(),
		Synchronous:            p.sync,
		RejectedHandler:        p.RejectedHandler(),
		CorePoolSize:           p.CorePoolSize(),
		MaxPoolSize:            p.MaxPoolSize(),
		IdleTimeout:            p.IdleTimeout(),
		QueueSize:              p.QueueSize(),
		QueueRemainingCapacity: p.QueueRemainingCapacity(),
		PoolSize:               p.PoolSize(),
		ActiveCount:            p.ActiveCount(),
		LargestPoolSize:        p.LargestPoolSize(),
		TaskCount:              p.TaskCount(),
		CompletedTaskCount:     p.CompletedTaskCount(),
		RejectedTaskCount:      p.RejectedTaskCount(),
	}
}

// RejectedHandler returns the configured overflow policy name
func (p *Pool) RejectedHandler() string {
	return p.policy.String()
}

// CorePoolSize returns the number of workers kept while idle (0 when synchronous)
func (p *Pool) CorePoolSize() int {
	if p.sync {
		return 0
	}
	return int(p.coreSize.Load())
}

// MaxPoolSize returns the worker cap (0 when synchronous)
func (p *Pool) MaxPoolSize() int {
	return int(p.maxSize.Load())
}

// IdleTimeout returns how long excess workers wait for work
func (p *Pool) IdleTimeout() time.Duration {
	return time.Duration(p.idleTimeout.Load())
}

// IdleTimeoutString returns IdleTimeout formatted as a Go duration
func (p *Pool) IdleTimeoutString() string {
	return p.IdleTimeout().String()
}

// QueueSize returns the number of queued tasks, including cancelled tasks not
// yet dequeued
func (p *Pool) QueueSize() int {
	return int(p.queued.Load())
}

// QueueRemainingCapacity returns how many more tasks the queue accepts
func (p *Pool) QueueRemainingCapacity() int {
	if p.sync {
		return 0
	}
	return max(p.queueCap-p.QueueSize(), 0)
}

// PoolSize returns the current number of workers
func (p *Pool) PoolSize() int {
	return int(p.poolSize.Load())
}

// ActiveCount returns the number of tasks currently running, including
// those running on submitters under the caller-runs policy
func (p *Pool) ActiveCount() int {
	return int(p.active.Load())
}

// LargestPoolSize returns the highest worker count ever reached
func (p *Pool) LargestPoolSize() int {
	return int(p.largest.Load())
}

// TaskCount returns the cumulative number of accepted tasks
func (p *Pool) TaskCount() int64 {
	return p.submitted.Load()
}

// CompletedTaskCount returns the cumulative number of tasks that ran to
// completion, successfully or not
func (p *Pool) CompletedTaskCount() int64 {
	return p.completed.Load()
}

// RejectedTaskCount returns the cumulative number of tasks refused after
// shutdown or dropped by an overflow policy
func (p *Pool) RejectedTaskCount() int64 {
	return p.rejected.Load()
}
