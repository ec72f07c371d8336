package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aryankumar/taskpool/internal/executor"
)

// StatsSource is anything that can report pool statistics
type StatsSource interface {
	Stats() executor.Stats
}

type poolMetric struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	value     func(executor.Stats) float64
}

// PoolCollector exposes the statistics of a set of pools at scrape time
type PoolCollector struct {
	mu      sync.RWMutex
	sources []StatsSource
	metrics []poolMetric
}

// NewPoolCollector creates a collector for the given pools. Register it with
// a prometheus.Registerer; more pools can be added later with Add.
func NewPoolCollector(namespace string, sources ...StatsSource) *PoolCollector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	gauge := func(name, help string, value func(executor.Stats) float64) poolMetric {
		return poolMetric{
			desc:      prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", name), help, []string{"pool"}, nil),
			valueType: prometheus.GaugeValue,
			value:     value,
		}
	}
	counter := func(name, help string, value func(executor.Stats) float64) poolMetric {
		m := gauge(name, help, value)
		m.valueType = prometheus.CounterValue
		return m
	}

	return &PoolCollector{
		sources: append([]StatsSource(nil), sources...),
		metrics: []poolMetric{
			gauge("size", "Current number of workers.", func(s executor.Stats) float64 { return float64(s.PoolSize) }),
			gauge("core_size", "Number of workers kept alive while idle.", func(s executor.Stats) float64 { return float64(s.CorePoolSize) }),
			gauge("max_size", "Maximum number of workers.", func(s executor.Stats) float64 { return float64(s.MaxPoolSize) }),
			gauge("largest_size", "Highest number of workers ever running.", func(s executor.Stats) float64 { return float64(s.LargestPoolSize) }),
			gauge("active_tasks", "Tasks currently running.", func(s executor.Stats) float64 { return float64(s.ActiveCount) }),
			gauge("queue_size", "Tasks waiting in the queue.", func(s executor.Stats) float64 { return float64(s.QueueSize) }),
			gauge("queue_remaining_capacity", "Free queue slots.", func(s executor.Stats) float64 { return float64(s.QueueRemainingCapacity) }),
			gauge("idle_timeout_seconds", "Idle time after which excess workers exit.", func(s executor.Stats) float64 { return s.IdleTimeout.Seconds() }),
			gauge("shutdown", "Whether the pool stopped accepting tasks.", func(s executor.Stats) float64 { return boolToFloat(s.Shutdown) }),
			gauge("terminated", "Whether the pool finished all work after shutdown.", func(s executor.Stats) float64 { return boolToFloat(s.Terminated) }),
			counter("tasks_submitted_total", "Tasks accepted by the pool.", func(s executor.Stats) float64 { return float64(s.TaskCount) }),
			counter("tasks_completed_total", "Tasks that ran to completion.", func(s executor.Stats) float64 { return float64(s.CompletedTaskCount) }),
			counter("tasks_rejected_total", "Tasks refused or dropped by the overflow policy.", func(s executor.Stats) float64 { return float64(s.RejectedTaskCount) }),
		},
	}
}

// Add starts reporting another pool
func (c *PoolCollector) Add(src StatsSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = append(c.sources, src)
}

// Describe implements prometheus.Collector
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

// Collect implements prometheus.Collector
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	sources := append([]StatsSource(nil), c.sources...)
	c.mu.RUnlock()

	for _, src := range sources {
		stats := src.Stats()
		for _, m := range c.metrics {
			ch <- prometheus.MustNewConstMetric(m.desc, m.valueType, m.value(stats), stats.Name)
		}
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
