// Package metrics reports pool instrumentation to Prometheus.
//
// PrometheusSink receives the "<pool>.<event>" marks and durations emitted by
// the timing wrapper. PoolCollector exposes each pool's statistics as gauges
// and counters at scrape time.
package metrics

import (
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aryankumar/taskpool/internal/wrapper"
)

// DefaultNamespace prefixes every metric name
const DefaultNamespace = "taskpool"

// Noop discards every event
type Noop struct{}

// Mark implements wrapper.Sink
func (Noop) Mark(string) {}

// RecordDuration implements wrapper.Sink
func (Noop) RecordDuration(string, time.Duration) {}

var (
	_ wrapper.Sink = Noop{}
	_ wrapper.Sink = (*PrometheusSink)(nil)
)

// PrometheusSink counts marks and observes durations, labelled by pool and event
type PrometheusSink struct {
	events    *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

// NewPrometheusSink creates the sink's collectors and registers them with reg.
// Registering twice against the same registry reuses the existing collectors.
func NewPrometheusSink(reg prometheus.Registerer, namespace string) (*PrometheusSink, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	events := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_events_total",
			Help:      "Task lifecycle events by pool and event name.",
		},
		[]string{"pool", "event"},
	)
	durations := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Task queue wait and total latency by pool.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		},
		[]string{"pool", "event"},
	)

	var err error
	if events, err = register(reg, events); err != nil {
		return nil, err
	}
	if durations, err = register(reg, durations); err != nil {
		return nil, err
	}

	return &PrometheusSink{events: events, durations: durations}, nil
}

// register adds c to reg, returning the already registered collector if an
// identical one exists
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if reg == nil {
		return c, nil
	}
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Mark increments the counter for event
func (s *PrometheusSink) Mark(event string) {
	pool, name := SplitEvent(event)
	s.events.WithLabelValues(pool, name).Inc()
}

// RecordDuration observes d for event
func (s *PrometheusSink) RecordDuration(event string, d time.Duration) {
	pool, name := SplitEvent(event)
	s.durations.WithLabelValues(pool, name).Observe(d.Seconds())
}

// Events returns the counter vector, for tests and custom exposition
func (s *PrometheusSink) Events() *prometheus.CounterVec {
	return s.events
}

// Durations returns the histogram vector
func (s *PrometheusSink) Durations() *prometheus.HistogramVec {
	return s.durations
}

// SplitEvent splits "<pool>.<event>" at the last dot. Pool names may contain dots.
func SplitEvent(event string) (pool, name string) {
	i := strings.LastIndexByte(event, '.')
	if i < 0 {
		return "", event
	}
	return event[:i], event[i+1:]
}

// NewRegistry returns a registry preloaded with the Go runtime and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
