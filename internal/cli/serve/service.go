package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/aryankumar/taskpool/internal/admin"
	"github.com/aryankumar/taskpool/internal/config"
	"github.com/aryankumar/taskpool/internal/executor"
	"github.com/aryankumar/taskpool/internal/lifecycle"
	"github.com/aryankumar/taskpool/internal/metrics"
	"github.com/aryankumar/taskpool/internal/threadpool"
)

// DefaultPool is provided when the configuration names no pools
const DefaultPool = "default"

// Service wires the configured pools to a lifecycle, metrics and the admin server
type Service struct {
	Lifecycle *lifecycle.Lifecycle
	Registry  *threadpool.Registry
	Metrics   *prometheus.Registry
	Admin     *admin.Server

	logger *slog.Logger
}

// Build creates one provider per configured pool. Nothing is started until Run.
func Build(manager *config.Manager, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reg := metrics.NewRegistry()
	sink, err := metrics.NewPrometheusSink(reg, metrics.DefaultNamespace)
	if err != nil {
		return nil, fmt.Errorf("registering task metrics: %w", err)
	}
	collector := metrics.NewPoolCollector(metrics.DefaultNamespace)
	if err := reg.Register(collector); err != nil {
		return nil, fmt.Errorf("registering pool metrics: %w", err)
	}

	lc := lifecycle.New(logger)
	registry := threadpool.NewRegistry()

	names := manager.PoolNames()
	if len(names) == 0 {
		names = []string{DefaultPool}
	}
	for _, name := range names {
		_, err := registry.Provide(name, manager, lc,
			threadpool.WithLogger(logger),
			threadpool.WithSink(sink),
			threadpool.WithCollector(collector),
		)
		if err != nil {
			return nil, err
		}
	}

	return &Service{
		Lifecycle: lc,
		Registry:  registry,
		Metrics:   reg,
		Admin:     admin.NewServer(registry, reg, logger),
		logger:    logger,
	}, nil
}

// Run starts the pools, serves the admin API on ln until ctx is done, then
// stops the pools. A non-zero loadInterval submits a synthetic task to every
// pool on each tick.
func (s *Service) Run(ctx context.Context, ln net.Listener, loadInterval time.Duration) error {
	if err := s.Lifecycle.Start(ctx); err != nil {
		ln.Close()
		return errors.Join(err, s.Lifecycle.Stop(context.WithoutCancel(ctx)))
	}

	s.logger.Info("pools started", "pools", poolStats(s.Registry.Pools()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Admin.Serve(gctx, ln)
	})
	if loadInterval > 0 {
		g.Go(func() error {
			s.generateLoad(gctx, loadInterval)
			return nil
		})
	}

	runErr := g.Wait()
	stopErr := s.Lifecycle.Stop(context.WithoutCancel(ctx))
	return errors.Join(runErr, stopErr)
}

func (s *Service) generateLoad(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for _, pool := range s.Registry.Pools() {
			err := pool.Execute(ctx, func(ctx context.Context) {
				select {
				case <-ctx.Done():
				case <-time.After(interval / 2):
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Debug("synthetic task refused", "pool", pool.Name(), "error", err)
			}
		}
	}
}

// poolStats summarizes each pool for the startup log line
func poolStats(pools []*executor.Pool) []string {
	out := make([]string, 0, len(pools))
	for _, p := range pools {
		s := p.Stats()
		out = append(out, fmt.Sprintf("%s(core=%d max=%d queue=%d %s)",
			s.Name, s.CorePoolSize, s.MaxPoolSize, s.QueueRemainingCapacity, s.RejectedHandler))
	}
	return out
}
