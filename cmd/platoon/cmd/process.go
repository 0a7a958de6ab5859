package cmd

import (
	"context"
	"time"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/config"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/health"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/metrics"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/server"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/util/workerpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// process is the HTTP side every long-running subcommand shares.
type process struct {
	cfg           *config.Config
	logger        *zap.Logger
	metrics       *metrics.Metrics
	health        *health.HealthCheck
	server        *server.Server
	metricsServer *metrics.MetricsServer
	address       string
}

// newProcess binds the listener. The returned address is the identity peers use.
func newProcess(cfg *config.Config, logger *zap.Logger, checks map[string]health.CheckFunc) (*process, error) {
	var m *metrics.Metrics
	var metricsServer *metrics.MetricsServer
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics(metrics.NewRegistry())
		if cfg.Metrics.Port != 0 {
			metricsServer = metrics.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, m, logger)
		}
	}

	hc := health.NewHealthCheck(checks, cfg.Platoon.ProbeInterval, logger)
	srv := server.NewServer(cfg, hc, m, logger)

	address, err := srv.Listen()
	if err != nil {
		return nil, err
	}

	return &process{
		cfg:           cfg,
		logger:        logger,
		metrics:       m,
		health:        hc,
		server:        srv,
		metricsServer: metricsServer,
		address:       address,
	}, nil
}

// notifier creates the worker pool that delivers fire-and-forget peer notifications.
func (p *process) notifier() *workerpool.Pool {
	cfg := &workerpool.Config{
		Name:        "notifications",
		MaxWorkers:  p.cfg.Workers.MaxWorkers,
		QueueSize:   p.cfg.Workers.QueueSize,
		TaskTimeout: p.cfg.Peer.Timeout,
		Logger:      p.logger,
	}
	if p.metrics != nil {
		cfg.Observer = p.metrics
	}
	return workerpool.New(cfg)
}

// stopNotifier stops the pool and logs the notifications it discards.
func stopNotifier(pool *workerpool.Pool, timeout time.Duration, logger *zap.Logger) {
	if stats := pool.Stats(); stats.Pending() {
		logger.Info("stopping with undelivered notifications",
			zap.Int("queued", stats.QueuedTasks),
			zap.Int("active", stats.ActiveWorkers),
			zap.Uint64("failed", stats.FailedTasks),
			zap.Uint64("rejected", stats.RejectedTasks))
	}
	if err := pool.Stop(timeout); err != nil {
		logger.Warn("notification pool did not stop in time", zap.Error(err))
	}
}

// run serves until ctx ends or fatal delivers an error. join runs once serving has started
// and a failure aborts the process; leave runs before the servers stop on a normal exit.
func (p *process) run(
	ctx context.Context,
	routes server.Routes,
	fatal <-chan error,
	join func(ctx context.Context) error,
	leave func(ctx context.Context),
) error {
	p.server.SetupRoutes(routes)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(p.server.Start)
	if p.metricsServer != nil {
		g.Go(p.metricsServer.Start)
	}
	g.Go(func() error {
		p.health.RunChecks(gctx)
		p.health.Start(gctx)
		return nil
	})

	g.Go(func() error {
		defer p.shutdown()

		if join != nil {
			if err := join(gctx); err != nil {
				return err
			}
		}

		select {
		case <-gctx.Done():
			if leave != nil {
				leaveCtx, cancel := context.WithTimeout(context.Background(), p.cfg.Server.ShutdownTimeout)
				leave(leaveCtx)
				cancel()
			}
			return nil
		case err := <-fatal:
			return err
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}
	p.logger.Info("shutdown complete")
	return nil
}

func (p *process) shutdown() {
	p.logger.Info("initiating graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := p.server.Shutdown(ctx); err != nil {
		p.logger.Error("failed to shutdown HTTP server", zap.Error(err))
	}
	if p.metricsServer != nil {
		if err := p.metricsServer.Shutdown(ctx); err != nil {
			p.logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}
}

// fatalHook returns a channel and a hook that delivers at most one error into it.
func fatalHook(logger *zap.Logger) (chan error, func(error)) {
	ch := make(chan error, 1)
	return ch, func(err error) {
		logger.Error("fatal local failure, stopping", zap.Error(err))
		select {
		case ch <- err:
		default:
		}
	}
}
