package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/client"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/handler"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/health"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/model"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Run the coordination node of a truck",
	Long: `Run the coordination node of a truck.

The node registers with the registry and waits for its motion node. Once the
motion node attaches, it joins the ring behind the leader and takes part in
failure detection, ring repair and leader election. On SIGINT or SIGTERM it
leaves the platoon gracefully.`,
	RunE: runNode,
}

func runNode(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, 0)
	if err != nil {
		return err
	}
	if err := cfg.ValidateTruck(); err != nil {
		return err
	}

	logger := initLogger(cfg.Logging).With(zap.String("role", "node"))
	defer logger.Sync()

	var svc *service.PlatoonService
	checks := map[string]health.CheckFunc{
		"ring": func(ctx context.Context) error {
			if svc == nil || !svc.Joined() {
				return fmt.Errorf("not part of a platoon yet")
			}
			return nil
		},
	}

	proc, err := newProcess(cfg, logger, checks)
	if err != nil {
		return err
	}

	pid := cfg.Node.ProcessID
	if pid == 0 {
		pid = int64(os.Getpid())
	}

	peers := client.New(cfg.Peer.Timeout, proc.metrics, logger)
	pool := proc.notifier()
	defer stopNotifier(pool, cfg.Server.ShutdownTimeout, logger)

	fatal, onFatal := fatalHook(logger)
	svc = service.NewPlatoonService(
		&service.PlatoonConfig{
			ProbeInterval: cfg.Platoon.ProbeInterval,
			PeerTimeout:   cfg.Peer.Timeout,
		},
		model.Identity{Address: proc.address, ProcessID: pid},
		service.PlatoonDeps{
			Platoons:  peers,
			Cruises:   peers,
			Registry:  client.NewRegistryClient(peers, cfg.Node.RegistryAddress),
			Dashboard: client.NewMonitorClient(peers, cfg.Node.MonitorAddress),
			Notifier:  pool,
			Metrics:   proc.metrics,
			OnFatal:   onFatal,
		},
		logger,
	)
	defer svc.Stop()

	logger.Info("starting coordination node",
		zap.String("address", proc.address),
		zap.Int64("pid", pid),
		zap.String("registry", cfg.Node.RegistryAddress))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	join := func(ctx context.Context) error {
		reg, err := svc.Register(ctx)
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "coordination node %s registered as member %d, start its motion node now\n",
			proc.address, reg.MemberID)
		return nil
	}

	leave := func(ctx context.Context) {
		if !svc.Joined() {
			return
		}
		if err := svc.Leave(ctx); err != nil {
			logger.Warn("graceful leave incomplete", zap.Error(err))
		}
	}

	return proc.run(ctx, handler.NewPlatoonHandlers(svc, logger, cfg.Peer.Timeout), fatal, join, leave)
}
