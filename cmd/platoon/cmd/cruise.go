package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/client"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/handler"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/service"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cruiseCmd = &cobra.Command{
	Use:   "cruise",
	Short: "Run the motion node of a truck",
	Long: `Run the motion node of a truck.

The motion node registers with the registry, which pairs it with the coordination
node that is waiting for it, then attaches to that node. The truck joins the
platoon at the leader's speed. The process exits when its coordination node asks
it to or can no longer be reached.`,
	RunE: runCruise,
}

func runCruise(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, 0)
	if err != nil {
		return err
	}
	if err := cfg.ValidateTruck(); err != nil {
		return err
	}

	logger := initLogger(cfg.Logging).With(zap.String("role", "cruise"))
	defer logger.Sync()

	proc, err := newProcess(cfg, logger, nil)
	if err != nil {
		return err
	}

	var publisher telemetry.Publisher = telemetry.NopPublisher{}
	if cfg.Telemetry.Enabled {
		mqtt, err := telemetry.NewMQTTPublisher(cfg.Telemetry, proc.address, logger)
		if err != nil {
			logger.Warn("speed telemetry disabled", zap.Error(err))
		} else {
			publisher = mqtt
		}
	}
	defer publisher.Close()

	peers := client.New(cfg.Peer.Timeout, proc.metrics, logger)
	pool := proc.notifier()
	defer stopNotifier(pool, cfg.Server.ShutdownTimeout, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fatal, onFatal := fatalHook(logger)
	svc := service.NewCruiseService(
		&service.CruiseConfig{CruiseConfig: cfg.Cruise, PeerTimeout: cfg.Peer.Timeout},
		proc.address,
		service.CruiseDeps{
			Platoons:   peers,
			Cruises:    peers,
			Registry:   client.NewRegistryClient(peers, cfg.Node.RegistryAddress),
			Dashboard:  client.NewMonitorClient(peers, cfg.Node.MonitorAddress),
			Telemetry:  publisher,
			Notifier:   pool,
			Metrics:    proc.metrics,
			OnFatal:    onFatal,
			OnShutdown: stop,
		},
		logger,
	)
	defer svc.Stop()

	logger.Info("starting motion node",
		zap.String("address", proc.address),
		zap.String("registry", cfg.Node.RegistryAddress))

	join := func(ctx context.Context) error {
		reg, err := svc.Register(ctx)
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}
		if err := svc.Attach(ctx); err != nil {
			return fmt.Errorf("joining the platoon through %s failed: %w", reg.PlatoonAddress, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "motion node %s attached to %s at %d km/h\n",
			proc.address, reg.PlatoonAddress, svc.Speed())
		return nil
	}

	return proc.run(ctx, handler.NewCruiseHandlers(svc, logger, cfg.Peer.Timeout), fatal, join, nil)
}
