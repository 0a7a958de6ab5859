package cmd

import (
	"os/signal"
	"syscall"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/client"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/handler"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultMonitorPort = 1112

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the convoy dashboard",
	Long: `Run the convoy dashboard.

The dashboard keeps the convoy in driving order with the speeds the motion nodes
report, and relays speed commands to the leader.`,
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, defaultMonitorPort)
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Logging).With(zap.String("role", "monitor"))
	defer logger.Sync()

	proc, err := newProcess(cfg, logger, nil)
	if err != nil {
		return err
	}

	svc := service.NewMonitorService(client.New(cfg.Peer.Timeout, proc.metrics, logger), logger)

	logger.Info("starting monitor", zap.String("address", proc.address))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return proc.run(ctx, handler.NewMonitorHandlers(svc, logger, cfg.Peer.Timeout), nil, nil, nil)
}
