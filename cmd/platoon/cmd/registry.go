package cmd

import (
	"os/signal"
	"syscall"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/handler"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/health"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/service"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultRegistryPort = 1111

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Run the bootstrap registry",
	Long: `Run the bootstrap registry.

The registry admits one truck at a time and tells each joining truck who leads
the platoon. Its state lives in memory, Redis or PostgreSQL (registry.backend).`,
	RunE: runRegistry,
}

func runRegistry(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, defaultRegistryPort)
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Logging).With(zap.String("role", "registry"))
	defer logger.Sync()

	st, err := store.New(cfg.Registry, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := service.NewRegistryService(st, logger)

	proc, err := newProcess(cfg, logger, map[string]health.CheckFunc{"store": svc.Ping})
	if err != nil {
		return err
	}

	logger.Info("starting registry",
		zap.String("address", proc.address),
		zap.String("backend", cfg.Registry.Backend))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return proc.run(ctx, handler.NewRegistryHandlers(svc, logger, cfg.Peer.Timeout), nil, nil, nil)
}
