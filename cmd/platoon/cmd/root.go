// Package cmd holds the platoon command tree.
package cmd

import (
	"fmt"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	listenPort int
)

var rootCmd = &cobra.Command{
	Use:   "platoon",
	Short: "Truck platooning processes",
	Long: `platoon runs the processes of a truck convoy.

Each truck runs a coordination node ("platoon node") paired with a motion node
("platoon cruise"). The registry admits trucks one at a time and the monitor
shows the convoy.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().IntVar(&listenPort, "port", 0, "listen port, overrides server.port")

	rootCmd.AddCommand(nodeCmd, cruiseCmd, registryCmd, monitorCmd, statusCmd)
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the configuration and applies command line overrides.
// defaultPort is used when neither the flag nor the configuration set a port.
func loadConfig(cmd *cobra.Command, defaultPort int) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = listenPort
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
	return cfg, nil
}
