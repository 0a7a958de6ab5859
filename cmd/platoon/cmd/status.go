package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/api"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/client"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	statusAddress string
	statusTimeout time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the state of a running process as YAML",
	Example: `  platoon status --addr localhost:40211
  platoon status --addr localhost:1111`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddress, "addr", "", "host:port of the process to inspect")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 5*time.Second, "request timeout")
	statusCmd.MarkFlagRequired("addr")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
	defer cancel()

	var status interface{}
	if err := client.New(statusTimeout, nil, nil).Status(ctx, statusAddress, api.PathStatus, &status); err != nil {
		return fmt.Errorf("failed to read status of %s: %w", statusAddress, err)
	}

	out, err := renderStatus(status)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

// renderStatus turns a decoded JSON status document into YAML.
func renderStatus(status interface{}) ([]byte, error) {
	out, err := yaml.Marshal(status)
	if err != nil {
		return nil, fmt.Errorf("failed to render status: %w", err)
	}
	return out, nil
}
