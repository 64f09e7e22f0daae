package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dantte-lp/dronesim/internal/simconfig"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or validate a simulation configuration",
	}
	cmd.AddCommand(configValidateCmd())
	return cmd
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a configuration file without running",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := simconfig.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := simconfig.Validate(cfg); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			fmt.Printf("config OK: %d drones, routing=%s, sim_time=%s\n",
				cfg.NumberOfDrones, cfg.Routing, cfg.SimTime)
			return nil
		},
	}
}
