package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// configPath is the shared --config flag read by both run and config
// validate.
var configPath string

// rootCmd is the top-level cobra command for dronesim.
var rootCmd = &cobra.Command{
	Use:   "dronesim",
	Short: "Discrete-event simulator for a mobile ad-hoc drone network",
	Long:  "dronesim drives a virtual-time MANET simulation: scheduler, CSMA/CA MAC, Gauss-Markov mobility, and pluggable routing (DSDV, Greedy, OPAR, PrudentCaster).",
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to simulation configuration file (YAML); defaults are used if omitted")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
