package commands

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dantte-lp/dronesim/internal/sim"
	"github.com/dantte-lp/dronesim/internal/simconfig"
)

var (
	runSeed        int64
	runDroneCount  int
	runSimTime     time.Duration
	runOutputDir   string
	runMetricsAddr string
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Bootstrap and run one simulation",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}

	cmd.Flags().Int64Var(&runSeed, "seed", 0, "deterministic RNG seed (0 = use config default)")
	cmd.Flags().IntVar(&runDroneCount, "drones", 0, "number of drones (0 = use config default)")
	cmd.Flags().DurationVar(&runSimTime, "sim-time", 0, "simulated duration (0 = use config default)")
	cmd.Flags().StringVar(&runOutputDir, "output-dir", "", "directory for simulation_result.txt and per-drone logs (empty = use config default)")
	cmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", ":9100", "Prometheus /metrics listen address")

	return cmd
}

func runSimulation(_ *cobra.Command, _ []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := simconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	applyRunOverrides(cfg)

	if err := simconfig.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(cfg.LogPath, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", cfg.LogPath, err)
	}

	reg := prometheus.NewRegistry()
	stopMetrics := startMetricsServer(runMetricsAddr, reg, logger)
	defer stopMetrics()

	logger.Info("bootstrapping simulation",
		slog.Int("number_of_drones", cfg.NumberOfDrones),
		slog.Duration("sim_time", cfg.SimTime),
		slog.String("routing", string(cfg.Routing)),
		slog.Int64("seed", cfg.Seed),
	)

	s, err := sim.Bootstrap(cfg, logger, reg)
	if err != nil {
		return fmt.Errorf("bootstrap simulation: %w", err)
	}

	summary, err := s.Run()
	if err != nil {
		return fmt.Errorf("run simulation: %w", err)
	}

	resultPath := filepath.Join(cfg.LogPath, "simulation_result.txt")
	if err := s.WriteResultFile(resultPath); err != nil {
		return fmt.Errorf("write result file: %w", err)
	}

	logger.Info("simulation complete",
		slog.Int("sent", summary.Sent),
		slog.Int("delivered", summary.Delivered),
		slog.Int("dropped", summary.Dropped),
		slog.Int("collisions", summary.Collisions),
		slog.Float64("pdr_percent", summary.PDRPercent),
		slog.Float64("mean_delay_ms", summary.MeanDelayMS),
		slog.String("result_file", resultPath),
	)

	return nil
}

func applyRunOverrides(cfg *simconfig.Config) {
	if runSeed != 0 {
		cfg.Seed = runSeed
	}
	if runDroneCount != 0 {
		cfg.NumberOfDrones = runDroneCount
	}
	if runSimTime != 0 {
		cfg.SimTime = runSimTime
	}
	if runOutputDir != "" {
		cfg.LogPath = runOutputDir
	}
}

// startMetricsServer exposes reg on addr via promhttp, matching
// cmd/gobfd/main.go's metrics server wiring. Returns a function that shuts
// the server down.
func startMetricsServer(addr string, reg *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logger.Info("metrics server listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", slog.String("error", err.Error()))
		}
	}()

	return func() {
		_ = srv.Close()
	}
}
