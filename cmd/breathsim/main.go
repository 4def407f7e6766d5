package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/san-kum/breathsim/internal/config"
)

var (
	dataDir    string
	verbose    bool
	configFile string
	preset     string

	gridSize   int
	kappa      float64
	lambda     float64
	coupling   float64
	tMax       float64
	nTimes     int
	seed       int64
	integrator string
	dt         float64
	rtol       float64
	atol       float64
	maxStep    float64
	label      string
)

// main registers the commands and exits with status 1 when one fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "breathsim",
		Short:         "breathing-mode field simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".breathsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "integrate the field and store the run",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().StringVar(&label, "label", "", "run label")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runCommands()...)
	rootCmd.AddCommand(analysisCommands()...)
	rootCmd.AddCommand(batchCommands()...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "reference", "preset configuration")
	f.IntVarP(&gridSize, "grid", "n", config.DefaultGridSize, "number of sites")
	f.Float64Var(&kappa, "kappa", config.DefaultKappa, "kinetic coefficient")
	f.Float64Var(&lambda, "lambda", config.DefaultLambda, "potential scale")
	f.Float64VarP(&coupling, "coupling", "g", config.DefaultCoupling, "nearest-neighbour coupling")
	f.Float64Var(&tMax, "time", config.DefaultTMax, "end time")
	f.IntVar(&nTimes, "samples", config.DefaultNTimes, "number of sample times")
	f.Int64Var(&seed, "seed", config.DefaultSeed, "initial condition seed")
	f.StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator (rk45, rk4, verlet, euler)")
	f.Float64Var(&dt, "dt", config.DefaultDt, "fixed-step integrator timestep")
	f.Float64Var(&rtol, "rtol", 0, "relative tolerance (rk45)")
	f.Float64Var(&atol, "atol", 0, "absolute tolerance (rk45)")
	f.Float64Var(&maxStep, "max-step", 0, "largest step (rk45)")
}

// resolveConfig layers the preset, the config file and the flags the user
// set, in that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s (have %v)", preset, config.ListPresets())
	}

	if configFile != "" {
		if err := config.LoadInto(configFile, cfg); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		slog.Debug("config loaded", "path", configFile)
	}

	f := cmd.Flags()
	if f.Changed("grid") {
		cfg.GridSize = gridSize
	}
	if f.Changed("kappa") {
		cfg.Kappa = kappa
	}
	if f.Changed("lambda") {
		cfg.Lambda = lambda
	}
	if f.Changed("coupling") {
		cfg.Coupling = coupling
	}
	if f.Changed("time") {
		cfg.TMax = tMax
	}
	if f.Changed("samples") {
		cfg.NTimes = nTimes
	}
	if f.Changed("seed") {
		cfg.Seed = seed
	}
	if f.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if f.Changed("dt") {
		cfg.Dt = dt
	}
	if f.Changed("rtol") {
		cfg.RTol = rtol
	}
	if f.Changed("atol") {
		cfg.ATol = atol
	}
	if f.Changed("max-step") {
		cfg.MaxStep = maxStep
	}
	if cfg.Integrator != config.DefaultIntegrator && cfg.Dt == 0 {
		cfg.Dt = config.DefaultDt
	}

	return cfg, cfg.Validate()
}
