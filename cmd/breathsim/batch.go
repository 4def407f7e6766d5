package main

import (
	"fmt"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/breathsim/internal/automation"
	"github.com/san-kum/breathsim/internal/config"
	"github.com/san-kum/breathsim/internal/experiment"
	"github.com/san-kum/breathsim/internal/storage"
)

var (
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
	saveRuns   bool
	trials     int
)

func batchCommands() []*cobra.Command {
	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset configurations",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run a configuration across a range of one parameter",
		Args:  cobra.NoArgs,
		RunE:  sweepRun,
	}
	addConfigFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "coupling", "parameter to sweep (kappa, lambda, coupling)")
	sweepCmd.Flags().Float64Var(&sweepMin, "from", 0, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "to", 10, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of values")
	sweepCmd.Flags().BoolVar(&saveRuns, "save", false, "store every member")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file.yaml]",
		Short: "run the runs listed in a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  scenarioRun,
	}
	addConfigFlags(scenarioCmd)

	compareCmd := &cobra.Command{
		Use:   "compare [integrator]...",
		Short: "run one configuration with several integrators",
		RunE:  compareIntegrators,
	}
	addConfigFlags(compareCmd)

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "run a configuration over consecutive seeds",
		Args:  cobra.NoArgs,
		RunE:  ensembleRun,
	}
	addConfigFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&trials, "trials", 10, "number of seeds, starting at --seed")

	return []*cobra.Command{presetsCmd, sweepCmd, scenarioCmd, compareCmd, ensembleCmd}
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tN\tKAPPA\tLAMBDA\tG\tT_MAX\tSAMPLES\tSEED\tINTEG")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%d\t%g\t%g\t%g\t%g\t%d\t%d\t%s\n",
			name, p.GridSize, p.Kappa, p.Lambda, p.Coupling, p.TMax, p.NTimes, p.Seed, p.Integrator)
	}
	return w.Flush()
}

func saveResult(st *storage.Store, name string, res *experiment.Result) error {
	if err := st.Init(); err != nil {
		return err
	}
	id, err := st.Save(name, res)
	if err != nil {
		return err
	}
	fmt.Printf("  saved %s as %s\n", name, id)
	return nil
}

func sweepRun(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	results, err := automation.RunSweep(cmd.Context(), &automation.ParameterSweep{
		Base:      cfg,
		ParamName: sweepParam,
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepSteps,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tSTEPS\tE_MIN\tE_MAX\tDRIFT\tSPREAD\n", sweepParam)
	for _, r := range results {
		fmt.Fprintf(w, "%g\t%d\t%.6g\t%.6g\t%.2e\t%.4g\n",
			r.ParamValue, r.Result.Stats.Steps, r.MinEnergy, r.MaxEnergy,
			r.Result.Metrics["energy_drift"], r.Result.Metrics["field_spread"])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if saveRuns {
		st := storage.New(dataDir)
		for _, r := range results {
			if err := saveResult(st, fmt.Sprintf("sweep %s=%g", sweepParam, r.ParamValue), r.Result); err != nil {
				return err
			}
		}
	}
	return nil
}

func scenarioRun(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("scenario %s: %d runs\n", sc.Name, len(sc.Runs))
	if sc.Description != "" {
		fmt.Println(sc.Description)
	}

	results, runErr := automation.RunScenario(cmd.Context(), sc, base)

	st := storage.New(dataDir)
	for _, r := range results {
		fmt.Printf("%s: %d steps, energy drift %.2e\n", r.Name, r.Result.Stats.Steps, r.Result.Metrics["energy_drift"])
		if r.SaveAs == "" {
			continue
		}
		if err := saveResult(st, r.SaveAs, r.Result); err != nil {
			return err
		}
	}
	return runErr
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		// reference first
		names = []string{config.DefaultIntegrator}
		for _, name := range experiment.NewRegistry().ListIntegrators() {
			if name != config.DefaultIntegrator {
				names = append(names, name)
			}
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "INTEG\tSTEPS\tEVALS\tELAPSED\tDRIFT\tMAX |dphi| vs %s\n", names[0])

	var ref *experiment.Result
	for _, name := range names {
		cfg := base.Clone()
		cfg.Integrator = name
		if name != config.DefaultIntegrator && cfg.Dt == 0 {
			cfg.Dt = config.DefaultDt
		}

		exp, err := experiment.New(cfg)
		if err != nil {
			return err
		}
		res, err := exp.Run(cmd.Context())
		if err != nil {
			fmt.Fprintf(w, "%s\tfailed: %v\n", name, err)
			continue
		}
		if ref == nil {
			ref = res
		}

		diff := 0.0
		for i := range res.Field {
			for k := range res.Field[i] {
				diff = math.Max(diff, math.Abs(res.Field[i][k]-ref.Field[i][k]))
			}
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%.2e\t%.2e\n",
			name, res.Stats.Steps, res.Stats.Evaluations, res.Elapsed.Round(time.Millisecond), res.Metrics["energy_drift"], diff)
	}
	return w.Flush()
}

func ensembleRun(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	results, err := automation.RunEnsemble(cmd.Context(), &automation.EnsembleConfig{
		Base:      cfg,
		FirstSeed: cfg.Seed,
		NumTrials: trials,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tENERGY\tDRIFT\tVMAX\tSPREAD")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%d\tfailed: %v\n", r.Seed, r.Err)
			continue
		}
		fmt.Fprintf(w, "%d\t%.6g\t%.2e\t%.4g\t%.4g\n", r.Seed,
			r.Metrics["energy"], r.Metrics["energy_drift"], r.Metrics["velocity_bound"], r.Metrics["field_spread"])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	stable, failed := automation.EnsembleStats(results)
	fmt.Printf("\n%d completed, %d failed\n", stable, failed)
	return nil
}
