package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/breathsim/internal/analysis"
	"github.com/san-kum/breathsim/internal/experiment"
	"github.com/san-kum/breathsim/internal/export"
)

var (
	site         int
	method       string
	perturbation float64
	renorm       int
	poincare     bool

	scanParam string
	scanMin   float64
	scanMax   float64
	scanSteps int
	transient float64
	record    float64
)

func analysisCommands() []*cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "field statistics and the power spectrum of one site",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&site, "site", -1, "site to analyze (default: middle)")
	analyzeCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the spectrum as a PNG chart")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase portrait (phi vs dphi) of one site",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVar(&site, "site", -1, "site (default: middle)")
	phaseCmd.Flags().BoolVar(&poincare, "poincare", false, "Poincare section at upward zero crossings of dphi, against the next site")
	phaseCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the portrait as SVG")

	lyapunovCmd := &cobra.Command{
		Use:   "lyapunov",
		Short: "estimate the largest Lyapunov exponent of a configuration",
		Args:  cobra.NoArgs,
		RunE:  lyapunovRun,
	}
	addConfigFlags(lyapunovCmd)
	lyapunovCmd.Flags().StringVar(&method, "method", "rk4", "fixed-step integrator for the two trajectories")
	lyapunovCmd.Flags().Float64Var(&perturbation, "perturbation", 1e-8, "initial separation")
	lyapunovCmd.Flags().IntVar(&renorm, "renorm", 10, "steps between renormalizations")

	bifurcationCmd := &cobra.Command{
		Use:   "bifurcation",
		Short: "local maxima of one site across a parameter range",
		Args:  cobra.NoArgs,
		RunE:  bifurcationRun,
	}
	addConfigFlags(bifurcationCmd)
	bifurcationCmd.Flags().StringVar(&method, "method", "rk4", "fixed-step integrator")
	bifurcationCmd.Flags().StringVar(&scanParam, "param", "coupling", "parameter to scan (kappa, lambda, coupling)")
	bifurcationCmd.Flags().Float64Var(&scanMin, "min", 0, "first parameter value")
	bifurcationCmd.Flags().Float64Var(&scanMax, "max", 10, "last parameter value")
	bifurcationCmd.Flags().IntVar(&scanSteps, "steps", 40, "parameter values")
	bifurcationCmd.Flags().Float64Var(&transient, "transient", 50, "time discarded at each value")
	bifurcationCmd.Flags().Float64Var(&record, "record", 50, "time recorded at each value")
	bifurcationCmd.Flags().IntVar(&site, "site", -1, "site whose phi is recorded (default: middle)")

	return []*cobra.Command{analyzeCmd, phaseCmd, lyapunovCmd, bifurcationCmd}
}

func pickSite(n int) (int, error) {
	if site < 0 {
		return n / 2, nil
	}
	if site >= n {
		return 0, fmt.Errorf("site %d outside [0, %d)", site, n)
	}
	return site, nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	res, err := loadResult(args[0])
	if err != nil {
		return err
	}
	s, err := pickSite(res.GridSize())
	if err != nil {
		return err
	}
	if res.Samples() < 2 {
		return fmt.Errorf("need at least 2 samples")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tMEAN\tSTD\tMIN\tMEDIAN\tMAX\tSKEW\tKURT")
	for _, row := range []struct {
		name string
		sum  analysis.Summary
	}{
		{"phi", analysis.SummarizeGrid(res.Field)},
		{"dphi", analysis.SummarizeGrid(res.Velocity)},
		{"site means", analysis.Summarize(analysis.SiteMeans(res.Field))},
	} {
		fmt.Fprintf(w, "%s\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t%.3g\t%.3g\n", row.name,
			row.sum.Mean, row.sum.StdDev, row.sum.Min, row.sum.Median, row.sum.Max, row.sum.Skew, row.sum.Kurtosis)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nneighbour correlation: %.4f\n", analysis.NeighborCorrelation(res.Field))
	for _, name := range []string{"energy", "energy_drift", "velocity_bound", "field_spread", "stability"} {
		if v, ok := res.Metrics[name]; ok {
			fmt.Printf("%s: %.6g\n", name, v)
		}
	}
	fmt.Println()

	spec, err := analysis.PowerSpectrum(res.Field[s], res.Times[1]-res.Times[0])
	if err != nil {
		return err
	}

	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := export.SpectrumPNG(f, spec, export.ChartOptions{Title: fmt.Sprintf("site %d", s)}); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("spectrum written: %s\n", outPath)
	} else {
		plotData := spec.Power[:max(2, len(spec.Power)/4)]
		fmt.Println(asciigraph.Plot(plotData,
			asciigraph.Height(15),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("power spectrum phi[%d], 0..%.3g", s, spec.Freq[len(plotData)-1])),
		))
		fmt.Println()
	}

	freq, power := spec.Dominant()
	fmt.Printf("dominant frequency: %.4g (power %.4g)\n", freq, power)
	if freq > 0 {
		fmt.Printf("period: %.4g\n", 1/freq)
	}
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	res, err := loadResult(args[0])
	if err != nil {
		return err
	}
	s, err := pickSite(res.GridSize())
	if err != nil {
		return err
	}

	if poincare {
		next := s + 1
		if next == res.GridSize() {
			next = s - 1
		}
		if next < 0 {
			return fmt.Errorf("a section needs at least 2 sites")
		}
		section := analysis.GeneratePoincareSection(res.Times, res.Velocity[s], res.Field[s], res.Field[next], 0)
		fmt.Printf("poincare section: dphi[%d] = 0 upward, phi[%d] vs phi[%d], %d crossings\n\n", s, s, next, len(section.Points))
		fmt.Println(analysis.PoincareSectionToASCII(section, 60, 25))
		return nil
	}

	portrait := analysis.PhasePortrait(res.Field[s], res.Velocity[s])
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := export.PhaseSVG(f, portrait.Points, 600, 600, "#00ffff"); err != nil {
			f.Close()
			return err
		}
		fmt.Printf("phase portrait written: %s\n", outPath)
		return f.Close()
	}

	fmt.Printf("phase portrait: phi[%d] (x) vs dphi[%d] (y)\n\n", s, s)
	fmt.Println(analysis.PhasePortraitToASCII(portrait, 60, 25))
	return nil
}

func lyapunovRun(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}
	integ, err := experiment.NewRegistry().GetIntegrator(method)
	if err != nil {
		return err
	}

	step := cfg.Dt
	if step == 0 {
		step = 0.01
	}
	fmt.Printf("lyapunov exponent: N=%d g=%g lambda=%g, %s dt=%g to t=%g\n",
		cfg.GridSize, cfg.Coupling, cfg.Lambda, method, step, cfg.TMax)

	lambdaMax, err := analysis.LyapunovExponent(cmd.Context(), exp.Field(), integ, exp.InitialState(), step, cfg.TMax, perturbation, renorm)
	if err != nil {
		return err
	}

	fmt.Printf("largest exponent: %.6f\n", lambdaMax)
	switch {
	case lambdaMax > 0.01:
		fmt.Println("chaotic")
	case lambdaMax < -0.01:
		fmt.Println("contracting")
	default:
		fmt.Println("marginal (regular or quasi-periodic)")
	}
	return nil
}

func bifurcationRun(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}
	integ, err := experiment.NewRegistry().GetIntegrator(method)
	if err != nil {
		return err
	}
	s, err := pickSite(cfg.GridSize)
	if err != nil {
		return err
	}

	step := cfg.Dt
	if step == 0 {
		step = 0.01
	}
	points, err := analysis.BifurcationDiagram(cmd.Context(), exp.Field(), integ, exp.InitialState(), analysis.Scan{
		Param:      scanParam,
		Min:        scanMin,
		Max:        scanMax,
		Steps:      scanSteps,
		StateIndex: s,
		Dt:         step,
		Transient:  transient,
		Record:     record,
	})
	if err != nil {
		return err
	}

	total := 0
	for _, p := range points {
		total += len(p.Values)
	}
	fmt.Printf("maxima of phi[%d] over %s in [%g, %g]: %d points\n\n", s, scanParam, scanMin, scanMax, total)
	fmt.Println(analysis.BifurcationToASCII(points, 70, 25))
	return nil
}
