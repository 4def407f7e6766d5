package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/breathsim/internal/experiment"
	"github.com/san-kum/breathsim/internal/export"
	"github.com/san-kum/breathsim/internal/storage"
	"github.com/san-kum/breathsim/internal/viz"
)

var (
	sites    []int
	outPath  string
	width    int
	height   int
	colormap string
	colorBar bool
	gifPath  string
	theme    string
	useVeloc bool
	csvDir   string
	atTime   float64
)

func runCommands() []*cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run configuration, solver stats and metrics",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot site traces",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntSliceVar(&sites, "sites", nil, "sites to plot (default: first, middle, last)")
	plotCmd.Flags().StringVarP(&outPath, "out", "o", "", "write a PNG chart instead of printing")
	plotCmd.Flags().BoolVar(&useVeloc, "velocity", false, "plot dphi instead of phi")
	plotCmd.Flags().Float64Var(&atTime, "at", 0, "plot the lattice profile at the sample nearest this time")

	heatmapCmd := &cobra.Command{
		Use:   "heatmap [run_id]",
		Short: "render the field as a heatmap (terminal, .png or .svg)",
		Args:  cobra.ExactArgs(1),
		RunE:  heatmapRun,
	}
	heatmapCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (.png or .svg)")
	heatmapCmd.Flags().IntVar(&width, "width", 0, "width (characters or pixels)")
	heatmapCmd.Flags().IntVar(&height, "height", 0, "height (characters or pixels)")
	heatmapCmd.Flags().StringVar(&colormap, "cmap", "plasma", "colormap ("+strings.Join(viz.ColormapNames(), ", ")+")")
	heatmapCmd.Flags().BoolVar(&colorBar, "colorbar", true, "draw a color bar")
	heatmapCmd.Flags().BoolVar(&useVeloc, "velocity", false, "render dphi instead of phi")

	viewCmd := &cobra.Command{
		Use:   "view [run_id]",
		Short: "replay a run interactively",
		Args:  cobra.ExactArgs(1),
		RunE:  viewRun,
	}
	viewCmd.Flags().StringVar(&gifPath, "gif", "breathsim.gif", "GIF recording path")
	viewCmd.Flags().StringVar(&theme, "theme", viz.ThemeCyberpunk.Name, "theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export field and velocity grids to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&csvDir, "out", "o", ".", "output directory")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run as one JSON document",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	return []*cobra.Command{listCmd, showCmd, plotCmd, heatmapCmd, viewCmd, exportCSVCmd, exportJSONCmd}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("integrating N=%d g=%g lambda=%g kappa=%g to t=%g with %s\n",
		cfg.GridSize, cfg.Coupling, cfg.Lambda, cfg.Kappa, cfg.TMax, cfg.Integrator)

	res, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(label, res)
	if err != nil {
		return err
	}

	fmt.Printf("run saved: %s\n", runID)
	fmt.Printf("steps: %d (rejected %d), evaluations: %d, elapsed: %s\n",
		res.Stats.Steps, res.Stats.Rejected, res.Stats.Evaluations, res.Elapsed.Round(time.Millisecond))
	return printMetrics(res.Metrics)
}

func printMetrics(m map[string]float64) error {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%.6g\n", name, m[name])
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tTIME\tN\tG\tT_MAX\tSAMPLES\tINTEG\tSTEPS\tDRIFT")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%g\t%g\t%d\t%s\t%d\t%.2e\n",
			run.ShortID(),
			run.Label,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Config.GridSize,
			run.Config.Coupling,
			run.Config.TMax,
			run.Samples,
			run.Config.Integrator,
			run.Steps,
			run.Metrics["energy_drift"],
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	if meta.Label != "" {
		fmt.Printf("label: %s\n", meta.Label)
	}
	fmt.Printf("created: %s\n", meta.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("samples: %d, steps: %d (rejected %d), evaluations: %d, elapsed: %dms\n\n",
		meta.Samples, meta.Steps, meta.Rejected, meta.Evaluations, meta.ElapsedMS)

	data, err := yaml.Marshal(meta.Config)
	if err != nil {
		return err
	}
	fmt.Print(string(data))

	fmt.Println("\nmetrics:")
	return printMetrics(meta.Metrics)
}

func loadResult(id string) (*experiment.Result, error) {
	res, err := storage.New(dataDir).LoadResult(id)
	if err != nil {
		return nil, err
	}
	if res.Samples() == 0 || res.GridSize() == 0 {
		return nil, fmt.Errorf("run %s has no data", id)
	}
	return res, nil
}

func grid(res *experiment.Result) ([][]float64, string) {
	if useVeloc {
		return res.Velocity, "dphi"
	}
	return res.Field, "phi"
}

func defaultSites(n int) []int {
	if n <= 2 {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	return []int{0, n / 2, n - 1}
}

func plotRun(cmd *cobra.Command, args []string) error {
	res, err := loadResult(args[0])
	if err != nil {
		return err
	}
	data, name := grid(res)

	if cmd.Flags().Changed("at") {
		k := res.SampleAt(atTime)
		fmt.Println(asciigraph.Plot(profileAt(data, k),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s across the lattice at t=%.4g (sample %d)", name, res.Times[k], k)),
		))
		return nil
	}

	picked := sites
	if len(picked) == 0 {
		picked = defaultSites(res.GridSize())
	}
	for _, s := range picked {
		if s < 0 || s >= res.GridSize() {
			return fmt.Errorf("site %d outside [0, %d)", s, res.GridSize())
		}
	}

	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := export.SiteTracePNG(f, res.Times, data, picked, export.ChartOptions{Title: args[0]}); err != nil {
			f.Close()
			return err
		}
		fmt.Printf("chart written: %s\n", outPath)
		return f.Close()
	}

	for _, s := range picked {
		graph := asciigraph.Plot(data[s],
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s[%d] vs time (0..%g)", name, s, res.Times[len(res.Times)-1])),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

// profileAt is column k of a site-major grid.
func profileAt(data [][]float64, k int) []float64 {
	p := make([]float64, len(data))
	for i := range data {
		p[i] = data[i][k]
	}
	return p
}

func heatmapRun(cmd *cobra.Command, args []string) error {
	res, err := loadResult(args[0])
	if err != nil {
		return err
	}
	data, name := grid(res)
	cm := viz.GetColormap(colormap)

	opts := export.HeatmapOptions{Width: width, Height: height, Colormap: cm, ColorBar: colorBar}
	switch ext := strings.ToLower(filepath.Ext(outPath)); {
	case outPath == "":
		out := viz.RenderHeatmap(data, viz.HeatmapOptions{Width: width, Height: height, Colormap: cm})
		fmt.Print(out)
		if colorBar {
			lo, hi := viz.Range(data)
			fmt.Println(viz.ColorBar(cm, lo, hi, 40))
		}
		fmt.Println(viz.Subtle.Render(fmt.Sprintf("%s: site 0 at the bottom, t from 0 to %g left to right", name, res.Times[len(res.Times)-1])))
		return nil
	case ext == ".png" || ext == ".svg":
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if ext == ".png" {
			err = export.HeatmapPNG(f, data, opts)
		} else {
			err = export.HeatmapSVG(f, data, opts)
		}
		if err != nil {
			f.Close()
			return err
		}
		fmt.Printf("heatmap written: %s\n", outPath)
		return f.Close()
	default:
		return fmt.Errorf("unsupported heatmap format %q (use .png or .svg)", ext)
	}
}

func viewRun(cmd *cobra.Command, args []string) error {
	res, err := loadResult(args[0])
	if err != nil {
		return err
	}
	viz.SetTheme(theme)
	return viz.Play(res, gifPath)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	res, err := loadResult(args[0])
	if err != nil {
		return err
	}
	if err := os.MkdirAll(csvDir, 0755); err != nil {
		return err
	}

	for name, rows := range map[string][][]float64{"field": res.Field, "velocity": res.Velocity} {
		path := filepath.Join(csvDir, name+".csv")
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := storage.WriteGridCSV(f, res.Times, rows); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("exported %d sites x %d samples to %s\n", len(rows), res.Samples(), path)
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	res, err := loadResult(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, res)
}
