package export

import (
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/breathsim/internal/analysis"
	"github.com/san-kum/breathsim/internal/viz"
)

type ChartOptions struct {
	Width, Height int
	Title         string
}

func (o ChartOptions) withDefaults() ChartOptions {
	if o.Width <= 0 {
		o.Width = 1024
	}
	if o.Height <= 0 {
		o.Height = 400
	}
	return o
}

func seriesColor(i, n int) drawing.Color {
	v := 0.0
	if n > 1 {
		v = 0.85 * float64(i) / float64(n-1)
	}
	c := viz.Plasma.At(v)
	return drawing.Color{R: c.R, G: c.G, B: c.B, A: 255}
}

// yRange pads a flat range, which the renderer refuses.
func yRange(series ...[]float64) *chart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for i, s := range series {
		if i == 0 {
			lo, hi = floats.Min(s), floats.Max(s)
			continue
		}
		lo = min(lo, floats.Min(s))
		hi = max(hi, floats.Max(s))
	}
	if hi == lo {
		lo, hi = lo-1, hi+1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

func render(w io.Writer, graph chart.Chart) error {
	if len(graph.Series) > 1 {
		graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// SiteTracePNG plots phi against time for the given sites.
func SiteTracePNG(w io.Writer, times []float64, field [][]float64, sites []int, opts ChartOptions) error {
	if len(times) < 2 {
		return fmt.Errorf("trace needs at least 2 samples, got %d", len(times))
	}
	if len(sites) == 0 {
		return fmt.Errorf("no sites to plot")
	}
	opts = opts.withDefaults()

	var series []chart.Series
	var ys [][]float64
	for i, site := range sites {
		if site < 0 || site >= len(field) {
			return fmt.Errorf("site %d outside [0, %d)", site, len(field))
		}
		if len(field[site]) != len(times) {
			return fmt.Errorf("site %d has %d samples, want %d", site, len(field[site]), len(times))
		}
		ys = append(ys, field[site])
		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("site %d", site),
			XValues: times,
			YValues: field[site],
			Style: chart.Style{
				StrokeColor: seriesColor(i, len(sites)),
				StrokeWidth: 1.5,
			},
		})
	}

	return render(w, chart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		XAxis:  chart.XAxis{Name: "t"},
		YAxis:  chart.YAxis{Name: "phi", Range: yRange(ys...)},
		Series: series,
	})
}

// SpectrumPNG plots the power spectrum of one series.
func SpectrumPNG(w io.Writer, spec *analysis.Spectrum, opts ChartOptions) error {
	if spec == nil || len(spec.Freq) < 2 {
		return fmt.Errorf("spectrum needs at least 2 bins")
	}
	opts = opts.withDefaults()

	return render(w, chart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		XAxis:  chart.XAxis{Name: "frequency"},
		YAxis:  chart.YAxis{Name: "power", Range: yRange(spec.Power)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "power",
				XValues: spec.Freq,
				YValues: spec.Power,
				Style: chart.Style{
					StrokeColor: seriesColor(0, 1),
					StrokeWidth: 1.5,
				},
			},
		},
	})
}
