package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/floats"
)

// Range returns the smallest and largest value of a grid.
func Range(grid [][]float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, row := range grid {
		if len(row) == 0 {
			continue
		}
		lo = math.Min(lo, floats.Min(row))
		hi = math.Max(hi, floats.Max(row))
	}
	if math.IsInf(lo, 1) {
		return 0, 0
	}
	return lo, hi
}

// Resample picks rows x cols cells from grid by nearest index. Output row 0
// is grid row 0.
func Resample(grid [][]float64, rows, cols int) [][]float64 {
	if len(grid) == 0 || len(grid[0]) == 0 || rows <= 0 || cols <= 0 {
		return nil
	}
	n, k := len(grid), len(grid[0])
	rows, cols = min(rows, n), min(cols, k)

	out := make([][]float64, rows)
	for r := range out {
		src := grid[r*n/rows]
		out[r] = make([]float64, cols)
		for c := range out[r] {
			out[r][c] = src[c*k/cols]
		}
	}
	return out
}

// HeatmapOptions controls terminal heatmap rendering.
type HeatmapOptions struct {
	Width    int // character columns
	Height   int // character rows; each holds two sites
	Colormap Colormap
}

// RenderHeatmap draws grid (one row per site, one column per sample) with
// time running left to right and site 0 on the bottom line. Each character
// is an upper half block carrying two sites.
func RenderHeatmap(grid [][]float64, opts HeatmapOptions) string {
	if opts.Width <= 0 {
		opts.Width = 80
	}
	if opts.Height <= 0 {
		opts.Height = 20
	}
	if opts.Colormap.stops == nil {
		opts.Colormap = Plasma
	}

	cells := Resample(grid, 2*opts.Height, opts.Width)
	if cells == nil {
		return ""
	}
	lo, hi := Range(grid)
	norm := func(v float64) float64 {
		if hi == lo {
			return 0.5
		}
		return (v - lo) / (hi - lo)
	}

	var sb strings.Builder
	for top := len(cells) - 1; top >= 0; top -= 2 {
		bottom := top - 1
		for c := range cells[top] {
			style := lipgloss.NewStyle().Foreground(opts.Colormap.Lipgloss(norm(cells[top][c])))
			if bottom >= 0 {
				style = style.Background(opts.Colormap.Lipgloss(norm(cells[bottom][c])))
			}
			sb.WriteString(style.Render("▀"))
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}

// ColorBar renders a horizontal legend of width characters from lo to hi.
func ColorBar(cm Colormap, lo, hi float64, width int) string {
	var sb strings.Builder
	for i := 0; i < width; i++ {
		v := 0.0
		if width > 1 {
			v = float64(i) / float64(width-1)
		}
		sb.WriteString(lipgloss.NewStyle().Foreground(cm.Lipgloss(v)).Render("█"))
	}
	return fmt.Sprintf("%s %s %s", Subtle.Render(fmt.Sprintf("%.3g", lo)), sb.String(), Subtle.Render(fmt.Sprintf("%.3g", hi)))
}
