package export

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strings"

	"github.com/san-kum/breathsim/internal/analysis"
	"github.com/san-kum/breathsim/internal/viz"
)

func svgColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// HeatmapSVG writes grid as an SVG of rects, downsampled to at most
// opts.Width x opts.Height cells. Site 0 is the bottom row.
func HeatmapSVG(w io.Writer, grid [][]float64, opts HeatmapOptions) error {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return ErrEmptyGrid
	}
	if opts.Width <= 0 {
		opts.Width = 200
	}
	if opts.Height <= 0 {
		opts.Height = 100
	}
	if opts.Colormap.Name == "" {
		opts.Colormap = viz.Plasma
	}

	lo, hi := viz.Range(grid)
	cells := viz.Resample(grid, opts.Height, opts.Width)
	rows, cols := len(cells), len(cells[0])

	const cell = 4
	width, height := cols*cell, rows*cell

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">
`, width, height, width, height))

	for r, row := range cells {
		y := (rows - 1 - r) * cell
		for c, v := range row {
			sb.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>
`, c*cell, y, cell, cell, svgColor(opts.Colormap.Scaled(v, lo, hi))))
		}
	}
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// PhaseSVG draws points as a single polyline, padded by 10% on each axis.
func PhaseSVG(w io.Writer, points []analysis.Point, width, height int, strokeColor string) error {
	if len(points) < 2 {
		return fmt.Errorf("phase path needs at least 2 points, got %d", len(points))
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}
	sb.WriteString(`"/>
</svg>
`)

	_, err := io.WriteString(w, sb.String())
	return err
}
