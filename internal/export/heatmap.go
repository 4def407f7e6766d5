package export

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/san-kum/breathsim/internal/viz"
)

var ErrEmptyGrid = errors.New("empty grid")

const colorBarWidth = 16

type HeatmapOptions struct {
	Width    int // pixels along time
	Height   int // pixels along sites
	Colormap viz.Colormap
	ColorBar bool
}

func (o HeatmapOptions) withDefaults(rows, cols int) HeatmapOptions {
	if o.Width <= 0 {
		o.Width = max(cols, 400)
	}
	if o.Height <= 0 {
		o.Height = max(rows, 200)
	}
	if o.Colormap.Name == "" {
		o.Colormap = viz.Plasma
	}
	return o
}

// HeatmapImage rasterizes grid (one row per site, one column per sample)
// with time on x and site 0 at the bottom edge. Cells are picked by nearest
// index. With ColorBar set a vertical legend, low at the bottom, is appended
// on the right.
func HeatmapImage(grid [][]float64, opts HeatmapOptions) (*image.RGBA, error) {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return nil, ErrEmptyGrid
	}
	n, k := len(grid), len(grid[0])
	opts = opts.withDefaults(n, k)
	lo, hi := viz.Range(grid)

	width := opts.Width
	if opts.ColorBar {
		width += colorBarWidth
	}
	img := image.NewRGBA(image.Rect(0, 0, width, opts.Height))

	for py := 0; py < opts.Height; py++ {
		site := (opts.Height - 1 - py) * n / opts.Height
		row := grid[site]
		for px := 0; px < opts.Width; px++ {
			img.SetRGBA(px, py, opts.Colormap.Scaled(row[px*k/opts.Width], lo, hi))
		}
	}

	if opts.ColorBar {
		for py := 0; py < opts.Height; py++ {
			v := 1.0
			if opts.Height > 1 {
				v = 1 - float64(py)/float64(opts.Height-1)
			}
			c := opts.Colormap.At(v)
			for px := opts.Width; px < width; px++ {
				if px < opts.Width+4 {
					img.SetRGBA(px, py, color.RGBA{A: 255})
					continue
				}
				img.SetRGBA(px, py, c)
			}
		}
	}
	return img, nil
}

func HeatmapPNG(w io.Writer, grid [][]float64, opts HeatmapOptions) error {
	img, err := HeatmapImage(grid, opts)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}
