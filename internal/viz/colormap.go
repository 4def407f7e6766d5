package viz

import (
	"image/color"
	"math"
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// Colormap maps [0, 1] onto evenly spaced color stops by linear
// interpolation.
type Colormap struct {
	Name  string
	stops []color.RGBA
}

func rgb(hex uint32) color.RGBA {
	return color.RGBA{R: uint8(hex >> 16), G: uint8(hex >> 8), B: uint8(hex), A: 255}
}

// Stops sampled from matplotlib's perceptually uniform maps.
var (
	Plasma = Colormap{Name: "plasma", stops: []color.RGBA{
		rgb(0x0d0887), rgb(0x4c02a1), rgb(0x7e03a8), rgb(0xa92395), rgb(0xcc4778),
		rgb(0xe56b5d), rgb(0xf89540), rgb(0xfdc328), rgb(0xf0f921),
	}}
	Viridis = Colormap{Name: "viridis", stops: []color.RGBA{
		rgb(0x440154), rgb(0x482878), rgb(0x3e4989), rgb(0x31688e), rgb(0x26828e),
		rgb(0x1f9e89), rgb(0x35b779), rgb(0x6ece58), rgb(0xfde725),
	}}
	Gray = Colormap{Name: "gray", stops: []color.RGBA{rgb(0x000000), rgb(0xffffff)}}

	colormaps = map[string]Colormap{
		Plasma.Name:  Plasma,
		Viridis.Name: Viridis,
		Gray.Name:    Gray,
	}
)

// GetColormap returns the named colormap, falling back to plasma.
func GetColormap(name string) Colormap {
	if cm, ok := colormaps[name]; ok {
		return cm
	}
	return Plasma
}

func ColormapNames() []string {
	names := make([]string, 0, len(colormaps))
	for name := range colormaps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// At returns the color for v in [0, 1]; values outside are clamped and NaN
// maps to the low end.
func (c Colormap) At(v float64) color.RGBA {
	if math.IsNaN(v) || v <= 0 {
		return c.stops[0]
	}
	last := len(c.stops) - 1
	if v >= 1 {
		return c.stops[last]
	}

	pos := v * float64(last)
	i := int(pos)
	frac := pos - float64(i)
	a, b := c.stops[i], c.stops[i+1]
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + frac*(float64(y)-float64(x))))
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

// Scaled maps v from [lo, hi] into the colormap.
func (c Colormap) Scaled(v, lo, hi float64) color.RGBA {
	if hi == lo {
		return c.At(0.5)
	}
	return c.At((v - lo) / (hi - lo))
}

// Lipgloss returns the color for v as a terminal color.
func (c Colormap) Lipgloss(v float64) lipgloss.Color {
	col := c.At(v)
	return lipgloss.Color(hexColor(int(col.R), int(col.G), int(col.B)))
}
