package analysis

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the distribution of a set of values.
type Summary struct {
	Mean     float64
	StdDev   float64
	Min      float64
	Median   float64
	Max      float64
	Skew     float64
	Kurtosis float64 // excess
}

func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	s := Summary{
		Mean:   mean,
		StdDev: std,
		Min:    sorted[0],
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Max:    sorted[len(sorted)-1],
	}
	if len(sorted) > 2 && std > 0 {
		s.Skew = stat.Skew(sorted, nil)
		s.Kurtosis = stat.ExKurtosis(sorted, nil)
	}
	return s
}

// SummarizeGrid flattens an N x n_times grid and summarizes every value.
func SummarizeGrid(grid [][]float64) Summary {
	total := 0
	for _, row := range grid {
		total += len(row)
	}
	all := make([]float64, 0, total)
	for _, row := range grid {
		all = append(all, row...)
	}
	return Summarize(all)
}

// SiteMeans is the time average of each row.
func SiteMeans(grid [][]float64) []float64 {
	out := make([]float64, len(grid))
	for i, row := range grid {
		if len(row) > 0 {
			out[i] = floats.Sum(row) / float64(len(row))
		}
	}
	return out
}

// NeighborCorrelation is the Pearson correlation between the time series of
// adjacent sites, averaged along the lattice. Pairs where either site is
// constant are skipped; with no usable pair the result is 0.
func NeighborCorrelation(grid [][]float64) float64 {
	sum, count := 0.0, 0
	for i := 0; i+1 < len(grid); i++ {
		a, b := grid[i], grid[i+1]
		if stat.StdDev(a, nil) == 0 || stat.StdDev(b, nil) == 0 {
			continue
		}
		sum += stat.Correlation(a, b, nil)
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
