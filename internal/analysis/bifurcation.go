package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/breathsim/internal/dynamo"
)

// BifurcationPoint holds the distinct local maxima of one state component
// recorded at a single parameter value.
type BifurcationPoint struct {
	Param  float64
	Values []float64
}

// Scan describes a bifurcation sweep.
type Scan struct {
	Param      string
	Min, Max   float64
	Steps      int
	StateIndex int
	Dt         float64
	Transient  float64
	Record     float64
}

// BifurcationDiagram sweeps scan.Param over [Min, Max], discards the
// transient at each value and records the distinct local maxima of
// x[StateIndex]. Maxima closer than 1e-3 are merged. The parameter is
// restored before returning.
func BifurcationDiagram(ctx context.Context, dyn dynamo.System, integ dynamo.Integrator, x0 dynamo.State, scan Scan) ([]BifurcationPoint, error) {
	tunable, ok := dyn.(dynamo.Configurable)
	if !ok {
		return nil, fmt.Errorf("system has no tunable parameters")
	}
	original, ok := tunable.GetParams()[scan.Param]
	if !ok {
		return nil, fmt.Errorf("unknown param: %s", scan.Param)
	}
	defer tunable.SetParam(scan.Param, original)

	if scan.StateIndex < 0 || scan.StateIndex >= len(x0) {
		return nil, fmt.Errorf("state index %d out of range: %w", scan.StateIndex, dynamo.ErrDimensionMismatch)
	}
	if !(scan.Dt > 0) {
		return nil, fmt.Errorf("dt %g: %w", scan.Dt, dynamo.ErrParameterBounds)
	}

	steps := scan.Steps
	if steps < 2 {
		steps = 2
	}
	paramStep := (scan.Max - scan.Min) / float64(steps-1)

	results := make([]BifurcationPoint, 0, steps)
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		param := scan.Min + float64(i)*paramStep
		if err := tunable.SetParam(scan.Param, param); err != nil {
			return nil, err
		}

		x := x0.Clone()
		t := 0.0
		for t < scan.Transient {
			x = integ.Step(dyn, x, t, scan.Dt)
			t += scan.Dt
		}

		var values []float64
		seen := make(map[int64]bool)
		prev2, prev1 := math.NaN(), x[scan.StateIndex]

		for t < scan.Transient+scan.Record {
			x = integ.Step(dyn, x, t, scan.Dt)
			t += scan.Dt
			if !x.IsValid() {
				return nil, &dynamo.SimulationError{Time: t, State: x, Wrapped: dynamo.ErrUnstable}
			}

			curr := x[scan.StateIndex]
			if prev1 > prev2 && prev1 >= curr {
				key := int64(math.Round(prev1 * 1000))
				if !seen[key] {
					seen[key] = true
					values = append(values, prev1)
				}
			}
			prev2, prev1 = prev1, curr
		}

		results = append(results, BifurcationPoint{Param: param, Values: values})
	}

	return results, nil
}

// BifurcationToASCII converts bifurcation data to ASCII art
func BifurcationToASCII(data []BifurcationPoint, width, height int) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	minVal, maxVal := math.Inf(1), math.Inf(-1)
	for _, p := range data {
		for _, v := range p.Values {
			minVal = math.Min(minVal, v)
			maxVal = math.Max(maxVal, v)
		}
	}
	if math.IsInf(minVal, 1) {
		return ""
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	for i, p := range data {
		col := i * width / len(data)
		for _, v := range p.Values {
			row := height - 1 - int((v-minVal)/(maxVal-minVal)*float64(height-1))
			if row >= 0 && row < height && col >= 0 && col < width {
				canvas[row][col] = '•'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
