package integrators

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/breathsim/internal/dynamo"
)

// SolveFixed integrates sys with a fixed-step integrator of step dt, clipping
// the last step onto t1. Step k ends at t0+k*dt so rounding does not
// accumulate into a sliver step before t1. Samples in tEval come from cubic Hermite
// interpolation between step endpoints; with tEval nil every step is kept.
func SolveFixed(ctx context.Context, integ dynamo.Integrator, sys dynamo.System, y0 dynamo.State, t0, t1, dt float64, tEval []float64) (*Solution, error) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("dt %g: %w", dt, dynamo.ErrParameterBounds)
	}
	if err := checkProblem(sys, y0, t0, t1, tEval); err != nil {
		return nil, err
	}

	sol := &Solution{}
	if tEval == nil {
		sol.append(t0, y0.Clone())
	}

	t, y := t0, y0.Clone()
	f := sys.Derive(y, t)
	sol.Stats.Evaluations++
	next := 0

	for k := 1; t < t1; k++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		tNew := t0 + float64(k)*dt
		if tNew > t1 || t1-tNew < 1e-9*dt {
			tNew = t1
		}
		h := tNew - t

		yNew := integ.Step(sys, y, t, h)
		if !yNew.IsValid() {
			return nil, &dynamo.SimulationError{Step: sol.Stats.Steps, Time: t, State: y, Wrapped: dynamo.ErrUnstable}
		}
		fNew := sys.Derive(yNew, tNew)
		sol.Stats.Evaluations++
		sol.Stats.Steps++

		if tEval == nil {
			sol.append(tNew, yNew.Clone())
		} else {
			for next < len(tEval) && tEval[next] <= tNew {
				te := tEval[next]
				if te == tNew {
					sol.append(te, yNew.Clone())
				} else {
					sol.append(te, hermite(t, h, y, f, yNew, fNew, te))
				}
				next++
			}
		}

		t, y, f = tNew, yNew, fNew
	}

	slog.Debug("fixed-step solve finished", "dt", dt, "steps", sol.Stats.Steps, "samples", len(sol.Times))

	return sol, nil
}

// hermite is the cubic Hermite interpolant through (y0, f0) at t and
// (y1, f1) at t+h, evaluated at tq.
func hermite(t, h float64, y0, f0, y1, f1 dynamo.State, tq float64) dynamo.State {
	s := (tq - t) / h
	s2, s3 := s*s, s*s*s
	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2

	out := make(dynamo.State, len(y0))
	for i := range out {
		out[i] = h00*y0[i] + h10*h*f0[i] + h01*y1[i] + h11*h*f1[i]
	}
	return out
}
