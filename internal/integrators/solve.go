package integrators

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/breathsim/internal/dynamo"
)

const (
	DefaultRTol     = 1e-3
	DefaultATol     = 1e-6
	DefaultMaxSteps = 1_000_000
)

// Options controls the adaptive driver. Zero values select the defaults;
// MaxStep 0 means unbounded.
type Options struct {
	RTol      float64
	ATol      float64
	FirstStep float64
	MaxStep   float64
	MaxSteps  int
}

func DefaultOptions() Options {
	return Options{
		RTol:     DefaultRTol,
		ATol:     DefaultATol,
		MaxSteps: DefaultMaxSteps,
	}
}

func (o Options) withDefaults() Options {
	if o.RTol == 0 {
		o.RTol = DefaultRTol
	}
	if o.ATol == 0 {
		o.ATol = DefaultATol
	}
	if o.MaxSteps == 0 {
		o.MaxSteps = DefaultMaxSteps
	}
	if o.MaxStep == 0 {
		o.MaxStep = math.Inf(1)
	}
	return o
}

func (o Options) validate() error {
	if o.RTol < 0 || o.ATol < 0 || (o.RTol == 0 && o.ATol == 0) {
		return fmt.Errorf("tolerances rtol=%g atol=%g: %w", o.RTol, o.ATol, dynamo.ErrParameterBounds)
	}
	if o.FirstStep < 0 || o.MaxStep <= 0 || o.MaxSteps < 0 {
		return fmt.Errorf("step options first=%g max=%g steps=%d: %w", o.FirstStep, o.MaxStep, o.MaxSteps, dynamo.ErrParameterBounds)
	}
	return nil
}

type Stats struct {
	Steps       int
	Rejected    int
	Evaluations int
}

// Solution holds sampled states, in time order.
type Solution struct {
	Times  []float64
	States []dynamo.State
	Stats  Stats
}

func (s *Solution) append(t float64, y dynamo.State) {
	s.Times = append(s.Times, t)
	s.States = append(s.States, y)
}

// Solve integrates sys from (t0, y0) to t1 with adaptive Dormand-Prince
// steps. When tEval is non-nil the solution holds exactly those times, taken
// from the dense output of the step covering each one; otherwise it holds
// t0 and every accepted step.
//
// A failed integration returns a *dynamo.SimulationError and no solution.
func (r *RK45) Solve(ctx context.Context, sys dynamo.System, y0 dynamo.State, t0, t1 float64, tEval []float64, opts Options) (*Solution, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := checkProblem(sys, y0, t0, t1, tEval); err != nil {
		return nil, err
	}

	sol := &Solution{}
	if tEval != nil {
		sol.Times = make([]float64, 0, len(tEval))
		sol.States = make([]dynamo.State, 0, len(tEval))
	} else {
		sol.append(t0, y0.Clone())
	}

	f := sys.Derive(y0, t0)
	sol.Stats.Evaluations++

	h := opts.FirstStep
	if h == 0 {
		h = r.initialStep(sys, y0, f, t0, t1, opts)
		sol.Stats.Evaluations++
	}

	t, y := t0, y0.Clone()
	next := 0

	for t < t1 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if sol.Stats.Steps >= opts.MaxSteps {
			return nil, &dynamo.SimulationError{Step: sol.Stats.Steps, Time: t, State: y, Wrapped: dynamo.ErrMaxSteps}
		}

		minStep := 10 * (math.Nextafter(t, math.Inf(1)) - t)
		h = math.Min(h, opts.MaxStep)
		if h < minStep {
			h = minStep
		}

		var st *rkStep
		var tNew float64
		rejected := false
		for {
			if h < minStep {
				return nil, &dynamo.SimulationError{Step: sol.Stats.Steps, Time: t, State: y, Wrapped: dynamo.ErrStepTooSmall}
			}

			tNew = t + h
			if tNew > t1 {
				tNew = t1
			}
			hStep := tNew - t

			st = r.attempt(sys, y, f, t, hStep)
			sol.Stats.Evaluations += 6

			errNorm := st.errorNorm(opts.RTol, opts.ATol)
			if math.IsNaN(errNorm) || math.IsInf(errNorm, 0) {
				return nil, &dynamo.SimulationError{Step: sol.Stats.Steps, Time: t, State: y, Wrapped: dynamo.ErrUnstable}
			}

			if errNorm < 1 {
				factor := r.maxScale
				if errNorm > 0 {
					factor = math.Min(r.maxScale, r.safety*math.Pow(errNorm, errorExponent))
				}
				if rejected {
					factor = math.Min(1, factor)
				}
				h = hStep * factor
				break
			}

			h = hStep * math.Max(r.minScale, r.safety*math.Pow(errNorm, errorExponent))
			rejected = true
			sol.Stats.Rejected++
		}

		if !st.y1.IsValid() || !st.f1().IsValid() {
			return nil, &dynamo.SimulationError{Step: sol.Stats.Steps, Time: t, State: y, Wrapped: dynamo.ErrUnstable}
		}
		sol.Stats.Steps++

		tEnd := tNew
		if tEval == nil {
			sol.append(tEnd, st.y1.Clone())
		} else {
			for next < len(tEval) && tEval[next] <= tEnd {
				te := tEval[next]
				if te == tEnd {
					sol.append(te, st.y1.Clone())
				} else {
					sol.append(te, st.interpolate(te))
				}
				next++
			}
		}

		t, y, f = tEnd, st.y1, st.f1()
	}

	slog.Debug("rk45 solve finished",
		"t0", t0, "t1", t1,
		"steps", sol.Stats.Steps,
		"rejected", sol.Stats.Rejected,
		"evaluations", sol.Stats.Evaluations,
		"samples", len(sol.Times),
	)

	return sol, nil
}

// initialStep picks a first step from the local scale of y0 and f0
// (Hairer, Norsett & Wanner, Solving ODEs I, II.4).
func (r *RK45) initialStep(sys dynamo.System, y0, f0 dynamo.State, t0, t1 float64, opts Options) float64 {
	interval := t1 - t0
	if len(y0) == 0 {
		return interval
	}

	scale := make([]float64, len(y0))
	for i, v := range y0 {
		scale[i] = opts.ATol + math.Abs(v)*opts.RTol
	}

	d0 := rmsScaled(y0, scale)
	d1 := rmsScaled(f0, scale)

	h0 := 1e-6
	if d0 >= 1e-5 && d1 >= 1e-5 {
		h0 = 0.01 * d0 / d1
	}
	h0 = math.Min(h0, interval)

	y1 := make(dynamo.State, len(y0))
	for i := range y0 {
		y1[i] = y0[i] + h0*f0[i]
	}
	f1 := sys.Derive(y1, t0+h0)

	diff := f1.Sub(f0)
	d2 := rmsScaled(diff, scale) / h0

	var h1 float64
	if d1 <= 1e-15 && d2 <= 1e-15 {
		h1 = math.Max(1e-6, h0*1e-3)
	} else {
		h1 = math.Pow(0.01/math.Max(d1, d2), 1.0/(errorEstimatorOrder+1))
	}

	return math.Min(math.Min(100*h0, h1), interval)
}

func rmsScaled(v dynamo.State, scale []float64) float64 {
	sum := 0.0
	for i, x := range v {
		e := x / scale[i]
		sum += e * e
	}
	return math.Sqrt(sum / float64(len(v)))
}

func checkProblem(sys dynamo.System, y0 dynamo.State, t0, t1 float64, tEval []float64) error {
	if len(y0) != sys.StateDim() {
		return fmt.Errorf("state length %d, system wants %d: %w", len(y0), sys.StateDim(), dynamo.ErrDimensionMismatch)
	}
	if !y0.IsValid() {
		return dynamo.ErrInvalidState
	}
	if !(t1 > t0) || math.IsInf(t1, 0) || math.IsInf(t0, 0) {
		return fmt.Errorf("time span [%g, %g]: %w", t0, t1, dynamo.ErrParameterBounds)
	}
	for i, te := range tEval {
		if te < t0 || te > t1 || math.IsNaN(te) {
			return fmt.Errorf("sample time %g outside [%g, %g]: %w", te, t0, t1, dynamo.ErrParameterBounds)
		}
		if i > 0 && te < tEval[i-1] {
			return fmt.Errorf("sample times not sorted at index %d: %w", i, dynamo.ErrParameterBounds)
		}
	}
	return nil
}
