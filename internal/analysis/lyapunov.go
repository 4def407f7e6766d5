package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/breathsim/internal/dynamo"
)

// LyapunovExponent estimates the largest Lyapunov exponent by following a
// reference trajectory and a neighbor started perturbation away along every
// component. Every renorm steps the separation is logged and rescaled back
// to its initial size. A positive value indicates chaos.
func LyapunovExponent(
	ctx context.Context,
	dyn dynamo.System,
	integ dynamo.Integrator,
	x0 dynamo.State,
	dt, duration float64,
	perturbation float64,
	renorm int,
) (float64, error) {
	if len(x0) == 0 {
		return 0, nil
	}
	if !(dt > 0) || !(duration > 0) || !(perturbation > 0) {
		return 0, fmt.Errorf("dt %g, duration %g, perturbation %g: %w", dt, duration, perturbation, dynamo.ErrParameterBounds)
	}
	if renorm < 1 {
		renorm = 1
	}

	x := x0.Clone()
	xp := x0.Clone()
	d0 := perturbation
	shift := d0 / math.Sqrt(float64(len(x0)))
	for i := range xp {
		xp[i] += shift
	}

	steps := int(math.Round(duration / dt))
	sumLog := 0.0
	elapsed := 0.0
	t := 0.0

	for step := 1; step <= steps; step++ {
		if step%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}

		x = integ.Step(dyn, x, t, dt)
		xp = integ.Step(dyn, xp, t, dt)
		t += dt

		if step%renorm != 0 && step != steps {
			continue
		}
		if !x.IsValid() || !xp.IsValid() {
			return 0, &dynamo.SimulationError{Step: step, Time: t, State: x, Wrapped: dynamo.ErrUnstable}
		}

		sep := xp.Sub(x).Norm()
		elapsed = t
		if sep == 0 {
			continue
		}
		sumLog += math.Log(sep / d0)

		scale := d0 / sep
		for i := range xp {
			xp[i] = x[i] + (xp[i]-x[i])*scale
		}
	}

	if elapsed == 0 {
		return 0, nil
	}
	return sumLog / elapsed, nil
}
