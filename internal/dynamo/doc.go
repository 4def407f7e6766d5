// Package dynamo provides core simulation primitives for dynamical systems.
//
// The package defines the fundamental interfaces and types for numerical
// integration of ordinary differential equations (ODEs):
//
//   - [State]: flat state vector
//   - [System]: interface for ODE systems (dy/dt = f(y, t))
//   - [Integrator]: fixed-step numerical integrator
//   - [AdaptiveIntegrator]: integrator with embedded error control
//   - [Metric]: observer reducing sampled states to a scalar
//
// Solver failures are reported with the sentinel errors in this package,
// usually wrapped in a [SimulationError] carrying the step and time:
//
//	sol, err := integrators.NewRK45().Solve(ctx, sys, y0, 0, tMax, tEval, opts)
//	if errors.Is(err, dynamo.ErrStepTooSmall) {
//	    // shorten the horizon or relax the tolerances
//	}
package dynamo
