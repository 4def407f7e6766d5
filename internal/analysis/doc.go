// Package analysis characterizes sampled breathing-field runs.
//
//   - [PowerSpectrum], [DominantFrequency]: FFT of a site time series
//   - [LyapunovExponent]: largest exponent via trajectory separation
//   - [BifurcationDiagram]: local maxima of one component across a parameter sweep
//   - [PhasePortrait], [GeneratePoincareSection]: phase-space views of one site
//   - [Summarize], [NeighborCorrelation]: distribution and spatial statistics
//
// # Chaos Detection
//
// A positive largest Lyapunov exponent indicates chaotic dynamics:
//
//	lambda, err := analysis.LyapunovExponent(ctx, field, integrators.NewRK4(), y0, 0.01, 200, 1e-8, 10)
//	if err == nil && lambda > 0 {
//	    // sensitive to initial conditions
//	}
package analysis
