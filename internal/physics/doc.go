// Package physics provides the breathing-field lattice model and its
// seeded initial conditions.
//
// [BreathingField] implements [dynamo.System], [dynamo.Hamiltonian] and
// [dynamo.Configurable]. [Initializer] produces the random starting state:
//
//	field := physics.NewBreathingField(200, 1.0, 0.7, 5.0)
//	y0 := physics.NewInitializer(42).State(field.N)
//	dy := field.Derive(y0, 0)
//
// # Energy Conservation
//
// The exact flow conserves [BreathingField.Energy]; its drift over a run
// is a cheap accuracy check on the integrator.
package physics
