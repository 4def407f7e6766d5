package metrics

import (
	"github.com/san-kum/breathsim/internal/dynamo"
	"github.com/san-kum/breathsim/internal/physics"
)

// Default returns the metrics recorded for every breathing-field run.
func Default(field *physics.BreathingField) []dynamo.Metric {
	return []dynamo.Metric{
		NewEnergy(field),
		NewEnergyDrift(field),
		NewVelocityBound(field.N),
		NewFieldSpread(field.N),
		NewEnergyStability(field),
	}
}

// Evaluate resets ms, feeds them every sample and returns their values by name.
func Evaluate(ms []dynamo.Metric, times []float64, states []dynamo.State) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		for k, x := range states {
			m.Observe(x, times[k])
		}
		out[m.Name()] = m.Value()
	}
	return out
}
