package metrics

import (
	"math"

	"github.com/san-kum/breathsim/internal/dynamo"
	"github.com/san-kum/breathsim/internal/physics"
)

// Stability is the fraction of samples whose velocities all stay within
// threshold. Built from a field, the threshold is the field's VelocityLimit
// at the first sample, so any violation means energy was not conserved.
type Stability struct {
	name       string
	n          int
	field      *physics.BreathingField
	threshold  float64
	violations int
	samples    int
}

func NewStability(n int, threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		n:         n,
		threshold: threshold,
	}
}

// NewEnergyStability takes its threshold from the energy of the first sample.
func NewEnergyStability(field *physics.BreathingField) *Stability {
	return &Stability{
		name:  "stability",
		n:     field.N,
		field: field,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(x dynamo.State, t float64) {
	if s.field != nil && s.samples == 0 {
		s.threshold = s.field.VelocityLimit(x)
	}
	s.samples++
	_, dphi := x.Split(s.n)
	for _, val := range dphi {
		if math.Abs(val) > s.threshold {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// VelocityBound is the largest |dphi| seen at any site.
type VelocityBound struct {
	n   int
	max float64
}

func NewVelocityBound(n int) *VelocityBound {
	return &VelocityBound{n: n}
}

func (v *VelocityBound) Name() string { return "velocity_bound" }

func (v *VelocityBound) Observe(x dynamo.State, t float64) {
	_, dphi := x.Split(v.n)
	for _, val := range dphi {
		v.max = math.Max(v.max, math.Abs(val))
	}
}

func (v *VelocityBound) Value() float64 { return v.max }

func (v *VelocityBound) Reset() { v.max = 0 }
