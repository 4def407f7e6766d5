package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/breathsim/internal/dynamo"
)

// BreathingField is a 1-D lattice of coupled sine oscillators.
// State: [phi0..phiN-1, dphi0..dphiN-1]
//
//	kappa * phi''[i] = lambda^4 * sin(phi[i]) + g * (phi[l] + phi[r] - 2*phi[i])
//
// The ends are reflecting: a missing neighbor is the site itself.
type BreathingField struct {
	N        int
	Kappa    float64 // stiffness
	Lambda   float64 // energy scale
	Coupling float64 // nearest-neighbor coupling g
}

// NewBreathingField returns an n-site field; call Validate before use.
func NewBreathingField(n int, kappa, lambda, coupling float64) *BreathingField {
	return &BreathingField{
		N:        n,
		Kappa:    kappa,
		Lambda:   lambda,
		Coupling: coupling,
	}
}

// StateDim is 2N: positions then velocities.
func (b *BreathingField) StateDim() int { return 2 * b.N }

// Validate rejects an empty grid and a zero kappa.
func (b *BreathingField) Validate() error {
	if b.N < 1 {
		return fmt.Errorf("grid size %d: %w", b.N, dynamo.ErrParameterBounds)
	}
	if b.Kappa == 0 {
		return fmt.Errorf("kappa must be non-zero: %w", dynamo.ErrParameterBounds)
	}
	return nil
}

// Derive returns [dphi, phi'']. It panics if y is shorter than StateDim.
func (b *BreathingField) Derive(y dynamo.State, _ float64) dynamo.State {
	n := b.N
	if len(y) < 2*n {
		panic(fmt.Sprintf("breathing field: state length %d, want %d", len(y), 2*n))
	}
	dy := make(dynamo.State, 2*n)

	phi := y[:n]
	copy(dy[:n], y[n:2*n])

	l4 := b.lambda4()
	for i := 0; i < n; i++ {
		left, right := phi[i], phi[i]
		if i > 0 {
			left = phi[i-1]
		}
		if i < n-1 {
			right = phi[i+1]
		}
		neighbor := b.Coupling * (left + right - 2*phi[i])
		dy[n+i] = (l4*math.Sin(phi[i]) + neighbor) / b.Kappa
	}

	return dy
}

// Energy is the lattice Hamiltonian conserved by Derive:
// sum(kappa/2 * dphi^2) + sum(lambda^4 * cos(phi)) + g/2 * sum((phi[i+1]-phi[i])^2).
func (b *BreathingField) Energy(y dynamo.State) float64 {
	n := b.N
	if len(y) < 2*n {
		return 0
	}
	l4 := b.lambda4()
	ke, pe := 0.0, 0.0
	for i := 0; i < n; i++ {
		v := y[n+i]
		ke += 0.5 * b.Kappa * v * v
		pe += l4 * math.Cos(y[i])
		if i < n-1 {
			d := y[i+1] - y[i]
			pe += 0.5 * b.Coupling * d * d
		}
	}
	return ke + pe
}

// VelocityLimit bounds |dphi| at every site for as long as Energy stays at
// its value in y: kappa/2 * dphi^2 <= E + N*lambda^4. The bound needs
// kappa > 0 and g >= 0; otherwise it is +Inf.
func (b *BreathingField) VelocityLimit(y dynamo.State) float64 {
	if b.Kappa <= 0 || b.Coupling < 0 {
		return math.Inf(1)
	}
	room := b.Energy(y) + float64(b.N)*b.lambda4()
	return math.Sqrt(2 * math.Max(room, 0) / b.Kappa)
}

// SiteEnergy is the single-site part of Energy, ignoring coupling.
func (b *BreathingField) SiteEnergy(phi, dphi float64) float64 {
	return 0.5*b.Kappa*dphi*dphi + b.lambda4()*math.Cos(phi)
}

func (b *BreathingField) lambda4() float64 {
	l2 := b.Lambda * b.Lambda
	return l2 * l2
}

func (b *BreathingField) GetParams() map[string]float64 {
	return map[string]float64{
		"kappa":    b.Kappa,
		"lambda":   b.Lambda,
		"coupling": b.Coupling,
	}
}

func (b *BreathingField) SetParam(name string, value float64) error {
	switch name {
	case "kappa":
		if value == 0 {
			return fmt.Errorf("kappa must be non-zero: %w", dynamo.ErrParameterBounds)
		}
		b.Kappa = value
	case "lambda":
		b.Lambda = value
	case "coupling":
		b.Coupling = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
