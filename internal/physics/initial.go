package physics

import (
	"math"
	"math/rand/v2"

	"github.com/san-kum/breathsim/internal/dynamo"
)

// pcgStream is the fixed PCG increment paired with every seed. Changing it
// changes every seeded initial condition.
const pcgStream = 0x9e3779b97f4a7c15

// MaxInitialVelocity bounds the random initial velocities.
const MaxInitialVelocity = 0.1

// Initializer draws reproducible random initial conditions.
//
// The generator is math/rand/v2 PCG seeded with (uint64(seed), pcgStream).
// State(n) draws n field values first, phi = pi - 2*pi*u, which lies in
// (-pi, pi], then n velocities, dphi = -0.1 + 0.2*u, in [-0.1, 0.1], where
// each u is one Float64() draw. The same seed and n always yield the same
// bits.
type Initializer struct {
	seed int64
}

func NewInitializer(seed int64) *Initializer {
	return &Initializer{seed: seed}
}

func (in *Initializer) Seed() int64 { return in.seed }

// State returns a fresh [phi; dphi] vector of length 2n. Every call restarts
// the generator, so repeated calls return identical vectors.
func (in *Initializer) State(n int) dynamo.State {
	if n <= 0 {
		return dynamo.State{}
	}
	rng := rand.New(rand.NewPCG(uint64(in.seed), pcgStream))

	y := make(dynamo.State, 2*n)
	for i := 0; i < n; i++ {
		y[i] = math.Pi - 2*math.Pi*rng.Float64()
	}
	for i := 0; i < n; i++ {
		y[n+i] = -MaxInitialVelocity + 2*MaxInitialVelocity*rng.Float64()
	}
	return y
}
