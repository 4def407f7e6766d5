package experiment

import (
	"math"
	"time"

	"github.com/san-kum/breathsim/internal/config"
	"github.com/san-kum/breathsim/internal/dynamo"
	"github.com/san-kum/breathsim/internal/integrators"
)

// Result is a sampled trajectory. Field and Velocity have one row per grid
// site and one column per sample time.
type Result struct {
	Config   *config.Config
	Times    []float64
	Field    [][]float64
	Velocity [][]float64
	Metrics  map[string]float64
	Stats    integrators.Stats
	Elapsed  time.Duration
}

func newResult(cfg *config.Config, sol *integrators.Solution) *Result {
	n, k := cfg.GridSize, len(sol.Times)

	field := make([][]float64, n)
	velocity := make([][]float64, n)
	for i := 0; i < n; i++ {
		field[i] = make([]float64, k)
		velocity[i] = make([]float64, k)
	}
	for j, y := range sol.States {
		for i := 0; i < n; i++ {
			field[i][j] = y[i]
			velocity[i][j] = y[n+i]
		}
	}

	return &Result{
		Config:   cfg.Clone(),
		Times:    append([]float64(nil), sol.Times...),
		Field:    field,
		Velocity: velocity,
		Stats:    sol.Stats,
	}
}

// NewResult assembles a result from stored arrays.
func NewResult(cfg *config.Config, times []float64, field, velocity [][]float64, m map[string]float64) *Result {
	return &Result{Config: cfg, Times: times, Field: field, Velocity: velocity, Metrics: m}
}

func (r *Result) GridSize() int { return len(r.Field) }

func (r *Result) Samples() int { return len(r.Times) }

// State reassembles the full state vector at sample k.
func (r *Result) State(k int) dynamo.State {
	n := len(r.Field)
	y := make(dynamo.State, 2*n)
	for i := 0; i < n; i++ {
		y[i] = r.Field[i][k]
		if r.Velocity != nil {
			y[n+i] = r.Velocity[i][k]
		}
	}
	return y
}

// States returns every sample as a state vector.
func (r *Result) States() []dynamo.State {
	out := make([]dynamo.State, len(r.Times))
	for k := range out {
		out[k] = r.State(k)
	}
	return out
}

// Profile is phi across the lattice at sample k.
func (r *Result) Profile(k int) []float64 {
	p := make([]float64, len(r.Field))
	for i := range r.Field {
		p[i] = r.Field[i][k]
	}
	return p
}

// SampleAt returns the index of the sample closest to t.
func (r *Result) SampleAt(t float64) int {
	best := 0
	for k, tk := range r.Times {
		if math.Abs(tk-t) < math.Abs(r.Times[best]-t) {
			best = k
		}
	}
	return best
}
