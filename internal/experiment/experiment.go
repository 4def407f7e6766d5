package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/breathsim/internal/config"
	"github.com/san-kum/breathsim/internal/dynamo"
	"github.com/san-kum/breathsim/internal/integrators"
	"github.com/san-kum/breathsim/internal/metrics"
	"github.com/san-kum/breathsim/internal/physics"
)

// Experiment is one configured run of the breathing field.
type Experiment struct {
	cfg     *config.Config
	field   *physics.BreathingField
	integ   dynamo.Integrator
	metrics []dynamo.Metric
	initial dynamo.State
}

// New validates cfg and builds the field, integrator and default metrics.
// The experiment keeps its own copy of cfg.
func New(cfg *config.Config) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()

	field := physics.NewBreathingField(cfg.GridSize, cfg.Kappa, cfg.Lambda, cfg.Coupling)
	if err := field.Validate(); err != nil {
		return nil, err
	}

	integ, err := NewRegistry().GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	return &Experiment{
		cfg:     cfg,
		field:   field,
		integ:   integ,
		metrics: metrics.Default(field),
	}, nil
}

func (e *Experiment) Config() *config.Config { return e.cfg.Clone() }

func (e *Experiment) Field() *physics.BreathingField { return e.field }

// SetInitialState replaces the seeded initial condition.
func (e *Experiment) SetInitialState(y0 dynamo.State) error {
	if len(y0) != e.field.StateDim() {
		return fmt.Errorf("initial state length %d, grid needs %d: %w", len(y0), e.field.StateDim(), dynamo.ErrDimensionMismatch)
	}
	e.initial = y0.Clone()
	return nil
}

// InitialState is the state the run starts from: the seeded draw unless
// SetInitialState was called.
func (e *Experiment) InitialState() dynamo.State {
	if e.initial != nil {
		return e.initial.Clone()
	}
	return physics.NewInitializer(e.cfg.Seed).State(e.cfg.GridSize)
}

func (e *Experiment) solverOptions() integrators.Options {
	return integrators.Options{
		RTol:      e.cfg.RTol,
		ATol:      e.cfg.ATol,
		FirstStep: e.cfg.FirstStep,
		MaxStep:   e.cfg.MaxStep,
		MaxSteps:  e.cfg.MaxSteps,
	}
}

// Run integrates from t=0 to t_max and samples n_times evenly spaced times,
// both ends included. A solver failure returns the error and no result.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	y0 := e.InitialState()
	tEval := SampleTimes(e.cfg.TMax, e.cfg.NTimes)

	slog.Info("run started",
		"grid", e.cfg.GridSize,
		"kappa", e.cfg.Kappa,
		"lambda", e.cfg.Lambda,
		"coupling", e.cfg.Coupling,
		"t_max", e.cfg.TMax,
		"integrator", e.cfg.Integrator,
	)
	start := time.Now()

	var (
		sol *integrators.Solution
		err error
	)
	switch in := e.integ.(type) {
	case *integrators.RK45:
		sol, err = in.Solve(ctx, e.field, y0, 0, e.cfg.TMax, tEval, e.solverOptions())
	default:
		sol, err = integrators.SolveFixed(ctx, in, e.field, y0, 0, e.cfg.TMax, e.cfg.Dt, tEval)
	}
	if err != nil {
		slog.Error("run failed", "integrator", e.cfg.Integrator, "err", err)
		return nil, fmt.Errorf("integrate with %s: %w", e.cfg.Integrator, err)
	}

	res := newResult(e.cfg, sol)
	res.Metrics = metrics.Evaluate(e.metrics, sol.Times, sol.States)
	res.Elapsed = time.Since(start)

	slog.Info("run finished",
		"steps", sol.Stats.Steps,
		"rejected", sol.Stats.Rejected,
		"energy_drift", res.Metrics["energy_drift"],
		"elapsed", res.Elapsed,
	)

	return res, nil
}

// SampleTimes returns n evenly spaced times on [0, tMax], the last exactly tMax.
func SampleTimes(tMax float64, n int) []float64 {
	if n < 2 {
		return []float64{tMax}
	}
	ts := floats.Span(make([]float64, n), 0, tMax)
	ts[n-1] = tMax
	return ts
}
