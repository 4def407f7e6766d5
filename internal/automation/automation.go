package automation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/breathsim/internal/config"
	"github.com/san-kum/breathsim/internal/dynamo"
	"github.com/san-kum/breathsim/internal/experiment"
)

// Scenario is a scripted list of runs sharing a base configuration.
type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Base        string        `yaml:"base"`
	Runs        []ScenarioRun `yaml:"runs"`
}

// ScenarioRun is a single run in a scenario. Preset replaces the scenario
// base; Params are applied on top with config.SetParam.
type ScenarioRun struct {
	Name   string             `yaml:"name"`
	Preset string             `yaml:"preset"`
	Params map[string]float64 `yaml:"params"`
	SaveAs string             `yaml:"save_as"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if len(scenario.Runs) == 0 {
		return nil, fmt.Errorf("scenario %s has no runs", path)
	}

	return &scenario, nil
}

// Config resolves the configuration of one run against base.
func (r *ScenarioRun) Config(base *config.Config) (*config.Config, error) {
	cfg := base.Clone()
	if r.Preset != "" {
		cfg = config.GetPreset(r.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", r.Preset)
		}
	}

	keys := make([]string, 0, len(r.Params))
	for k := range r.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := cfg.SetParam(k, r.Params[k]); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

type ScenarioResult struct {
	Name   string
	SaveAs string
	Result *experiment.Result
}

// RunScenario executes the runs in order and stops at the first failure,
// returning the results completed so far.
func RunScenario(ctx context.Context, scenario *Scenario, base *config.Config) ([]ScenarioResult, error) {
	if scenario.Base != "" {
		base = config.GetPreset(scenario.Base)
		if base == nil {
			return nil, fmt.Errorf("unknown base preset: %s", scenario.Base)
		}
	}

	results := make([]ScenarioResult, 0, len(scenario.Runs))

	for i, run := range scenario.Runs {
		name := run.Name
		if name == "" {
			name = fmt.Sprintf("run-%d", i+1)
		}
		slog.Info("scenario step", "scenario", scenario.Name, "step", i+1, "of", len(scenario.Runs), "name", name)

		cfg, err := run.Config(base)
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i+1, name, err)
		}

		exp, err := experiment.New(cfg)
		if err != nil {
			return results, fmt.Errorf("step %d (%s) setup: %w", i+1, name, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d (%s) run: %w", i+1, name, err)
		}

		results = append(results, ScenarioResult{Name: name, SaveAs: run.SaveAs, Result: result})
	}

	return results, nil
}

// ParameterSweep runs the base configuration across evenly spaced values of
// one parameter.
type ParameterSweep struct {
	Base      *config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
}

// SweepResult holds results from a parameter sweep
type SweepResult struct {
	ParamValue float64
	Result     *experiment.Result
	MaxEnergy  float64
	MinEnergy  float64
}

// RunSweep executes the sweep sequentially, one config copy per member.
func RunSweep(ctx context.Context, sweep *ParameterSweep) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step")
	}
	if _, ok := sweep.Base.Params()[sweep.ParamName]; !ok {
		return nil, fmt.Errorf("param %s cannot be swept", sweep.ParamName)
	}

	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	}

	results := make([]SweepResult, 0, sweep.NumSteps)

	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.ParamMin + float64(i)*paramStep

		cfg := sweep.Base.Clone()
		if err := cfg.SetParam(sweep.ParamName, paramVal); err != nil {
			return nil, err
		}

		exp, err := experiment.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.ParamName, paramVal, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.ParamName, paramVal, err)
		}

		minE, maxE := math.Inf(1), math.Inf(-1)
		for _, s := range result.States() {
			e := exp.Field().Energy(s)
			minE = math.Min(minE, e)
			maxE = math.Max(maxE, e)
		}

		results = append(results, SweepResult{
			ParamValue: paramVal,
			Result:     result,
			MaxEnergy:  maxE,
			MinEnergy:  minE,
		})

		slog.Info("sweep member finished", "step", i+1, "of", sweep.NumSteps, sweep.ParamName, paramVal)
	}

	return results, nil
}

// EnsembleConfig runs the base configuration once per seed in
// [FirstSeed, FirstSeed+NumTrials). Workers bounds the members run at once;
// zero means one per CPU.
type EnsembleConfig struct {
	Base      *config.Config
	FirstSeed int64
	NumTrials int
	Workers   int
}

// EnsembleResult is one member of a seed ensemble. A member whose solve
// failed carries the error and is not stable.
type EnsembleResult struct {
	Seed    int64
	Metrics map[string]float64
	Stable  bool
	Err     error
}

// RunEnsemble executes the members concurrently and returns them in seed
// order. Solver failures are recorded per member; only cancellation and
// setup errors abort the run.
func RunEnsemble(ctx context.Context, cfg *EnsembleConfig) ([]EnsembleResult, error) {
	if cfg.NumTrials < 0 {
		return nil, fmt.Errorf("ensemble size %d", cfg.NumTrials)
	}
	if err := cfg.Base.Validate(); err != nil {
		return nil, err
	}

	results := make([]EnsembleResult, cfg.NumTrials)
	var done atomic.Int64

	dynamo.ParallelFor(cfg.NumTrials, cfg.Workers, func(trial int) {
		seed := cfg.FirstSeed + int64(trial)
		results[trial].Seed = seed
		if ctx.Err() != nil {
			results[trial].Err = ctx.Err()
			return
		}

		member := cfg.Base.Clone()
		member.Seed = seed

		exp, err := experiment.New(member)
		if err != nil {
			results[trial].Err = err
			return
		}

		result, err := exp.Run(ctx)
		if err != nil {
			results[trial].Err = err
			return
		}
		results[trial].Metrics = result.Metrics
		results[trial].Stable = true

		if n := done.Add(1); n%10 == 0 {
			slog.Info("ensemble progress", "done", n, "of", cfg.NumTrials)
		}
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// EnsembleStats counts stable and failed members.
func EnsembleStats(results []EnsembleResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
