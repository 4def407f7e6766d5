package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/breathsim/internal/config"
)

func tinyConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.GridSize = 8
	cfg.TMax = 2
	cfg.NTimes = 11
	return cfg
}

const scenarioYAML = `
name: coupling-ladder
description: three couplings on a small lattice
runs:
  - name: free
    params: {coupling: 0, grid_size: 8, t_max: 2, n_times: 11}
  - params: {coupling: 2.5, grid_size: 8, t_max: 2, n_times: 11}
    save_as: mid
`

func TestLoadAndRunScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ladder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenarioYAML), 0644))

	sc, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "coupling-ladder", sc.Name)
	require.Len(t, sc.Runs, 2)

	results, err := RunScenario(context.Background(), sc, config.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "free", results[0].Name)
	assert.Equal(t, "run-2", results[1].Name)
	assert.Equal(t, "mid", results[1].SaveAs)
	assert.Equal(t, 0.0, results[0].Result.Config.Coupling)
	assert.Equal(t, 2.5, results[1].Result.Config.Coupling)
	assert.Len(t, results[1].Result.Field, 8)
}

func TestLoadScenarioEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: nothing\n"), 0644))

	_, err := LoadScenario(path)
	assert.Error(t, err)
}

func TestScenarioRunConfig(t *testing.T) {
	run := ScenarioRun{Preset: "short", Params: map[string]float64{"lambda": 0.9}}
	cfg, err := run.Config(config.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.GridSize)
	assert.Equal(t, 0.9, cfg.Lambda)

	_, err = (&ScenarioRun{Preset: "nope"}).Config(config.DefaultConfig())
	assert.Error(t, err)

	_, err = (&ScenarioRun{Params: map[string]float64{"mass": 1}}).Config(config.DefaultConfig())
	assert.Error(t, err)
}

func TestScenarioStopsAtFailure(t *testing.T) {
	sc := &Scenario{Runs: []ScenarioRun{
		{Name: "ok", Params: map[string]float64{"grid_size": 4, "t_max": 1, "n_times": 5}},
		{Name: "bad", Params: map[string]float64{"kappa": 0}},
		{Name: "never"},
	}}

	results, err := RunScenario(context.Background(), sc, config.DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	assert.Len(t, results, 1)
}

func TestRunSweep(t *testing.T) {
	sweep := &ParameterSweep{
		Base:      tinyConfig(),
		ParamName: "coupling",
		ParamMin:  0,
		ParamMax:  4,
		NumSteps:  3,
	}

	results, err := RunSweep(context.Background(), sweep)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, want := range []float64{0, 2, 4} {
		assert.Equal(t, want, results[i].ParamValue)
		assert.Equal(t, want, results[i].Result.Config.Coupling)
		assert.LessOrEqual(t, results[i].MinEnergy, results[i].MaxEnergy)
	}
	assert.Equal(t, 5.0, sweep.Base.Coupling, "sweep must not modify the base config")
}

func TestRunSweepRejectsUnknownParam(t *testing.T) {
	_, err := RunSweep(context.Background(), &ParameterSweep{Base: tinyConfig(), ParamName: "seed", NumSteps: 2})
	assert.Error(t, err)
}

func TestRunEnsemble(t *testing.T) {
	base := tinyConfig()
	results, err := RunEnsemble(context.Background(), &EnsembleConfig{Base: base, FirstSeed: 10, NumTrials: 3})
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, r := range results {
		assert.Equal(t, int64(10+i), r.Seed)
		assert.True(t, r.Stable)
		assert.Contains(t, r.Metrics, "energy_drift")
	}
	assert.NotEqual(t, results[0].Metrics["energy"], results[1].Metrics["energy"])

	stable, unstable := EnsembleStats(results)
	assert.Equal(t, 3, stable)
	assert.Equal(t, 0, unstable)
}

func TestRunEnsembleRecordsFailures(t *testing.T) {
	base := tinyConfig()
	base.MaxSteps = 1
	base.MaxStep = 0.01

	results, err := RunEnsemble(context.Background(), &EnsembleConfig{Base: base, FirstSeed: 1, NumTrials: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].Stable)
	assert.Error(t, results[0].Err)

	stable, unstable := EnsembleStats(results)
	assert.Equal(t, 0, stable)
	assert.Equal(t, 2, unstable)
}

func TestRunEnsembleWorkersKeepSeedOrder(t *testing.T) {
	base := tinyConfig()
	serial, err := RunEnsemble(context.Background(), &EnsembleConfig{Base: base, FirstSeed: 5, NumTrials: 4, Workers: 1})
	require.NoError(t, err)
	parallel, err := RunEnsemble(context.Background(), &EnsembleConfig{Base: base, FirstSeed: 5, NumTrials: 4, Workers: 4})
	require.NoError(t, err)

	require.Len(t, parallel, 4)
	for i := range serial {
		assert.Equal(t, serial[i].Seed, parallel[i].Seed)
		assert.Equal(t, serial[i].Metrics, parallel[i].Metrics)
	}
}

func TestRunEnsembleCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := RunEnsemble(ctx, &EnsembleConfig{Base: tinyConfig(), FirstSeed: 1, NumTrials: 3})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
}
