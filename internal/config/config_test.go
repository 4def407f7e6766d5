package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/breathsim/internal/dynamo"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 200, cfg.GridSize)
	assert.Equal(t, 1.0, cfg.Kappa)
	assert.Equal(t, 0.7, cfg.Lambda)
	assert.Equal(t, 5.0, cfg.Coupling)
	assert.Equal(t, 500.0, cfg.TMax)
	assert.Equal(t, 2000, cfg.NTimes)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, "rk45", cfg.Integrator)
	assert.NoError(t, cfg.Validate())
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("decoupled")
	require.NotNil(t, cfg)
	assert.Equal(t, 0.0, cfg.Coupling)

	cfg.Coupling = 99
	assert.Equal(t, 0.0, GetPreset("decoupled").Coupling, "preset must not be mutated through a returned copy")
}

func TestGetPreset_NotFound(t *testing.T) {
	assert.Nil(t, GetPreset("nonexistent"))
}

func TestListPresets(t *testing.T) {
	names := ListPresets()
	require.Len(t, names, len(Presets))
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "reference")
}

func TestPresetsValid(t *testing.T) {
	for _, name := range ListPresets() {
		assert.NoError(t, GetPreset(name).Validate(), name)
	}
}

func TestReferencePresetMatchesDefaults(t *testing.T) {
	ref := GetPreset("reference")
	def := DefaultConfig()
	def.Dt = 0
	assert.Equal(t, def, ref)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty grid", func(c *Config) { c.GridSize = 0 }},
		{"zero kappa", func(c *Config) { c.Kappa = 0 }},
		{"negative horizon", func(c *Config) { c.TMax = -1 }},
		{"single sample", func(c *Config) { c.NTimes = 1 }},
		{"negative rtol", func(c *Config) { c.RTol = -1e-3 }},
		{"fixed step without dt", func(c *Config) { c.Integrator = "rk4"; c.Dt = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), dynamo.ErrParameterBounds)
		})
	}
}

func TestSetParam(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.SetParam("coupling", 2.5))
	require.NoError(t, cfg.SetParam("kappa", 3))
	assert.Equal(t, 2.5, cfg.Params()["coupling"])
	assert.Equal(t, 3.0, cfg.Params()["kappa"])

	assert.Error(t, cfg.SetParam("mass", 1))
}

func TestLoadSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")

	cfg := DefaultConfig()
	cfg.GridSize = 32
	cfg.Coupling = 0.25
	cfg.RTol = 1e-6
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("coupling: 0\nseed: 7\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Coupling)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, DefaultGridSize, cfg.GridSize)
}

func TestLoadIntoPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "over.yaml")
	require.NoError(t, os.WriteFile(path, []byte("t_max: 20\n"), 0644))

	cfg := GetPreset("short")
	require.NoError(t, LoadInto(path, cfg))
	assert.Equal(t, 20.0, cfg.TMax)
	assert.Equal(t, 64, cfg.GridSize, "keys absent from the file keep the preset value")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grid_size: [1, 2"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}
