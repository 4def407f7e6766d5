package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/breathsim/internal/dynamo"
)

const (
	DefaultGridSize   = 200
	DefaultKappa      = 1.0
	DefaultLambda     = 0.7
	DefaultCoupling   = 5.0
	DefaultTMax       = 500.0
	DefaultNTimes     = 2000
	DefaultSeed       = 42
	DefaultIntegrator = "rk45"
	DefaultDt         = 0.01
)

// Config describes one run of the breathing field. Solver fields left at zero
// fall back to the integrator defaults.
type Config struct {
	GridSize   int     `yaml:"grid_size" json:"grid_size"`
	Kappa      float64 `yaml:"kappa" json:"kappa"`
	Lambda     float64 `yaml:"lambda" json:"lambda"`
	Coupling   float64 `yaml:"coupling" json:"coupling"`
	TMax       float64 `yaml:"t_max" json:"t_max"`
	NTimes     int     `yaml:"n_times" json:"n_times"`
	Seed       int64   `yaml:"seed" json:"seed"`
	Integrator string  `yaml:"integrator" json:"integrator"`

	// Dt is the step of the fixed-step integrators; rk45 ignores it.
	Dt float64 `yaml:"dt,omitempty" json:"dt,omitempty"`

	RTol      float64 `yaml:"rtol,omitempty" json:"rtol,omitempty"`
	ATol      float64 `yaml:"atol,omitempty" json:"atol,omitempty"`
	FirstStep float64 `yaml:"first_step,omitempty" json:"first_step,omitempty"`
	MaxStep   float64 `yaml:"max_step,omitempty" json:"max_step,omitempty"`
	MaxSteps  int     `yaml:"max_steps,omitempty" json:"max_steps,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		GridSize:   DefaultGridSize,
		Kappa:      DefaultKappa,
		Lambda:     DefaultLambda,
		Coupling:   DefaultCoupling,
		TMax:       DefaultTMax,
		NTimes:     DefaultNTimes,
		Seed:       DefaultSeed,
		Integrator: DefaultIntegrator,
		Dt:         DefaultDt,
	}
}

func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Load reads a YAML file over the defaults, so a file only needs the keys it
// changes.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto overlays the keys present in a YAML file onto cfg.
func LoadInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func (c *Config) Validate() error {
	switch {
	case c.GridSize < 1:
		return fmt.Errorf("grid_size %d must be at least 1: %w", c.GridSize, dynamo.ErrParameterBounds)
	case c.Kappa == 0 || !finite(c.Kappa):
		return fmt.Errorf("kappa %g must be finite and non-zero: %w", c.Kappa, dynamo.ErrParameterBounds)
	case !finite(c.Lambda) || !finite(c.Coupling):
		return fmt.Errorf("lambda %g, coupling %g must be finite: %w", c.Lambda, c.Coupling, dynamo.ErrParameterBounds)
	case !(c.TMax > 0) || !finite(c.TMax):
		return fmt.Errorf("t_max %g must be positive: %w", c.TMax, dynamo.ErrParameterBounds)
	case c.NTimes < 2:
		return fmt.Errorf("n_times %d must be at least 2: %w", c.NTimes, dynamo.ErrParameterBounds)
	case c.RTol < 0 || c.ATol < 0 || c.FirstStep < 0 || c.MaxStep < 0 || c.MaxSteps < 0:
		return fmt.Errorf("solver options must not be negative: %w", dynamo.ErrParameterBounds)
	}
	if c.Integrator != "rk45" && !(c.Dt > 0) {
		return fmt.Errorf("integrator %s needs dt > 0, got %g: %w", c.Integrator, c.Dt, dynamo.ErrParameterBounds)
	}
	return nil
}

// Params returns the physical parameters by the names physics.BreathingField
// accepts in SetParam.
func (c *Config) Params() map[string]float64 {
	return map[string]float64{
		"kappa":    c.Kappa,
		"lambda":   c.Lambda,
		"coupling": c.Coupling,
	}
}

// SetParam sets a swept parameter by name.
func (c *Config) SetParam(name string, value float64) error {
	switch name {
	case "kappa":
		c.Kappa = value
	case "lambda":
		c.Lambda = value
	case "coupling", "g":
		c.Coupling = value
	case "seed":
		c.Seed = int64(value)
	case "t_max":
		c.TMax = value
	case "grid_size":
		c.GridSize = int(value)
	case "n_times":
		c.NTimes = int(value)
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
