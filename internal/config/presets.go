package config

import "sort"

var Presets = map[string]*Config{
	"reference": {
		GridSize: 200, Kappa: 1.0, Lambda: 0.7, Coupling: 5.0,
		TMax: 500, NTimes: 2000, Seed: 42, Integrator: "rk45",
	},
	"short": {
		GridSize: 64, Kappa: 1.0, Lambda: 0.7, Coupling: 5.0,
		TMax: 50, NTimes: 500, Seed: 42, Integrator: "rk45",
	},
	"decoupled": {
		GridSize: 64, Kappa: 1.0, Lambda: 0.7, Coupling: 0,
		TMax: 100, NTimes: 1000, Seed: 42, Integrator: "rk45",
		RTol: 1e-6, ATol: 1e-9,
	},
	"weak": {
		GridSize: 200, Kappa: 1.0, Lambda: 0.7, Coupling: 0.5,
		TMax: 500, NTimes: 2000, Seed: 42, Integrator: "rk45",
	},
	"stiff": {
		GridSize: 200, Kappa: 1.0, Lambda: 0.7, Coupling: 25.0,
		TMax: 200, NTimes: 1000, Seed: 42, Integrator: "rk45",
	},
	"linear": {
		GridSize: 128, Kappa: 1.0, Lambda: 0, Coupling: 5.0,
		TMax: 100, NTimes: 1000, Seed: 7, Integrator: "rk45",
	},
	"fixed": {
		GridSize: 200, Kappa: 1.0, Lambda: 0.7, Coupling: 5.0,
		TMax: 100, NTimes: 1000, Seed: 42, Integrator: "rk4", Dt: 0.01,
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
