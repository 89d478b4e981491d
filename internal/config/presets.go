package config

import "sort"

// presets are ready-made benchmark configurations. Each entry builds a
// fresh Config so callers can mutate the result freely.
var presets = map[string]func() *Config{
	"default": DefaultConfig,
	"quick":   quickPreset,
	"precise": precisePreset,
	"exact":   exactPreset,
}

// quickPreset trades posterior quality for a benchmark run that
// finishes in seconds. Good for smoke-testing a new backend setup.
func quickPreset() *Config {
	cfg := DefaultConfig()
	cfg.Sampler.Samples = 1000
	cfg.Sampler.Burn = 200
	cfg.Sampler.ModelStep = 0.1
	cfg.Backends = []string{"infergo-nuts", "gonum-mh"}
	return cfg
}

// precisePreset tightens the forward solver and lengthens the chains.
func precisePreset() *Config {
	cfg := DefaultConfig()
	cfg.Solver.RelTol = 1e-6
	cfg.Sampler.Samples = 20000
	cfg.Sampler.Burn = 5000
	cfg.Sampler.ModelStep = 0.02
	return cfg
}

// exactPreset generates exact observations. The posterior then
// concentrates on the true rates, which makes recovery failures easy
// to spot.
func exactPreset() *Config {
	cfg := DefaultConfig()
	cfg.Experiment.Sigma = 0
	cfg.Sampler.Samples = 2000
	cfg.Sampler.Burn = 500
	return cfg
}

// GetPreset returns a fresh copy of the named preset, or nil if no
// such preset exists.
func GetPreset(name string) *Config {
	mk, ok := presets[name]
	if !ok {
		return nil
	}
	return mk()
}

// ListPresets returns the available preset names, sorted.
func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
