package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"lvbench/internal/backends"
	"lvbench/internal/bench"
	"lvbench/internal/observe"
	"lvbench/internal/ode"
)

const (
	DefaultSamples = 10000
	DefaultSigma   = 0.49
	DefaultRelTol  = 1e-3
	DefaultSeed    = 1
)

type Config struct {
	Experiment ExperimentConfig `yaml:"experiment"`
	Solver     SolverConfig     `yaml:"solver"`
	Sampler    SamplerConfig    `yaml:"sampler"`
	Backends   []string         `yaml:"backends"`
	Output     OutputConfig     `yaml:"output"`
}

type ExperimentConfig struct {
	Truth          []float64 `yaml:"truth"`
	U0             []float64 `yaml:"u0"`
	T0             float64   `yaml:"t0"`
	T1             float64   `yaml:"t1"`
	Sigma          float64   `yaml:"sigma"`
	ObsStart       float64   `yaml:"obs_start"`
	ObsStop        float64   `yaml:"obs_stop"`
	ObsCount       int       `yaml:"obs_count"`
	Seed           uint64    `yaml:"seed"`
	TimeoutSeconds float64   `yaml:"timeout_seconds"`
}

type SolverConfig struct {
	RelTol   float64 `yaml:"rel_tol"`
	AbsTol   float64 `yaml:"abs_tol"`
	MaxSteps int     `yaml:"max_steps"`
}

type SamplerConfig struct {
	Samples       int     `yaml:"samples"`
	Burn          int     `yaml:"burn"`
	TargetAccept  float64 `yaml:"target_accept"`
	ProposalScale float64 `yaml:"proposal_scale"`
	Chains        int     `yaml:"chains"`
	StepSize      float64 `yaml:"step_size"`
	Leapfrogs     int     `yaml:"leapfrogs"`
	Depth         float64 `yaml:"depth"`
	WarmStart     int     `yaml:"warm_start"`
	ModelStep     float64 `yaml:"model_step"`
	StanBin       string  `yaml:"stan_bin"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

func DefaultConfig() *Config {
	return &Config{
		Experiment: ExperimentConfig{
			Truth:    []float64{1.5, 1.0, 3.0, 1.0},
			U0:       []float64{1, 1},
			T0:       0,
			T1:       10,
			Sigma:    DefaultSigma,
			ObsStart: 1,
			ObsStop:  10,
			ObsCount: 10,
			Seed:     DefaultSeed,
		},
		Solver: SolverConfig{
			RelTol:   DefaultRelTol,
			AbsTol:   1e-8,
			MaxSteps: 10000,
		},
		Sampler: SamplerConfig{
			Samples: DefaultSamples,
		},
		Backends: backends.Default(),
		Output:   OutputConfig{Dir: "runs"},
	}
}

// Load reads path over the defaults, so partial files only override
// the keys they mention.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GetExperiment assembles the benchmark experiment this config
// describes. Slices are copied so the config stays inert.
func (c *Config) GetExperiment() bench.Experiment {
	solver := ode.DefaultConfig()
	if c.Solver.RelTol > 0 {
		solver.RelTol = c.Solver.RelTol
	}
	if c.Solver.AbsTol > 0 {
		solver.AbsTol = c.Solver.AbsTol
	}
	if c.Solver.MaxSteps > 0 {
		solver.MaxSteps = c.Solver.MaxSteps
	}

	return bench.Experiment{
		Truth:    append([]float64(nil), c.Experiment.Truth...),
		U0:       ode.State(append([]float64(nil), c.Experiment.U0...)),
		T0:       c.Experiment.T0,
		T1:       c.Experiment.T1,
		Sigma:    c.Experiment.Sigma,
		Grid:     observe.UniformGrid(c.Experiment.ObsStart, c.Experiment.ObsStop, c.Experiment.ObsCount),
		Seed:     c.Experiment.Seed,
		Solver:   solver,
		Backends: append([]string(nil), c.Backends...),
		Sampler:  c.GetSamplerConfig(),
		Timeout:  time.Duration(c.Experiment.TimeoutSeconds * float64(time.Second)),
	}
}

func (c *Config) GetSamplerConfig() backends.Config {
	return backends.Config{
		Samples:       c.Sampler.Samples,
		Burn:          c.Sampler.Burn,
		Seed:          c.Experiment.Seed,
		TargetAccept:  c.Sampler.TargetAccept,
		ProposalScale: c.Sampler.ProposalScale,
		Chains:        c.Sampler.Chains,
		StepSize:      c.Sampler.StepSize,
		Leapfrogs:     c.Sampler.Leapfrogs,
		Depth:         c.Sampler.Depth,
		WarmStart:     c.Sampler.WarmStart,
		ModelStep:     c.Sampler.ModelStep,
		BinPath:       c.Sampler.StanBin,
	}
}
