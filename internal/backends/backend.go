// Package backends runs posterior samplers behind a single interface
// so the benchmark driver can time them against each other on the
// same problem.
//
// Three in-process backends are registered: [MH] random-walk sampling
// on gonum's Metropolis-Hastings, and [HMC] and [NUTS] gradient-based
// sampling on infergo. A fourth, [Stan], shells out to a prebuilt
// CmdStan binary. All of them draw from the same posterior: truncated
// normal priors over the four Lotka-Volterra rates, an inverse-gamma
// prior over the noise scale, and a Gaussian likelihood around the
// simulated trajectory.
package backends

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"lvbench/internal/chain"
	"lvbench/internal/observe"
	"lvbench/internal/ode"
	"lvbench/internal/priors"
)

// ErrBackendFailure marks errors raised by a backend itself, as
// opposed to a rejected sample. A forward solve that diverges inside
// the likelihood is not a failure; it scores -Inf and the sampler
// moves on.
var ErrBackendFailure = errors.New("backends: backend failure")

// Fail wraps err as a failure of the named backend so callers can
// test with errors.Is(err, ErrBackendFailure).
func Fail(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrBackendFailure, name, err)
}

// Problem is the inference task handed to every backend: recover the
// Lotka-Volterra rates and the observation noise from one dataset.
type Problem struct {
	U0     ode.State        // initial populations
	T0     float64          // integration start
	Data   *observe.Dataset // noisy observations, times ascending
	Priors *priors.Set
	Solver ode.Config // forward solver tolerances
}

func (p Problem) validate() error {
	if len(p.U0) != 2 {
		return fmt.Errorf("backends: initial state has %d components, want 2", len(p.U0))
	}
	if p.Data == nil || p.Data.Len() == 0 {
		return errors.New("backends: empty dataset")
	}
	if p.Priors == nil {
		return errors.New("backends: no priors")
	}
	return nil
}

// Config tunes a backend run. Zero values select defaults, so an
// empty Config is a valid 10000-sample run.
type Config struct {
	Samples int    // posterior draws to keep
	Burn    int    // warmup draws to discard before keeping
	Seed    uint64 // seeds every random source a backend owns

	// TargetAccept is the acceptance rate the sampler tunes toward
	// where it supports such a target (gonum-mh pilot tuning, CmdStan
	// adapt delta). NUTS adapts step size toward Depth instead.
	TargetAccept float64

	ProposalScale float64 // random-walk step (gonum-mh)
	Chains        int     // independent chains, merged in order (gonum-mh)

	StepSize  float64 // leapfrog step size (infergo backends)
	Leapfrogs int     // leapfrog steps per draw (infergo-hmc)
	Depth     float64 // target tree depth (infergo-nuts)
	WarmStart int     // momentum-optimizer steps before sampling (infergo backends)

	ModelStep float64 // fixed forward step inside the differentiable model

	BinPath string // compiled CmdStan model executable (cmdstan)
}

func (c Config) normalized() Config {
	if c.Samples <= 0 {
		c.Samples = 10000
	}
	if c.Burn <= 0 {
		c.Burn = c.Samples / 10
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
	if c.TargetAccept <= 0 || c.TargetAccept >= 1 {
		c.TargetAccept = 0.65
	}
	if c.ProposalScale <= 0 {
		c.ProposalScale = 0.02
	}
	if c.Chains <= 0 {
		c.Chains = 1
	}
	if c.StepSize <= 0 {
		c.StepSize = 0.05
	}
	if c.Leapfrogs <= 0 {
		c.Leapfrogs = 10
	}
	if c.Depth <= 0 {
		c.Depth = 5
	}
	if c.WarmStart <= 0 {
		c.WarmStart = 100
	}
	if c.ModelStep <= 0 {
		c.ModelStep = 0.05
	}
	return c
}

// Backend is one posterior sampler under benchmark.
type Backend interface {
	// Name identifies the backend in reports and on disk.
	Name() string

	// Run draws cfg.Samples constrained-space samples from the
	// posterior defined by prob. It honors ctx between draws and
	// reports backend-level errors wrapped in ErrBackendFailure.
	Run(ctx context.Context, prob Problem, cfg Config) (*chain.Chain, error)
}

// ParamNames are the sampled quantities in chain column order.
func ParamNames() []string {
	return []string{"a", "b", "c", "d", "sigma"}
}

var registry = map[string]func() Backend{
	"gonum-mh":     func() Backend { return MH{} },
	"infergo-hmc":  func() Backend { return HMC{} },
	"infergo-nuts": func() Backend { return NUTS{} },
	"cmdstan":      func() Backend { return Stan{} },
}

// New returns the named backend.
func New(name string) (Backend, error) {
	mk, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("backends: unknown backend %q", name)
	}
	return mk(), nil
}

// List returns the registered backend names, sorted.
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns the backends benchmarked against each other when
// none are named. CmdStan is opt-in because it needs an external
// binary.
func Default() []string {
	return []string{"infergo-nuts", "infergo-hmc", "gonum-mh"}
}
