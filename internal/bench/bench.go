// Package bench times posterior samplers against each other on one
// shared parameter-recovery problem.
package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/rand"

	"lvbench/internal/backends"
	"lvbench/internal/chain"
	"lvbench/internal/integrators"
	"lvbench/internal/observe"
	"lvbench/internal/ode"
	"lvbench/internal/physics"
	"lvbench/internal/priors"
)

// Experiment pins everything a benchmark depends on: the truth, the
// observation design, the likelihood solver, and the per-backend
// sampler settings. Two runs of the same experiment see the same
// dataset.
type Experiment struct {
	Truth  []float64 // a, b, c, d used to simulate the data
	U0     ode.State // initial populations
	T0, T1 float64   // integration span
	Sigma  float64   // observation noise scale
	Grid   []float64 // observation times, ascending
	Seed   uint64

	Solver   ode.Config // tolerances for the in-likelihood solver
	Backends []string
	Sampler  backends.Config
	Timeout  time.Duration // per backend, 0 means none
}

// Default is the canonical recovery benchmark: the textbook rates,
// unit initial populations, ten noisy observations over ten time
// units.
func Default() Experiment {
	solver := ode.DefaultConfig()
	solver.RelTol = 1e-3
	return Experiment{
		Truth:    []float64{1.5, 1.0, 3.0, 1.0},
		U0:       ode.State{1, 1},
		T0:       0,
		T1:       10,
		Sigma:    0.49,
		Grid:     observe.UniformGrid(1, 10, 10),
		Seed:     1,
		Solver:   solver,
		Backends: backends.Default(),
	}
}

func (e Experiment) Validate() error {
	if len(e.Truth) != 4 {
		return fmt.Errorf("bench: truth has %d parameters, want 4", len(e.Truth))
	}
	if len(e.U0) != 2 {
		return fmt.Errorf("bench: initial state has %d components, want 2", len(e.U0))
	}
	if e.T1 <= e.T0 {
		return fmt.Errorf("bench: empty span [%g, %g]", e.T0, e.T1)
	}
	if len(e.Grid) == 0 {
		return errors.New("bench: empty observation grid")
	}
	if e.Sigma < 0 {
		return fmt.Errorf("bench: negative noise scale %g", e.Sigma)
	}
	if len(e.Backends) == 0 {
		return errors.New("bench: no backends requested")
	}
	return nil
}

// Run is one backend's timed result.
type Run struct {
	Backend string
	Elapsed time.Duration
	Chain   *chain.Chain // nil when Err is set
	Summary chain.Summary
	Err     error
}

// Failed reports whether the backend produced no chain.
func (r Run) Failed() bool { return r.Err != nil }

// Result is a complete benchmark: the dataset every backend saw and
// one Run per requested backend, in request order.
type Result struct {
	Experiment Experiment
	Data       *observe.Dataset
	Started    time.Time
	Runs       []Run
}

// MakeDataset simulates the truth with a tight-tolerance solve and
// overlays seeded noise, so the dataset is reproducible from the
// experiment alone.
func MakeDataset(exp Experiment) (*observe.Dataset, error) {
	if err := exp.Validate(); err != nil {
		return nil, err
	}
	sim := ode.NewSimulator(physics.NewLotkaVolterra(), integrators.NewDormandPrince(), ode.DefaultConfig())
	sol, err := sim.Solve(context.Background(), exp.U0, exp.T0, exp.T1, ode.Params(exp.Truth))
	if err != nil {
		return nil, fmt.Errorf("bench: simulating truth: %w", err)
	}
	return observe.Generate(sol, exp.Grid, exp.Sigma, rand.NewSource(exp.Seed))
}

// Driver runs experiments one backend at a time.
type Driver struct {
	// Progress, when non-nil, observes each run as it finishes.
	Progress func(Run)
}

// Run generates one dataset and hands every backend identical inputs,
// sequentially and in request order. A failing backend is recorded in
// its Run and the benchmark continues; only a bad experiment or a
// canceled context ends it early.
func (dr *Driver) Run(ctx context.Context, exp Experiment) (*Result, error) {
	if err := exp.Validate(); err != nil {
		return nil, err
	}
	data, err := MakeDataset(exp)
	if err != nil {
		return nil, err
	}
	prob := backends.Problem{
		U0:     exp.U0.Clone(),
		T0:     exp.T0,
		Data:   data,
		Priors: priors.Default(rand.NewSource(exp.Seed)),
		Solver: exp.Solver,
	}

	res := &Result{Experiment: exp, Data: data, Started: time.Now()}
	for _, name := range exp.Backends {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		run := dr.runOne(ctx, name, prob, exp)
		res.Runs = append(res.Runs, run)
		if dr.Progress != nil {
			dr.Progress(run)
		}
	}
	return res, nil
}

func (dr *Driver) runOne(ctx context.Context, name string, prob backends.Problem, exp Experiment) (run Run) {
	run.Backend = name
	b, err := backends.New(name)
	if err != nil {
		run.Err = err
		return run
	}

	if exp.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, exp.Timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		run.Elapsed = time.Since(start)
		if r := recover(); r != nil {
			run.Chain = nil
			run.Summary = chain.Summary{}
			run.Err = backends.Fail(name, fmt.Errorf("panic: %v", r))
		}
	}()

	ch, err := b.Run(ctx, prob, exp.Sampler)
	if err != nil {
		run.Err = err
		return run
	}
	run.Chain = ch
	run.Summary = chain.Summarize(ch)
	return run
}
