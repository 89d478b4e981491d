// Package posterior builds the log-posterior density shared by the
// inference backends: Gaussian likelihood of the observations around
// the forward ODE solution, plus the prior log-density.
package posterior

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"lvbench/internal/integrators"
	"lvbench/internal/observe"
	"lvbench/internal/ode"
	"lvbench/internal/physics"
	"lvbench/internal/priors"
)

// LogPosterior evaluates the unnormalized log-posterior of
// (a, b, c, d, sigma) given a dataset. Candidate parameters flow
// through a forward solve on the observation grid; solver failures
// and prior support violations map to -Inf rather than errors, so
// samplers see a total function.
//
// Instances own solver scratch and are not safe for concurrent use;
// Clone gives each goroutine an independent evaluator over the same
// data.
type LogPosterior struct {
	u0     ode.State
	t0     float64
	grid   []float64
	prey   []float64
	pred   []float64
	pr     *priors.Set
	solver ode.Config

	sim *ode.Simulator
	out []ode.State
	p   ode.Params
}

func New(u0 ode.State, t0 float64, data *observe.Dataset, pr *priors.Set, solver ode.Config) *LogPosterior {
	lp := &LogPosterior{
		u0:     u0.Clone(),
		t0:     t0,
		grid:   append([]float64(nil), data.Times...),
		prey:   append([]float64(nil), data.Prey...),
		pred:   append([]float64(nil), data.Predator...),
		pr:     pr,
		solver: solver,
	}
	lp.initScratch()
	return lp
}

func (lp *LogPosterior) initScratch() {
	lp.sim = ode.NewSimulator(physics.NewLotkaVolterra(), integrators.NewDormandPrince(), lp.solver)
	lp.p = make(ode.Params, 4)
	lp.out = make([]ode.State, len(lp.grid))
	for i := range lp.out {
		lp.out[i] = make(ode.State, 2)
	}
}

// Clone returns an independent evaluator sharing the immutable data.
func (lp *LogPosterior) Clone() *LogPosterior {
	c := &LogPosterior{
		u0:     lp.u0,
		t0:     lp.t0,
		grid:   lp.grid,
		prey:   lp.prey,
		pred:   lp.pred,
		pr:     lp.pr,
		solver: lp.solver,
	}
	c.initScratch()
	return c
}

// Dim returns the length of the parameter vector.
func (lp *LogPosterior) Dim() int { return lp.pr.Len() }

// LogProb implements the target contract of gonum's samplers.
func (lp *LogPosterior) LogProb(theta []float64) float64 {
	lpr := lp.pr.LogProb(theta)
	if math.IsInf(lpr, -1) {
		return math.Inf(-1)
	}
	copy(lp.p, theta[:4])
	sigma := theta[4]

	if err := lp.sim.SolveGrid(lp.u0, lp.t0, lp.p, lp.grid, lp.out); err != nil {
		return math.Inf(-1)
	}

	ll := 0.0
	for i := range lp.grid {
		ll += distuv.Normal{Mu: lp.out[i][0], Sigma: sigma}.LogProb(lp.prey[i])
		ll += distuv.Normal{Mu: lp.out[i][1], Sigma: sigma}.LogProb(lp.pred[i])
	}
	if math.IsNaN(ll) {
		return math.Inf(-1)
	}
	return ll + lpr
}
