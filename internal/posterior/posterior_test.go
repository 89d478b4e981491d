package posterior

import (
	"context"
	"math"
	"testing"

	"golang.org/x/exp/rand"

	"lvbench/internal/integrators"
	"lvbench/internal/observe"
	"lvbench/internal/ode"
	"lvbench/internal/physics"
	"lvbench/internal/priors"
)

var truth = []float64{1.5, 1.0, 3.0, 1.0, 0.2}

func exactDataset(t testing.TB) *observe.Dataset {
	t.Helper()
	model := physics.NewLotkaVolterra()
	sim := ode.NewSimulator(model, integrators.NewDormandPrince(), ode.DefaultConfig())
	sol, err := sim.Solve(context.Background(), model.DefaultState(), 0, 10, ode.Params(truth[:4]))
	if err != nil {
		t.Fatalf("truth solve failed: %v", err)
	}
	d, err := observe.Generate(sol, observe.UniformGrid(1, 10, 10), 0, rand.NewSource(1))
	if err != nil {
		t.Fatalf("dataset generation failed: %v", err)
	}
	return d
}

func newTarget(t testing.TB) *LogPosterior {
	t.Helper()
	return New(ode.State{1, 1}, 0, exactDataset(t), priors.Default(rand.NewSource(2)), ode.DefaultConfig())
}

func TestLogPosterior_FiniteAtTruth(t *testing.T) {
	lp := newTarget(t)

	got := lp.LogProb(truth)
	if math.IsInf(got, 0) || math.IsNaN(got) {
		t.Fatalf("LogProb at truth = %v, want finite", got)
	}
}

func TestLogPosterior_PeaksAtTruth(t *testing.T) {
	lp := newTarget(t)
	atTruth := lp.LogProb(truth)

	// Exact data: any rate perturbation must lower the density.
	for i := 0; i < 4; i++ {
		for _, delta := range []float64{-0.3, 0.3} {
			theta := append([]float64(nil), truth...)
			theta[i] += delta
			lo, hi := priors.Default(nil).At(i).Bounds()
			if theta[i] < lo || theta[i] > hi {
				continue
			}
			if got := lp.LogProb(theta); got >= atTruth {
				t.Errorf("perturbing component %d by %v: LogProb %v >= %v at truth",
					i, delta, got, atTruth)
			}
		}
	}
}

func TestLogPosterior_OutOfSupport(t *testing.T) {
	lp := newTarget(t)

	cases := [][]float64{
		{0.4, 1.0, 3.0, 1.0, 0.2},  // a below bound
		{1.5, 2.1, 3.0, 1.0, 0.2},  // b above bound
		{1.5, 1.0, 0.9, 1.0, 0.2},  // c below bound
		{1.5, 1.0, 3.0, 1.0, 0.0},  // sigma zero
		{1.5, 1.0, 3.0, 1.0, -1.0}, // sigma negative
	}
	for _, theta := range cases {
		if got := lp.LogProb(theta); !math.IsInf(got, -1) {
			t.Errorf("LogProb(%v) = %v, want -Inf", theta, got)
		}
	}
}

func TestLogPosterior_SolverFailure(t *testing.T) {
	// A step budget too small to reach the grid forces a solver
	// failure, which must surface as -Inf, not an error or panic.
	cfg := ode.DefaultConfig()
	cfg.MaxSteps = 3
	lp := New(ode.State{1, 1}, 0, exactDataset(t), priors.Default(rand.NewSource(2)), cfg)

	if got := lp.LogProb(truth); !math.IsInf(got, -1) {
		t.Errorf("LogProb under failing solver = %v, want -Inf", got)
	}
}

func TestLogPosterior_Deterministic(t *testing.T) {
	lp := newTarget(t)
	theta := []float64{1.4, 0.9, 3.2, 1.1, 0.5}

	a := lp.LogProb(theta)
	b := lp.LogProb(theta)
	if a != b {
		t.Errorf("repeated evaluation differs: %v vs %v", a, b)
	}
}

func TestLogPosterior_CloneAgrees(t *testing.T) {
	lp := newTarget(t)
	clone := lp.Clone()
	theta := []float64{1.6, 1.1, 2.8, 0.9, 0.3}

	if a, b := lp.LogProb(theta), clone.LogProb(theta); a != b {
		t.Errorf("clone disagrees: %v vs %v", a, b)
	}
}

func BenchmarkLogPosterior(b *testing.B) {
	lp := newTarget(b)
	theta := []float64{1.4, 0.9, 3.2, 1.1, 0.5}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		lp.LogProb(theta)
	}
}
