package integrators

import (
	"context"
	"math"
	"testing"

	"lvbench/internal/ode"
)

func TestRK4_Step(t *testing.T) {
	r := NewRK4()
	dyn := &harmonicOscillator{}
	x := ode.State{1.0, 0.0}
	dst := make(ode.State, 2)

	h := 0.01
	for i := 0; i < 1000; i++ {
		r.Step(dyn, x, nil, float64(i)*h, h, dst)
		copy(x, dst)
	}

	if !x.IsValid() {
		t.Error("RK4 produced invalid state")
	}
	energy := 0.5 * (x[0]*x[0] + x[1]*x[1])
	if math.Abs(energy-0.5) > 1e-6 {
		t.Errorf("energy drifted to %v, want 0.5", energy)
	}
}

func TestSolveFixed_DenseOutput(t *testing.T) {
	sol, err := ode.SolveFixed(context.Background(), &harmonicOscillator{}, NewRK4(),
		ode.State{1.0, 0.0}, 0, 3, 0.05, nil)
	if err != nil {
		t.Fatalf("SolveFixed returned error: %v", err)
	}

	x := make(ode.State, 2)
	for ti := 0.0; ti <= 3; ti += 0.017 {
		if err := sol.AtInto(x, ti); err != nil {
			t.Fatalf("AtInto(%v) returned error: %v", ti, err)
		}
		if math.Abs(x[0]-math.Cos(ti)) > 1e-5 {
			t.Fatalf("at t=%v: x = %v, want %v", ti, x[0], math.Cos(ti))
		}
	}
}

func TestSolveFixed_FinalStepClamped(t *testing.T) {
	sol, err := ode.SolveFixed(context.Background(), &harmonicOscillator{}, NewRK4(),
		ode.State{1.0, 0.0}, 0, 1.03, 0.25, nil)
	if err != nil {
		t.Fatalf("SolveFixed returned error: %v", err)
	}

	ts := sol.Times()
	if got := ts[len(ts)-1]; got != 1.03 {
		t.Errorf("final time = %v, want 1.03", got)
	}
	if sol.Stats().Steps != 5 {
		t.Errorf("steps = %d, want 5", sol.Stats().Steps)
	}
}

func TestRK4_VsDormandPrince(t *testing.T) {
	rk4 := NewRK4()
	dp := NewDormandPrince()
	dyn := &harmonicOscillator{}

	x4 := ode.State{1.0, 0.0}
	x45 := ode.State{1.0, 0.0}
	dst := make(ode.State, 2)
	h := 0.1

	for i := 0; i < 100; i++ {
		rk4.Step(dyn, x4, nil, float64(i)*h, h, dst)
		copy(x4, dst)
		dp.TryStep(dyn, x45, nil, float64(i)*h, h, 1e-6, 1e-8, dst)
		copy(x45, dst)
	}

	t.Logf("RK4 final: [%.6f, %.6f]", x4[0], x4[1])
	t.Logf("DP final:  [%.6f, %.6f]", x45[0], x45[1])

	e4 := 0.5 * (x4[0]*x4[0] + x4[1]*x4[1])
	e45 := 0.5 * (x45[0]*x45[0] + x45[1]*x45[1])

	if math.Abs(e45-0.5) > math.Abs(e4-0.5) {
		t.Log("Warning: fifth order not more accurate than fourth for this case")
	}
}
