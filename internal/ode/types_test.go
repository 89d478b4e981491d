package ode

import (
	"errors"
	"math"
	"testing"
)

func TestState_Clone(t *testing.T) {
	s := State{1, 2, 3}
	c := s.Clone()
	c[0] = 99

	if s[0] != 1 {
		t.Error("Clone shares backing array with original")
	}
}

func TestState_IsValid(t *testing.T) {
	if !(State{1, 2, 3}).IsValid() {
		t.Error("finite state reported invalid")
	}
	if (State{1, math.NaN()}).IsValid() {
		t.Error("NaN state reported valid")
	}
	if (State{math.Inf(1), 0}).IsValid() {
		t.Error("Inf state reported valid")
	}
}

func TestState_Norm(t *testing.T) {
	if got := (State{3, 4}).Norm(); got != 5 {
		t.Errorf("Norm = %v, want 5", got)
	}
}

func TestConfig_Normalized(t *testing.T) {
	cfg := Config{}.normalized(10)

	if cfg.RelTol != 1e-6 || cfg.AbsTol != 1e-8 {
		t.Errorf("default tolerances wrong: rtol=%v atol=%v", cfg.RelTol, cfg.AbsTol)
	}
	if cfg.InitStep != 0.1 {
		t.Errorf("InitStep = %v, want span/100", cfg.InitStep)
	}
	if cfg.MaxStep != 1.0 {
		t.Errorf("MaxStep = %v, want span/10", cfg.MaxStep)
	}
	if cfg.MaxSteps != 10000 {
		t.Errorf("MaxSteps = %v, want 10000", cfg.MaxSteps)
	}

	custom := Config{RelTol: 1e-3, AbsTol: 1e-4, InitStep: 0.5, MaxStep: 2, MaxSteps: 7}.normalized(10)
	if custom.RelTol != 1e-3 || custom.InitStep != 0.5 || custom.MaxSteps != 7 {
		t.Error("normalized overwrote explicit values")
	}
}

func TestSolution_At(t *testing.T) {
	// Single linear segment u(θ) = θ over [0, 2].
	sol := &Solution{
		dim:  1,
		ts:   []float64{0, 2},
		coef: [][]float64{{0, 1, 0, 0, 0}},
	}

	got, err := sol.At(0.5)
	if err != nil {
		t.Fatalf("At returned error: %v", err)
	}
	if math.Abs(got[0]-0.25) > 1e-15 {
		t.Errorf("At(0.5) = %v, want 0.25", got[0])
	}

	if _, err := sol.At(3); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("At(3): want ErrOutOfRange, got %v", err)
	}
	if _, err := sol.At(-1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("At(-1): want ErrOutOfRange, got %v", err)
	}

	dst := make(State, 2)
	if err := sol.AtInto(dst, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("AtInto wrong dim: want ErrDimensionMismatch, got %v", err)
	}
}

func TestSolution_AtEndpoints(t *testing.T) {
	sol := &Solution{
		dim:  1,
		ts:   []float64{0, 1, 2},
		coef: [][]float64{{0, 1, 0, 0, 0}, {1, 1, 0, 0, 0}},
	}

	for _, tc := range []struct{ t, want float64 }{
		{0, 0}, {1, 1}, {2, 2}, {1.5, 1.5},
	} {
		got, err := sol.At(tc.t)
		if err != nil {
			t.Fatalf("At(%v) returned error: %v", tc.t, err)
		}
		if math.Abs(got[0]-tc.want) > 1e-15 {
			t.Errorf("At(%v) = %v, want %v", tc.t, got[0], tc.want)
		}
	}
}

func TestSolveError_Unwrap(t *testing.T) {
	err := &SolveError{Time: 1.5, Step: 10, Wrapped: ErrUnstable}

	if !errors.Is(err, ErrUnstable) {
		t.Error("SolveError does not unwrap to sentinel")
	}
	if err.Error() != ErrUnstable.Error() {
		t.Errorf("Error() = %q", err.Error())
	}
}
