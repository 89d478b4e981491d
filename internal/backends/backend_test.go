package backends

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/exp/rand"

	"lvbench/internal/integrators"
	"lvbench/internal/observe"
	"lvbench/internal/ode"
	"lvbench/internal/physics"
	"lvbench/internal/priors"
)

// testProblem builds a small recovery problem: noisy observations of
// the true parameters at the usual ten time points.
func testProblem(t *testing.T) Problem {
	t.Helper()
	model := physics.NewLotkaVolterra()
	sim := ode.NewSimulator(model, integrators.NewDormandPrince(), ode.DefaultConfig())
	sol, err := sim.Solve(context.Background(), ode.State{1, 1}, 0, 10, ode.Params{1.5, 1.0, 3.0, 1.0})
	if err != nil {
		t.Fatalf("truth solve failed: %v", err)
	}
	data, err := observe.Generate(sol, observe.UniformGrid(1, 10, 10), 0.49, rand.NewSource(42))
	if err != nil {
		t.Fatalf("dataset generation failed: %v", err)
	}

	solver := ode.DefaultConfig()
	solver.RelTol = 1e-3
	return Problem{
		U0:     ode.State{1, 1},
		T0:     0,
		Data:   data,
		Priors: priors.Default(rand.NewSource(7)),
		Solver: solver,
	}
}

func TestNew_Registered(t *testing.T) {
	for _, name := range List() {
		b, err := New(name)
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if b.Name() != name {
			t.Errorf("New(%q).Name() = %q", name, b.Name())
		}
	}
}

func TestNew_Unknown(t *testing.T) {
	_, err := New("quantum-annealer")
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if !strings.Contains(err.Error(), "unknown backend") {
		t.Errorf("error %q does not name the problem", err)
	}
}

func TestDefault_AllRegistered(t *testing.T) {
	for _, name := range Default() {
		if _, err := New(name); err != nil {
			t.Errorf("default backend %q not registered: %v", name, err)
		}
	}
}

func TestConfig_Normalized(t *testing.T) {
	cfg := Config{}.normalized()

	if cfg.Samples != 10000 {
		t.Errorf("Samples = %d, want 10000", cfg.Samples)
	}
	if cfg.Burn != 1000 {
		t.Errorf("Burn = %d, want 1000", cfg.Burn)
	}
	if cfg.TargetAccept != 0.65 {
		t.Errorf("TargetAccept = %v, want 0.65", cfg.TargetAccept)
	}
	if cfg.Chains != 1 || cfg.Seed == 0 {
		t.Errorf("Chains = %d, Seed = %d; want 1 and nonzero", cfg.Chains, cfg.Seed)
	}

	cfg = Config{Samples: 50, TargetAccept: 0.3}.normalized()
	if cfg.Samples != 50 || cfg.Burn != 5 || cfg.TargetAccept != 0.3 {
		t.Errorf("explicit values not preserved: %+v", cfg)
	}
}

func TestFail_WrapsSentinel(t *testing.T) {
	cause := errors.New("the disk is on fire")
	err := Fail("gonum-mh", cause)

	if !errors.Is(err, ErrBackendFailure) {
		t.Error("Fail result does not match ErrBackendFailure")
	}
	if !errors.Is(err, cause) {
		t.Error("Fail result does not preserve the cause")
	}
	if !strings.Contains(err.Error(), "gonum-mh") {
		t.Errorf("error %q does not name the backend", err)
	}
}

func TestProblem_Validate(t *testing.T) {
	good := testProblem(t)
	if err := good.validate(); err != nil {
		t.Fatalf("valid problem rejected: %v", err)
	}

	bad := good
	bad.U0 = ode.State{1}
	if err := bad.validate(); err == nil {
		t.Error("one-component initial state accepted")
	}

	bad = good
	bad.Data = nil
	if err := bad.validate(); err == nil {
		t.Error("nil dataset accepted")
	}

	bad = good
	bad.Data = &observe.Dataset{}
	if err := bad.validate(); err == nil {
		t.Error("empty dataset accepted")
	}

	bad = good
	bad.Priors = nil
	if err := bad.validate(); err == nil {
		t.Error("missing priors accepted")
	}
}
