package observe

import (
	"bytes"
	"context"
	"math"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"

	"lvbench/internal/integrators"
	"lvbench/internal/ode"
	"lvbench/internal/physics"
)

func solveTruth(t *testing.T) *ode.Solution {
	t.Helper()
	model := physics.NewLotkaVolterra()
	sim := ode.NewSimulator(model, integrators.NewDormandPrince(), ode.DefaultConfig())
	sol, err := sim.Solve(context.Background(), model.DefaultState(), 0, 10, model.Params())
	if err != nil {
		t.Fatalf("truth solve failed: %v", err)
	}
	return sol
}

func TestUniformGrid(t *testing.T) {
	grid := UniformGrid(1, 10, 10)

	if len(grid) != 10 {
		t.Fatalf("len = %d, want 10", len(grid))
	}
	for i, want := range []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10} {
		if math.Abs(grid[i]-want) > 1e-12 {
			t.Errorf("grid[%d] = %v, want %v", i, grid[i], want)
		}
	}
}

func TestGenerate_ZeroNoise(t *testing.T) {
	sol := solveTruth(t)
	grid := UniformGrid(1, 10, 10)

	d, err := Generate(sol, grid, 0, rand.NewSource(1))
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	x := make(ode.State, 2)
	for i, ti := range grid {
		if err := sol.AtInto(x, ti); err != nil {
			t.Fatal(err)
		}
		if d.Prey[i] != x[0] || d.Predator[i] != x[1] {
			t.Errorf("t=%v: dataset (%v, %v) differs from trajectory (%v, %v)",
				ti, d.Prey[i], d.Predator[i], x[0], x[1])
		}
	}
}

func TestGenerate_Reproducible(t *testing.T) {
	sol := solveTruth(t)
	grid := UniformGrid(1, 10, 10)

	a, err := Generate(sol, grid, 0.49, rand.NewSource(42))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate(sol, grid, 0.49, rand.NewSource(42))
	if err != nil {
		t.Fatal(err)
	}
	c, err := Generate(sol, grid, 0.49, rand.NewSource(7))
	if err != nil {
		t.Fatal(err)
	}

	same := true
	for i := range grid {
		if a.Prey[i] != b.Prey[i] || a.Predator[i] != b.Predator[i] {
			t.Errorf("same seed diverged at index %d", i)
		}
		if a.Prey[i] != c.Prey[i] {
			same = false
		}
	}
	if same {
		t.Error("different seeds produced identical noise")
	}
}

func TestGenerate_NoiseScale(t *testing.T) {
	sol := solveTruth(t)
	grid := UniformGrid(1, 10, 500)

	d, err := Generate(sol, grid, 0.49, rand.NewSource(3))
	if err != nil {
		t.Fatal(err)
	}

	resid := make([]float64, 0, 2*len(grid))
	x := make(ode.State, 2)
	for i, ti := range grid {
		if err := sol.AtInto(x, ti); err != nil {
			t.Fatal(err)
		}
		resid = append(resid, d.Prey[i]-x[0], d.Predator[i]-x[1])
	}

	sd := stat.StdDev(resid, nil)
	if math.Abs(sd-0.49) > 0.05 {
		t.Errorf("residual sd = %v, want about 0.49", sd)
	}
}

func TestGenerate_NegativeSigma(t *testing.T) {
	sol := solveTruth(t)
	if _, err := Generate(sol, UniformGrid(1, 10, 10), -0.1, rand.NewSource(1)); err == nil {
		t.Error("expected error for negative sigma")
	}
}

func TestDataset_CSVRoundTrip(t *testing.T) {
	sol := solveTruth(t)
	d, err := Generate(sol, UniformGrid(1, 10, 10), 0.49, rand.NewSource(5))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := d.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV returned error: %v", err)
	}
	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV returned error: %v", err)
	}

	if got.Len() != d.Len() {
		t.Fatalf("round trip length %d, want %d", got.Len(), d.Len())
	}
	for i := range d.Times {
		if got.Times[i] != d.Times[i] || got.Prey[i] != d.Prey[i] || got.Predator[i] != d.Predator[i] {
			t.Errorf("row %d differs after round trip", i)
		}
	}
}
