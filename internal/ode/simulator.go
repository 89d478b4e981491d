package ode

import (
	"context"
	"fmt"
	"math"
)

// Step-size controller constants for embedded RK pairs.
const (
	stepSafety   = 0.9
	stepMinScale = 0.2
	stepMaxScale = 10.0
)

// Simulator drives an adaptive Stepper over a time span. It owns the
// loop: accept/reject decisions, step-size control, failure detection
// and dense-output collection.
type Simulator struct {
	sys  System
	step Stepper
	cfg  Config
	stat Stats

	x, dst State // loop scratch, reused across calls
}

func NewSimulator(sys System, step Stepper, cfg Config) *Simulator {
	return &Simulator{sys: sys, step: step, cfg: cfg}
}

// Stats reports counters from the most recent solve.
func (s *Simulator) Stats() Stats { return s.stat }

func (s *Simulator) ensureScratch(n int) {
	if len(s.x) != n {
		s.x = make(State, n)
		s.dst = make(State, n)
	}
}

// Solve integrates from u0 over [t0, t1] and returns a dense Solution.
// States are collected on the heap, one interpolation segment per
// accepted step.
func (s *Simulator) Solve(ctx context.Context, u0 State, t0, t1 float64, p Params) (*Solution, error) {
	n := s.sys.Dim()
	if len(u0) != n {
		return nil, ErrDimensionMismatch
	}
	if t1 <= t0 {
		return nil, fmt.Errorf("ode: t1 (%g) must exceed t0 (%g)", t1, t0)
	}
	cfg := s.cfg.normalized(t1 - t0)
	s.ensureScratch(n)
	s.stat = Stats{}

	dense, _ := s.step.(DenseStepper)
	sol := &Solution{dim: n, ts: []float64{t0}}
	copy(s.x, u0)
	t := t0
	h := math.Min(cfg.InitStep, t1-t0)

	for t < t1 {
		select {
		case <-ctx.Done():
			return nil, &SolveError{Time: t, Step: s.stat.Steps, Wrapped: ctx.Err()}
		default:
		}
		if s.stat.Steps+s.stat.Rejected >= cfg.MaxSteps {
			return nil, &SolveError{Time: t, Step: s.stat.Steps, Wrapped: ErrTooManySteps}
		}

		hTry := h
		if t+hTry > t1 {
			hTry = t1 - t
		}
		errNorm := s.step.TryStep(s.sys, s.x, p, t, hTry, cfg.RelTol, cfg.AbsTol, s.dst)
		s.stat.Evals += s.step.Stages()

		if math.IsNaN(errNorm) || errNorm > 1 {
			s.stat.Rejected++
			h = hTry * rejectScale(errNorm)
			if h < cfg.MinStep {
				return nil, &SolveError{Time: t, Step: s.stat.Steps, Wrapped: ErrStepTooSmall}
			}
			continue
		}
		if !s.dst.IsValid() {
			return nil, &SolveError{Time: t, Step: s.stat.Steps, Wrapped: ErrUnstable}
		}

		if dense != nil {
			seg := make([]float64, 5*n)
			dense.DenseCoeffs(seg)
			sol.coef = append(sol.coef, seg)
		} else {
			sol.coef = append(sol.coef, linearFallback(s.x, s.dst, n))
		}
		s.x, s.dst = s.dst, s.x
		t += hTry
		sol.ts = append(sol.ts, t)
		s.stat.Steps++
		s.stat.LastStep = hTry

		h = math.Min(hTry*acceptScale(errNorm), cfg.MaxStep)
	}

	sol.stat = s.stat
	return sol, nil
}

// SolveGrid integrates from u0 starting at t0 and writes the state at
// each grid time into out. No dense output is stored and no heap
// allocation occurs after scratch warm-up, which suits repeated calls
// from a likelihood loop. grid must be strictly ascending with
// grid[len-1] as the end of integration; out must hold len(grid)
// states of the system dimension.
func (s *Simulator) SolveGrid(u0 State, t0 float64, p Params, grid []float64, out []State) error {
	n := s.sys.Dim()
	if len(u0) != n || len(out) != len(grid) {
		return ErrDimensionMismatch
	}
	for i, o := range out {
		if len(o) != n {
			return ErrDimensionMismatch
		}
		if i > 0 && grid[i] <= grid[i-1] {
			return fmt.Errorf("ode: grid not strictly ascending at index %d", i)
		}
	}
	if len(grid) == 0 {
		return nil
	}
	if grid[0] < t0 {
		return fmt.Errorf("%w: grid starts at %g before t0=%g", ErrOutOfRange, grid[0], t0)
	}
	cfg := s.cfg.normalized(grid[len(grid)-1] - t0)
	s.ensureScratch(n)
	s.stat = Stats{}

	copy(s.x, u0)
	t := t0
	h := cfg.InitStep
	gi := 0
	for gi < len(grid) && grid[gi] <= t0 {
		copy(out[gi], s.x)
		gi++
	}

	for gi < len(grid) {
		if s.stat.Steps+s.stat.Rejected >= cfg.MaxSteps {
			return &SolveError{Time: t, Step: s.stat.Steps, Wrapped: ErrTooManySteps}
		}

		target := grid[gi]
		hTry := h
		landed := false
		if t+hTry >= target {
			hTry = target - t
			landed = true
		}
		errNorm := s.step.TryStep(s.sys, s.x, p, t, hTry, cfg.RelTol, cfg.AbsTol, s.dst)
		s.stat.Evals += s.step.Stages()

		if math.IsNaN(errNorm) || errNorm > 1 {
			s.stat.Rejected++
			h = hTry * rejectScale(errNorm)
			if h < cfg.MinStep {
				return &SolveError{Time: t, Step: s.stat.Steps, Wrapped: ErrStepTooSmall}
			}
			continue
		}
		if !s.dst.IsValid() {
			return &SolveError{Time: t, Step: s.stat.Steps, Wrapped: ErrUnstable}
		}

		s.x, s.dst = s.dst, s.x
		s.stat.Steps++
		s.stat.LastStep = hTry
		if landed {
			t = target
			copy(out[gi], s.x)
			gi++
			// Keep the cruising step size; the clamped step says
			// nothing new about the error scale.
		} else {
			t += hTry
			h = math.Min(hTry*acceptScale(errNorm), cfg.MaxStep)
		}
	}
	return nil
}

// SolveFixed integrates with a fixed step h and a non-adaptive
// stepper, producing a dense Solution with cubic Hermite segments.
func SolveFixed(ctx context.Context, sys System, step FixedStepper, u0 State, t0, t1, h float64, p Params) (*Solution, error) {
	n := sys.Dim()
	if len(u0) != n {
		return nil, ErrDimensionMismatch
	}
	if t1 <= t0 {
		return nil, fmt.Errorf("ode: t1 (%g) must exceed t0 (%g)", t1, t0)
	}
	if h <= 0 {
		return nil, fmt.Errorf("ode: step must be positive, got %g", h)
	}

	sol := &Solution{dim: n, ts: []float64{t0}}
	x := u0.Clone()
	dst := make(State, n)
	f0 := make(State, n)
	f1 := make(State, n)
	stat := Stats{}

	t := t0
	sys.Derive(f0, x, p, t)
	stat.Evals++
	for t < t1 {
		select {
		case <-ctx.Done():
			return nil, &SolveError{Time: t, Step: stat.Steps, Wrapped: ctx.Err()}
		default:
		}
		ht := h
		if t+ht > t1 {
			ht = t1 - t
		}
		step.Step(sys, x, p, t, ht, dst)
		stat.Evals += step.Stages()
		if !dst.IsValid() {
			return nil, &SolveError{Time: t, Step: stat.Steps, Wrapped: ErrUnstable}
		}
		sys.Derive(f1, dst, p, t+ht)
		stat.Evals++

		seg := make([]float64, 5*n)
		for j := 0; j < n; j++ {
			dy := dst[j] - x[j]
			bspl := ht*f0[j] - dy
			seg[j] = x[j]
			seg[n+j] = dy
			seg[2*n+j] = bspl
			seg[3*n+j] = dy - ht*f1[j] - bspl
		}
		sol.coef = append(sol.coef, seg)

		x, dst = dst, x
		f0, f1 = f1, f0
		t += ht
		sol.ts = append(sol.ts, t)
		stat.Steps++
		stat.LastStep = ht
	}

	sol.stat = stat
	return sol, nil
}

// linearFallback interpolates between endpoints; only reached when an
// adaptive Stepper lacks dense output.
func linearFallback(x0, x1 State, n int) []float64 {
	seg := make([]float64, 5*n)
	for j := 0; j < n; j++ {
		dy := x1[j] - x0[j]
		seg[j] = x0[j]
		seg[n+j] = dy
	}
	return seg
}

func rejectScale(errNorm float64) float64 {
	if math.IsNaN(errNorm) {
		return stepMinScale
	}
	return math.Max(stepMinScale, stepSafety*math.Pow(errNorm, -0.25))
}

func acceptScale(errNorm float64) float64 {
	if errNorm <= 0 {
		return stepMaxScale
	}
	return math.Min(stepMaxScale, stepSafety*math.Pow(errNorm, -0.2))
}
