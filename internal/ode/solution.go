package ode

import (
	"fmt"
	"sort"
)

// Solution is a dense trajectory over [T0, T1]. Each accepted step
// contributes one interpolation segment in nested form:
//
//	u(θ) = c1 + θ·(c2 + (1-θ)·(c3 + θ·(c4 + (1-θ)·c5)))
//
// with θ the normalized position inside the step. Steppers that only
// support cubic Hermite interpolation leave c5 zero.
type Solution struct {
	dim  int
	ts   []float64   // accepted step boundaries, len = segments+1
	coef [][]float64 // per segment, c1..c5 packed component-major
	stat Stats
}

func (s *Solution) Dim() int     { return s.dim }
func (s *Solution) T0() float64  { return s.ts[0] }
func (s *Solution) T1() float64  { return s.ts[len(s.ts)-1] }
func (s *Solution) Stats() Stats { return s.stat }

// Times returns the accepted step boundaries.
func (s *Solution) Times() []float64 { return s.ts }

// At evaluates the trajectory at t, allocating the result.
func (s *Solution) At(t float64) (State, error) {
	dst := make(State, s.dim)
	if err := s.AtInto(dst, t); err != nil {
		return nil, err
	}
	return dst, nil
}

// AtInto evaluates the trajectory at t into dst (length Dim).
// Times outside [T0, T1] beyond a small float tolerance return
// ErrOutOfRange.
func (s *Solution) AtInto(dst State, t float64) error {
	if len(dst) != s.dim {
		return ErrDimensionMismatch
	}
	t0, t1 := s.T0(), s.T1()
	const slack = 1e-9
	if t < t0-slack || t > t1+slack {
		return fmt.Errorf("%w: t=%g not in [%g, %g]", ErrOutOfRange, t, t0, t1)
	}
	if t < t0 {
		t = t0
	}
	if t > t1 {
		t = t1
	}

	// First boundary >= t; segment index is one left of it.
	i := sort.SearchFloat64s(s.ts, t)
	if i > 0 {
		i--
	}
	if i >= len(s.coef) {
		i = len(s.coef) - 1
	}

	h := s.ts[i+1] - s.ts[i]
	theta := (t - s.ts[i]) / h
	c := s.coef[i]
	n := s.dim
	for j := 0; j < n; j++ {
		c1 := c[j]
		c2 := c[n+j]
		c3 := c[2*n+j]
		c4 := c[3*n+j]
		c5 := c[4*n+j]
		dst[j] = c1 + theta*(c2+(1-theta)*(c3+theta*(c4+(1-theta)*c5)))
	}
	return nil
}
