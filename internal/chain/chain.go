// Package chain stores posterior draws and computes the summaries
// compared across backends.
package chain

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"lvbench/internal/analysis"
)

// Chain is a sequence of posterior draws in constrained parameter
// space, one row per draw.
type Chain struct {
	Names []string
	Draws [][]float64
}

func New(names []string, capacity int) *Chain {
	return &Chain{Names: names, Draws: make([][]float64, 0, capacity)}
}

func (c *Chain) Len() int { return len(c.Draws) }
func (c *Chain) Dim() int { return len(c.Names) }

// Append copies draw into the chain.
func (c *Chain) Append(draw []float64) {
	c.Draws = append(c.Draws, append([]float64(nil), draw...))
}

// FromDense converts a sampler batch with one draw per row. Panics on
// dimension mismatch, matching mat conventions.
func FromDense(names []string, batch *mat.Dense) *Chain {
	r, cols := batch.Dims()
	if cols != len(names) {
		panic("chain: batch width does not match parameter names")
	}
	ch := New(names, r)
	for i := 0; i < r; i++ {
		ch.Append(batch.RawRowView(i))
	}
	return ch
}

// Col extracts one parameter's draws.
func (c *Chain) Col(j int) []float64 {
	out := make([]float64, len(c.Draws))
	for i, d := range c.Draws {
		out[i] = d[j]
	}
	return out
}

// Thin keeps every k-th draw starting from the first.
func (c *Chain) Thin(k int) *Chain {
	if k <= 1 {
		return c
	}
	th := New(c.Names, (len(c.Draws)+k-1)/k)
	for i := 0; i < len(c.Draws); i += k {
		th.Append(c.Draws[i])
	}
	return th
}

// Merge concatenates chains over the same parameter names, in order.
func Merge(chains ...*Chain) (*Chain, error) {
	if len(chains) == 0 {
		return nil, fmt.Errorf("chain: nothing to merge")
	}
	names := chains[0].Names
	total := 0
	for _, c := range chains {
		if len(c.Names) != len(names) {
			return nil, fmt.Errorf("chain: mismatched dimensions %d vs %d", len(c.Names), len(names))
		}
		for j := range names {
			if c.Names[j] != names[j] {
				return nil, fmt.Errorf("chain: mismatched parameter %q vs %q", c.Names[j], names[j])
			}
		}
		total += c.Len()
	}
	m := New(names, total)
	for _, c := range chains {
		for _, d := range c.Draws {
			m.Append(d)
		}
	}
	return m, nil
}

// ParamSummary holds the per-parameter posterior statistics and
// convergence diagnostics.
type ParamSummary struct {
	Name string
	Mean float64
	Std  float64
	Q05  float64
	Q50  float64
	Q95  float64
	ESS  float64
	Rhat float64
}

type Summary struct {
	N      int
	Params []ParamSummary

	// MoveRate is the fraction of successive draws that differ, an
	// acceptance estimate computable for any backend from the chain
	// alone.
	MoveRate float64
}

// MinESS returns the smallest per-parameter effective sample size,
// which bounds how well the joint posterior is resolved.
func (s Summary) MinESS() float64 {
	if len(s.Params) == 0 {
		return 0
	}
	min := s.Params[0].ESS
	for _, p := range s.Params[1:] {
		if p.ESS < min {
			min = p.ESS
		}
	}
	return min
}

// Param returns the summary for a named parameter, or a zero value if
// absent.
func (s Summary) Param(name string) ParamSummary {
	for _, p := range s.Params {
		if p.Name == name {
			return p
		}
	}
	return ParamSummary{}
}

func Summarize(c *Chain) Summary {
	s := Summary{N: c.Len()}
	if c.Len() == 0 {
		return s
	}
	s.Params = make([]ParamSummary, c.Dim())
	for j := range c.Names {
		col := c.Col(j)
		sorted := append([]float64(nil), col...)
		sort.Float64s(sorted)
		s.Params[j] = ParamSummary{
			Name: c.Names[j],
			Mean: stat.Mean(col, nil),
			Std:  stat.StdDev(col, nil),
			Q05:  stat.Quantile(0.05, stat.Empirical, sorted, nil),
			Q50:  stat.Quantile(0.50, stat.Empirical, sorted, nil),
			Q95:  stat.Quantile(0.95, stat.Empirical, sorted, nil),
			ESS:  analysis.ESS(col),
			Rhat: analysis.SplitRhat(col),
		}
	}
	moves := 0
	for i := 1; i < len(c.Draws); i++ {
		if !sameDraw(c.Draws[i], c.Draws[i-1]) {
			moves++
		}
	}
	if len(c.Draws) > 1 {
		s.MoveRate = float64(moves) / float64(len(c.Draws)-1)
	}
	return s
}

func sameDraw(a, b []float64) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
