package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// SplitRhat computes the split potential scale reduction factor for one
// parameter's draws. The chain is cut in half and the halves are treated
// as independent chains; values near one mean the halves agree on
// location and spread. Fewer than four draws, or a chain with no
// variance, give NaN.
func SplitRhat(xs []float64) float64 {
	n := len(xs)
	if n < 4 {
		return math.NaN()
	}
	h := n / 2
	m1, v1 := stat.MeanVariance(xs[:h], nil)
	m2, v2 := stat.MeanVariance(xs[n-h:], nil)

	within := (v1 + v2) / 2
	if within <= 0 {
		return math.NaN()
	}
	diff := m1 - m2
	between := float64(h) * diff * diff / 2

	pooled := float64(h-1)/float64(h)*within + between/float64(h)
	return math.Sqrt(pooled / within)
}
