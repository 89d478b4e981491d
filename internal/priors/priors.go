// Package priors defines the prior distributions over the model
// parameters (a, b, c, d, sigma) and their joint log-density.
package priors

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Prior is a univariate prior distribution. LogProb returns -Inf
// outside the support rather than an error, so densities compose by
// addition.
type Prior interface {
	LogProb(x float64) float64
	Rand() float64
	Mean() float64
	Bounds() (lo, hi float64)
}

// TruncatedNormal is a normal distribution restricted to
// [Lower, Upper] and renormalized.
type TruncatedNormal struct {
	base         distuv.Normal
	lower, upper float64
	logZ         float64
}

func NewTruncatedNormal(mu, sigma, lower, upper float64, src rand.Source) TruncatedNormal {
	base := distuv.Normal{Mu: mu, Sigma: sigma, Src: src}
	z := base.CDF(upper) - base.CDF(lower)
	return TruncatedNormal{base: base, lower: lower, upper: upper, logZ: math.Log(z)}
}

func (t TruncatedNormal) LogProb(x float64) float64 {
	if x < t.lower || x > t.upper {
		return math.Inf(-1)
	}
	return t.base.LogProb(x) - t.logZ
}

// Rand draws by rejection from the untruncated base. The benchmark
// priors keep over 90% of the base mass inside the bounds, so the
// loop terminates quickly.
func (t TruncatedNormal) Rand() float64 {
	for {
		v := t.base.Rand()
		if v >= t.lower && v <= t.upper {
			return v
		}
	}
}

func (t TruncatedNormal) Mean() float64 {
	alpha := (t.lower - t.base.Mu) / t.base.Sigma
	beta := (t.upper - t.base.Mu) / t.base.Sigma
	z := math.Exp(t.logZ)
	return t.base.Mu + t.base.Sigma*(distuv.UnitNormal.Prob(alpha)-distuv.UnitNormal.Prob(beta))/z
}

func (t TruncatedNormal) Bounds() (float64, float64) { return t.lower, t.upper }

// InverseGamma wraps distuv.InverseGamma with the Prior contract,
// guarding the x <= 0 boundary.
type InverseGamma struct {
	dist distuv.InverseGamma
}

func NewInverseGamma(alpha, beta float64, src rand.Source) InverseGamma {
	return InverseGamma{dist: distuv.InverseGamma{Alpha: alpha, Beta: beta, Src: src}}
}

func (g InverseGamma) LogProb(x float64) float64 {
	if x <= 0 {
		return math.Inf(-1)
	}
	return g.dist.LogProb(x)
}

func (g InverseGamma) Rand() float64 { return g.dist.Rand() }

func (g InverseGamma) Mean() float64 { return g.dist.Mean() }

func (g InverseGamma) Bounds() (float64, float64) { return 0, math.Inf(1) }

// Set is an ordered collection of named priors over the parameter
// vector sampled by the backends.
type Set struct {
	names  []string
	priors []Prior
}

// Default returns the benchmark priors:
//
//	a     ~ TruncatedNormal(1.5, 0.5) on [0.5, 2.5]
//	b     ~ TruncatedNormal(1.2, 0.5) on [0, 2]
//	c     ~ TruncatedNormal(3.0, 0.5) on [1, 4]
//	d     ~ TruncatedNormal(1.0, 0.5) on [0, 2]
//	sigma ~ InverseGamma(2, 3) on (0, inf)
//
// Every support contains the true generating value.
func Default(src rand.Source) *Set {
	return &Set{
		names: []string{"a", "b", "c", "d", "sigma"},
		priors: []Prior{
			NewTruncatedNormal(1.5, 0.5, 0.5, 2.5, src),
			NewTruncatedNormal(1.2, 0.5, 0.0, 2.0, src),
			NewTruncatedNormal(3.0, 0.5, 1.0, 4.0, src),
			NewTruncatedNormal(1.0, 0.5, 0.0, 2.0, src),
			NewInverseGamma(2, 3, src),
		},
	}
}

func (s *Set) Len() int        { return len(s.priors) }
func (s *Set) Names() []string { return s.names }
func (s *Set) At(i int) Prior  { return s.priors[i] }

// LogProb returns the joint log-density, -Inf if any component falls
// outside its support. Panics on dimension mismatch.
func (s *Set) LogProb(theta []float64) float64 {
	if len(theta) != len(s.priors) {
		panic("priors: dimension mismatch")
	}
	sum := 0.0
	for i, p := range s.priors {
		lp := p.LogProb(theta[i])
		if math.IsInf(lp, -1) {
			return math.Inf(-1)
		}
		sum += lp
	}
	return sum
}

// Sample draws one value per prior into dst.
func (s *Set) Sample(dst []float64) {
	if len(dst) != len(s.priors) {
		panic("priors: dimension mismatch")
	}
	for i, p := range s.priors {
		dst[i] = p.Rand()
	}
}

// Means fills dst with the prior means, the default starting point
// for the samplers.
func (s *Set) Means(dst []float64) {
	if len(dst) != len(s.priors) {
		panic("priors: dimension mismatch")
	}
	for i, p := range s.priors {
		dst[i] = p.Mean()
	}
}
