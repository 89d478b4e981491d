// Package lvmodel is the differentiable model behind the
// gradient-based samplers. Observe scores a candidate against a fixed
// dataset and Gradient returns the exact gradient of that score,
// obtained by propagating forward sensitivities through the same RK4
// discretization as the states. The pair satisfies infergo's
// ElementalModel interface, so no source transformation step is
// needed before sampling.
//
// The sampler works in an unconstrained space: the four rate
// parameters map through scaled logistic transforms onto their prior
// supports and sigma through exp, with the log-Jacobians added to the
// density. Constants that cancel in MCMC (truncation mass, lgamma of
// the fixed shape) are dropped.
package lvmodel

import (
	"math"

	. "bitbucket.org/dtolpin/infergo/dist"
)

// Prior hyperparameters and transform bounds. They mirror
// priors.Default; model_test.go keeps the two in agreement.
const (
	aMu, aSd, aLo, aHi = 1.5, 0.5, 0.5, 2.5
	bMu, bSd, bLo, bHi = 1.2, 0.5, 0.0, 2.0
	cMu, cSd, cLo, cHi = 3.0, 0.5, 1.0, 4.0
	dMu, dSd, dLo, dHi = 1.0, 0.5, 0.0, 2.0
	sigAlpha, sigBeta  = 2.0, 3.0
)

// Model scores parameter candidates against a fixed dataset. The
// forward solve is classic RK4 with steps clamped to land exactly on
// each observation time; the step sequence depends only on the
// observation grid, so the score is smooth in the parameters.
type Model struct {
	Times []float64
	Prey  []float64
	Pred  []float64
	X0    float64
	Y0    float64
	Step  float64

	grad []float64
}

func New(times, prey, pred []float64, x0, y0, step float64) *Model {
	if step <= 0 {
		step = 0.05
	}
	return &Model{
		Times: append([]float64(nil), times...),
		Prey:  append([]float64(nil), prey...),
		Pred:  append([]float64(nil), pred...),
		X0:    x0,
		Y0:    y0,
		Step:  step,
		grad:  make([]float64, 5),
	}
}

func (m *Model) NTheta() int { return 5 }

// Observe returns the unnormalized log-posterior at the unconstrained
// point x and caches its gradient for Gradient. Trajectories whose
// states or sensitivities leave float64 range score -Inf with a zero
// gradient.
func (m *Model) Observe(x []float64) float64 {
	ea := expit(x[0])
	eb := expit(x[1])
	ec := expit(x[2])
	ed := expit(x[3])
	a := aLo + (aHi-aLo)*ea
	b := bLo + (bHi-bLo)*eb
	c := cLo + (cHi-cLo)*ec
	d := dLo + (dHi-dLo)*ed
	sigma := math.Exp(x[4])

	ll := LogJacobian(x)
	ll += Normal.Logp(aMu, aSd, a)
	ll += Normal.Logp(bMu, bSd, b)
	ll += Normal.Logp(cMu, cSd, c)
	ll += Normal.Logp(dMu, dSd, d)
	ll += invGammaLogp(sigAlpha, sigBeta, sigma)

	// Gradient accumulators in constrained space, seeded with the
	// prior terms.
	gth := [4]float64{
		-(a - aMu) / (aSd * aSd),
		-(b - bMu) / (bSd * bSd),
		-(c - cMu) / (cSd * cSd),
		-(d - dMu) / (dSd * dSd),
	}
	gsig := -(sigAlpha+1)/sigma + sigBeta/(sigma*sigma)

	u := m.X0
	v := m.Y0
	var su, sv [4]float64
	t := 0.0
	for i := 0; i != len(m.Times); i++ {
		for t < m.Times[i]-1e-9 {
			h := m.Step
			if t+h > m.Times[i] {
				h = m.Times[i] - t
			}

			f1u, f1v, g1u, g1v := stage(a, b, c, d, u, v, su, sv)
			u2, v2 := u+0.5*h*f1u, v+0.5*h*f1v
			f2u, f2v, g2u, g2v := stage(a, b, c, d, u2, v2, axpy(su, 0.5*h, g1u), axpy(sv, 0.5*h, g1v))
			u3, v3 := u+0.5*h*f2u, v+0.5*h*f2v
			f3u, f3v, g3u, g3v := stage(a, b, c, d, u3, v3, axpy(su, 0.5*h, g2u), axpy(sv, 0.5*h, g2v))
			u4, v4 := u+h*f3u, v+h*f3v
			f4u, f4v, g4u, g4v := stage(a, b, c, d, u4, v4, axpy(su, h, g3u), axpy(sv, h, g3v))

			u += h / 6 * (f1u + 2*f2u + 2*f3u + f4u)
			v += h / 6 * (f1v + 2*f2v + 2*f3v + f4v)
			for k := 0; k < 4; k++ {
				su[k] += h / 6 * (g1u[k] + 2*g2u[k] + 2*g3u[k] + g4u[k])
				sv[k] += h / 6 * (g1v[k] + 2*g2v[k] + 2*g3v[k] + g4v[k])
			}
			t += h
		}
		if math.IsNaN(u) || math.IsNaN(v) || math.IsInf(u, 0) || math.IsInf(v, 0) {
			m.zeroGrad()
			return math.Inf(-1)
		}

		ll += Normal.Logp(u, sigma, m.Prey[i])
		ll += Normal.Logp(v, sigma, m.Pred[i])

		ru := m.Prey[i] - u
		rv := m.Pred[i] - v
		w := 1 / (sigma * sigma)
		for k := 0; k < 4; k++ {
			gth[k] += w * (ru*su[k] + rv*sv[k])
		}
		gsig += (ru*ru+rv*rv)/(sigma*sigma*sigma) - 2/sigma
	}

	// Chain rule onto the unconstrained coordinates, plus the
	// derivative of the log-Jacobian itself.
	m.grad[0] = gth[0]*(aHi-aLo)*ea*(1-ea) + (1 - 2*ea)
	m.grad[1] = gth[1]*(bHi-bLo)*eb*(1-eb) + (1 - 2*eb)
	m.grad[2] = gth[2]*(cHi-cLo)*ec*(1-ec) + (1 - 2*ec)
	m.grad[3] = gth[3]*(dHi-dLo)*ed*(1-ed) + (1 - 2*ed)
	m.grad[4] = gsig*sigma + 1

	// Sensitivities can overflow a step or two before the states do.
	// A trajectory whose gradient left float64 range is scored as
	// divergent as well.
	for k := range m.grad {
		if math.IsNaN(m.grad[k]) || math.IsInf(m.grad[k], 0) {
			m.zeroGrad()
			return math.Inf(-1)
		}
	}
	return ll
}

// Gradient returns the gradient of the last Observe call.
func (m *Model) Gradient() []float64 {
	return m.grad
}

func (m *Model) zeroGrad() {
	for k := range m.grad {
		m.grad[k] = 0
	}
}

// stage evaluates the Lotka-Volterra right-hand side and the matching
// forward-sensitivity rates at one point. su and sv hold d(u)/dtheta
// and d(v)/dtheta for theta = (a, b, c, d).
func stage(a, b, c, d, u, v float64, su, sv [4]float64) (fu, fv float64, gu, gv [4]float64) {
	fu = a*u - b*u*v
	fv = -c*v + d*u*v
	juu := a - b*v
	juv := -b * u
	jvu := d * v
	jvv := -c + d*u
	for k := 0; k < 4; k++ {
		gu[k] = juu*su[k] + juv*sv[k]
		gv[k] = jvu*su[k] + jvv*sv[k]
	}
	gu[0] += u
	gu[1] -= u * v
	gv[2] -= v
	gv[3] += u * v
	return fu, fv, gu, gv
}

func axpy(s [4]float64, h float64, g [4]float64) [4]float64 {
	for k := range s {
		s[k] += h * g[k]
	}
	return s
}

// LogJacobian is the log-determinant of the unconstrained-to-
// constrained transform applied by Observe.
func LogJacobian(x []float64) float64 {
	wa := expit(x[0])
	wb := expit(x[1])
	wc := expit(x[2])
	wd := expit(x[3])
	return math.Log((aHi-aLo)*wa*(1-wa)) +
		math.Log((bHi-bLo)*wb*(1-wb)) +
		math.Log((cHi-cLo)*wc*(1-wc)) +
		math.Log((dHi-dLo)*wd*(1-wd)) +
		x[4]
}

// invGammaLogp is the inverse-gamma log-density without the
// -lgamma(alpha) term, which is zero at the fixed shape alpha = 2.
func invGammaLogp(alpha, beta, x float64) float64 {
	return alpha*math.Log(beta) - (alpha+1)*math.Log(x) - beta/x
}

func expit(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// Constrain maps an unconstrained sampler point to (a, b, c, d, sigma).
// Used when collecting chains; Observe applies the same transform
// inline.
func Constrain(dst, x []float64) {
	dst[0] = aLo + (aHi-aLo)*expit(x[0])
	dst[1] = bLo + (bHi-bLo)*expit(x[1])
	dst[2] = cLo + (cHi-cLo)*expit(x[2])
	dst[3] = dLo + (dHi-dLo)*expit(x[3])
	dst[4] = math.Exp(x[4])
}

// Unconstrain inverts Constrain for parameters strictly inside the
// prior support.
func Unconstrain(dst, theta []float64) {
	dst[0] = logit((theta[0] - aLo) / (aHi - aLo))
	dst[1] = logit((theta[1] - bLo) / (bHi - bLo))
	dst[2] = logit((theta[2] - cLo) / (cHi - cLo))
	dst[3] = logit((theta[3] - dLo) / (dHi - dLo))
	dst[4] = math.Log(theta[4])
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}
