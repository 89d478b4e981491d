package integrators

import (
	"math"

	"lvbench/internal/ode"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0

	// Dense-output coefficients for the order-4 continuous extension.
	d1 = -12715105075.0 / 11282082432.0
	d3 = 87487479700.0 / 32700410799.0
	d4 = -10690763975.0 / 1880347072.0
	d5 = 701980252875.0 / 199316789632.0
	d6 = -1453857185.0 / 822651844.0
	d7 = 69997945.0 / 29380423.0
)

// DormandPrince is an adaptive fifth-order stepper with an embedded
// fourth-order error estimate and dense output. Scratch buffers are
// reused across steps; instances are not safe for concurrent use.
type DormandPrince struct {
	k1, k2, k3, k4, k5, k6, k7 ode.State
	ytmp                       ode.State
	y0, y1                     ode.State
	h                          float64
}

func NewDormandPrince() *DormandPrince {
	return &DormandPrince{}
}

func (r *DormandPrince) Stages() int { return 7 }

func (r *DormandPrince) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(ode.State, n)
		r.k2 = make(ode.State, n)
		r.k3 = make(ode.State, n)
		r.k4 = make(ode.State, n)
		r.k5 = make(ode.State, n)
		r.k6 = make(ode.State, n)
		r.k7 = make(ode.State, n)
		r.ytmp = make(ode.State, n)
		r.y0 = make(ode.State, n)
		r.y1 = make(ode.State, n)
	}
}

// TryStep advances from x at t by h into dst and returns the
// tolerance-scaled RMS error norm of the embedded pair. A return
// value <= 1 means the step is acceptable at (rtol, atol).
func (r *DormandPrince) TryStep(sys ode.System, x ode.State, p ode.Params, t, h, rtol, atol float64, dst ode.State) float64 {
	n := len(x)
	r.ensureScratch(n)

	sys.Derive(r.k1, x, p, t)

	for i := 0; i < n; i++ {
		r.ytmp[i] = x[i] + h*b21*r.k1[i]
	}
	sys.Derive(r.k2, r.ytmp, p, t+a2*h)

	for i := 0; i < n; i++ {
		r.ytmp[i] = x[i] + h*(b31*r.k1[i]+b32*r.k2[i])
	}
	sys.Derive(r.k3, r.ytmp, p, t+a3*h)

	for i := 0; i < n; i++ {
		r.ytmp[i] = x[i] + h*(b41*r.k1[i]+b42*r.k2[i]+b43*r.k3[i])
	}
	sys.Derive(r.k4, r.ytmp, p, t+a4*h)

	for i := 0; i < n; i++ {
		r.ytmp[i] = x[i] + h*(b51*r.k1[i]+b52*r.k2[i]+b53*r.k3[i]+b54*r.k4[i])
	}
	sys.Derive(r.k5, r.ytmp, p, t+a5*h)

	for i := 0; i < n; i++ {
		r.ytmp[i] = x[i] + h*(b61*r.k1[i]+b62*r.k2[i]+b63*r.k3[i]+b64*r.k4[i]+b65*r.k5[i])
	}
	sys.Derive(r.k6, r.ytmp, p, t+h)

	for i := 0; i < n; i++ {
		dst[i] = x[i] + h*(c1*r.k1[i]+c3*r.k3[i]+c4*r.k4[i]+c5*r.k5[i]+c6*r.k6[i])
	}
	sys.Derive(r.k7, dst, p, t+h)

	sum := 0.0
	for i := 0; i < n; i++ {
		errEst := h * (dc1*r.k1[i] + dc3*r.k3[i] + dc4*r.k4[i] + dc5*r.k5[i] + dc6*r.k6[i] + dc7*r.k7[i])
		sk := atol + rtol*math.Max(math.Abs(x[i]), math.Abs(dst[i]))
		e := errEst / sk
		sum += e * e
	}

	// Retained for DenseCoeffs.
	copy(r.y0, x)
	copy(r.y1, dst)
	r.h = h

	return math.Sqrt(sum / float64(n))
}

// DenseCoeffs fills dst (length 5*dim) with the nested interpolation
// coefficients of the most recent TryStep.
func (r *DormandPrince) DenseCoeffs(dst []float64) {
	n := len(r.y0)
	h := r.h
	for i := 0; i < n; i++ {
		dy := r.y1[i] - r.y0[i]
		bspl := h*r.k1[i] - dy
		dst[i] = r.y0[i]
		dst[n+i] = dy
		dst[2*n+i] = bspl
		dst[3*n+i] = dy - h*r.k7[i] - bspl
		dst[4*n+i] = h * (d1*r.k1[i] + d3*r.k3[i] + d4*r.k4[i] + d5*r.k5[i] + d6*r.k6[i] + d7*r.k7[i])
	}
}
