package integrators

import "lvbench/internal/ode"

// RK4 is the classic fixed-step fourth-order Runge-Kutta method.
// Scratch buffers are reused across steps.
type RK4 struct {
	k1, k2, k3, k4 ode.State
	scratch        ode.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Stages() int { return 4 }

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(ode.State, n)
		r.k2 = make(ode.State, n)
		r.k3 = make(ode.State, n)
		r.k4 = make(ode.State, n)
		r.scratch = make(ode.State, n)
	}
}

func (r *RK4) Step(sys ode.System, x ode.State, p ode.Params, t, h float64, dst ode.State) {
	n := len(x)
	r.ensureScratch(n)

	sys.Derive(r.k1, x, p, t)

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + h*0.5*r.k1[i]
	}
	sys.Derive(r.k2, r.scratch, p, t+h*0.5)

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + h*0.5*r.k2[i]
	}
	sys.Derive(r.k3, r.scratch, p, t+h*0.5)

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + h*r.k3[i]
	}
	sys.Derive(r.k4, r.scratch, p, t+h)

	h6 := h / 6.0
	for i := 0; i < n; i++ {
		dst[i] = x[i] + h6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
}
