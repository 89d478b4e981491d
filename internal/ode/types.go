package ode

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Params carries the kinetic parameters of a System. The simulator
// threads it unchanged into every derivative evaluation, so one System
// value can be solved under many parameter vectors without mutation.
type Params []float64

func (p Params) Clone() Params {
	c := make(Params, len(p))
	copy(c, p)
	return c
}

// System is an ODE right-hand side. Derive writes f(x, p, t) into dst;
// dst and x never alias. Implementations must not retain dst or x.
type System interface {
	Dim() int
	Derive(dst State, x State, p Params, t float64)
}

// Stepper advances a solution by a single trial step. TryStep writes
// the candidate state at t+h into dst and returns the tolerance-scaled
// error norm: a value <= 1 means the step meets the requested
// tolerances. Steppers own scratch buffers and are not safe for
// concurrent use.
type Stepper interface {
	TryStep(sys System, x State, p Params, t, h, rtol, atol float64, dst State) float64
	Stages() int
}

// DenseStepper additionally produces interpolation coefficients for
// the most recent TryStep. DenseCoeffs fills dst (length 5*dim) with
// the nested-form coefficients evaluated by Solution.
type DenseStepper interface {
	Stepper
	DenseCoeffs(dst []float64)
}

// FixedStepper advances by exactly h with no error estimate.
type FixedStepper interface {
	Step(sys System, x State, p Params, t, h float64, dst State)
	Stages() int
}

type Config struct {
	RelTol   float64
	AbsTol   float64
	InitStep float64 // 0 means span/100
	MinStep  float64
	MaxStep  float64 // 0 means span/10
	MaxSteps int
}

func DefaultConfig() Config {
	return Config{
		RelTol:   1e-6,
		AbsTol:   1e-8,
		MinStep:  1e-12,
		MaxSteps: 10000,
	}
}

func (c Config) normalized(span float64) Config {
	if c.RelTol <= 0 {
		c.RelTol = 1e-6
	}
	if c.AbsTol <= 0 {
		c.AbsTol = 1e-8
	}
	if c.InitStep <= 0 {
		c.InitStep = span / 100
	}
	if c.MinStep <= 0 {
		c.MinStep = 1e-12
	}
	if c.MaxStep <= 0 {
		c.MaxStep = span / 10
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = 10000
	}
	return c
}

type Stats struct {
	Steps    int
	Rejected int
	Evals    int
	LastStep float64
}
