package physics

import (
	"fmt"

	"lvbench/internal/ode"
)

// LotkaVolterra implements the classic predator-prey model.
// State: [x, y] where x is prey and y is predator population.
// Equations:
//
//	dx/dt = a·x - b·x·y
//	dy/dt = -c·y + d·x·y
//
// The derivative is evaluated from the Params vector (a, b, c, d), so
// one model value serves many candidate parameter sets. The struct
// fields only hold the configured defaults reported by Params.
type LotkaVolterra struct {
	a float64 // prey growth rate
	b float64 // predation rate
	c float64 // predator death rate
	d float64 // predator reproduction rate
}

func NewLotkaVolterra() *LotkaVolterra {
	return &LotkaVolterra{
		a: 1.5,
		b: 1.0,
		c: 3.0,
		d: 1.0,
	}
}

func (l *LotkaVolterra) Dim() int { return 2 }

func (l *LotkaVolterra) Derive(dst ode.State, state ode.State, p ode.Params, _ float64) {
	a, b, c, d := p[0], p[1], p[2], p[3]
	x, y := state[0], state[1]

	dst[0] = a*x - b*x*y
	dst[1] = -c*y + d*x*y
}

func (l *LotkaVolterra) DefaultState() ode.State {
	return ode.State{1.0, 1.0}
}

// Params returns the configured rate constants as a parameter vector.
func (l *LotkaVolterra) Params() ode.Params {
	return ode.Params{l.a, l.b, l.c, l.d}
}

// ParamNames returns the parameter order used by Params.
func ParamNames() []string {
	return []string{"a", "b", "c", "d"}
}

func (l *LotkaVolterra) GetParams() map[string]float64 {
	return map[string]float64{
		"a": l.a,
		"b": l.b,
		"c": l.c,
		"d": l.d,
	}
}

func (l *LotkaVolterra) SetParam(name string, value float64) error {
	switch name {
	case "a":
		l.a = value
	case "b":
		l.b = value
	case "c":
		l.c = value
	case "d":
		l.d = value
	default:
		return fmt.Errorf("physics: unknown parameter %q", name)
	}
	return nil
}
