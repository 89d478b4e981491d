// Package ode provides the numerical core for simulating ordinary
// differential equations with adaptive step control and dense output.
//
// The package defines the fundamental types shared by the rest of the
// repository:
//
//   - [State]: vector representing system state
//   - [Params]: kinetic parameter vector passed to each derivative call
//   - [System]: interface for ODE right-hand sides (dX/dt = f(X, p, t))
//   - [Stepper]: single-step integrator interface with error estimate
//   - [Simulator]: drives the adaptive loop and collects dense output
//   - [Solution]: continuous trajectory evaluable at arbitrary times
//
// # Example
//
//	sys := physics.NewLotkaVolterra()
//	step := integrators.NewDormandPrince()
//	sim := ode.NewSimulator(sys, step, ode.DefaultConfig())
//	sol, _ := sim.Solve(ctx, u0, 0, 10, p)
//
// # Thread Safety
//
// Simulator instances hold scratch buffers and are NOT safe for
// concurrent use. Callers running parallel chains construct one
// Simulator per goroutine. Solutions are immutable after Solve returns
// and may be shared freely.
package ode
