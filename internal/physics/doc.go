// Package physics provides the dynamical system model under study.
//
// [LotkaVolterra] implements the [ode.System] interface, defining the
// differential equations governing predator-prey population dynamics.
// The model also exposes [LotkaVolterra.GetParams] and
// [LotkaVolterra.SetParam] for runtime parameter adjustment from the
// command line.
package physics
