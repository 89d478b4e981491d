package ode

import "errors"

// Domain errors for solver operations.
var (
	// ErrUnstable indicates the integration produced NaN or Inf state.
	ErrUnstable = errors.New("ode: solution diverged (NaN or Inf state)")

	// ErrStepTooSmall indicates adaptive step control drove the step
	// below the configured minimum.
	ErrStepTooSmall = errors.New("ode: adaptive step below minimum")

	// ErrTooManySteps indicates the step budget was exhausted before
	// reaching the end of the span.
	ErrTooManySteps = errors.New("ode: maximum step count exceeded")

	// ErrOutOfRange indicates a dense evaluation outside the solved span.
	ErrOutOfRange = errors.New("ode: time outside solution span")

	// ErrDimensionMismatch indicates mismatched state/system dimensions.
	ErrDimensionMismatch = errors.New("ode: dimension mismatch between state and system")
)

// SolveError wraps a solver failure with the time and step at which
// integration stopped.
type SolveError struct {
	Time    float64
	Step    int
	Wrapped error
}

func (e *SolveError) Error() string {
	return e.Wrapped.Error()
}

func (e *SolveError) Unwrap() error {
	return e.Wrapped
}
