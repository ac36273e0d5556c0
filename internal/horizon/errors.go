package horizon

import (
	"errors"
	"fmt"
)

// Domain errors for simulation components.
var (
	// ErrConfig indicates an invalid construction or bind parameter.
	ErrConfig = errors.New("essim: invalid configuration")

	// ErrDimensionMismatch indicates widths that do not line up between
	// bound components or against the time horizon.
	ErrDimensionMismatch = errors.New("essim: dimension mismatch")

	// ErrUnstableFilter indicates filter coefficients outside the stable
	// region (w*dT must stay below 2).
	ErrUnstableFilter = errors.New("essim: unstable filter coefficient")

	// ErrSequence indicates a per-step call out of increasing-index order
	// or repeated for an index already processed.
	ErrSequence = errors.New("essim: out-of-order step")

	// ErrNotBound indicates a component stepped before it was bound.
	ErrNotBound = errors.New("essim: component not bound")

	// ErrAlreadyRun indicates a second run over single-pass components.
	ErrAlreadyRun = errors.New("essim: simulation already run")
)

// StepError wraps an error with the timestep and stage it surfaced in.
type StepError struct {
	Step      int
	Time      float64
	Stage     string
	Component string
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f) %s %s: %v", e.Step, e.Time, e.Stage, e.Component, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
