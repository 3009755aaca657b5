package fluid

import (
	"errors"
	"fmt"
)

// Domain errors for solver and run operations.
var (
	// ErrAllocation indicates storage could not be reserved at initialization.
	ErrAllocation = errors.New("fluid: resource allocation failed")

	// ErrUnknownParam indicates a parameter name the solver does not expose.
	ErrUnknownParam = errors.New("fluid: unknown parameter")

	// ErrUnknownSolver indicates a solver name missing from the registry.
	ErrUnknownSolver = errors.New("fluid: unknown solver")

	// ErrInvalidConfig indicates a configuration rejected before reaching a solver.
	ErrInvalidConfig = errors.New("fluid: invalid configuration")

	// ErrUnstable indicates the simulation produced non-finite values.
	ErrUnstable = errors.New("fluid: simulation unstable (non-finite state)")
)

// StepError wraps an error with the step at which it was detected.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
