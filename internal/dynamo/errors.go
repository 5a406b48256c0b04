package dynamo

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidState      = errors.New("dynamo: state is not finite")
	ErrDimensionMismatch = errors.New("dynamo: initial state does not match system dimension")
	ErrBadStep           = errors.New("dynamo: timestep and horizon must be positive")
)

// SimulationError locates a failure within an integration.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error { return e.Wrapped }
