package lifecycle

import (
	"errors"
	"fmt"
)

// ErrInvalidState indicates a hook was invoked out of order.
var ErrInvalidState = errors.New("lifecycle: invalid state")

type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("lifecycle: cannot %s in state %s", e.Op, e.State)
}

func (e *StateError) Unwrap() error {
	return ErrInvalidState
}
