package mh

import (
	"errors"
	"fmt"
)

// ErrNoInitialState is returned by Run when no initial state was set.
var ErrNoInitialState = errors.New("no initial state")

// RunError reports a failed iteration. State is the chain state the failing
// step started from, so the failure can be reproduced.
type RunError struct {
	Iteration int64
	State     any
	Err       error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("mh iteration %d: %v (state: %v)", e.Iteration, e.Err, e.State)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
