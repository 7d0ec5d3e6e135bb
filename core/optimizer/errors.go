package optimizer

import (
	"errors"
	"fmt"

	"github.com/kilianp07/arbitrage/core/milp"
	"github.com/kilianp07/arbitrage/core/model"
)

var (
	// ErrInput matches every InputError.
	ErrInput = model.ErrInput
	// ErrSolver matches every SolverError.
	ErrSolver = errors.New("solver error")
	// ErrInternal matches every InternalError.
	ErrInternal = errors.New("internal error")
)

// InputError reports a malformed price series or storage configuration. It is
// raised before any model is built.
type InputError = model.InputError

// SolverError reports a solve that did not end with an optimal assignment.
type SolverError struct {
	Status milp.Status
	Err    error
}

func (e *SolverError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("optimizer: solve %s: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("optimizer: solve %s", e.Status)
}

func (e *SolverError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrSolver) hold.
func (e *SolverError) Is(target error) bool { return target == ErrSolver }

// Timeout reports whether the solve ran out of time.
func (e *SolverError) Timeout() bool { return e.Status == milp.StatusTimedOut }

// InternalError reports an unexpected failure while building the model or
// reading the solution back. Index is the interval involved, or -1.
type InternalError struct {
	Stage string
	Index int
	Err   error
}

func (e *InternalError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("optimizer: %s failed at interval %d: %v", e.Stage, e.Index, e.Err)
	}
	return fmt.Sprintf("optimizer: %s failed: %v", e.Stage, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrInternal) hold.
func (e *InternalError) Is(target error) bool { return target == ErrInternal }

func solverError(err error) error {
	var se *SolverError
	if errors.As(err, &se) {
		return se
	}
	if st, ok := milp.StatusOf(err); ok {
		return &SolverError{Status: st, Err: err}
	}
	return &InternalError{Stage: "solve", Index: -1, Err: err}
}
