package milp

import (
	"context"
	"errors"
	"fmt"
)

// Status is the outcome of a solve.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusTimedOut
	StatusNodeLimit
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusTimedOut:
		return "timed_out"
	case StatusNodeLimit:
		return "node_limit"
	default:
		return "unknown"
	}
}

// Solution is an assignment returned by a Solver. Values are indexed like
// Problem.Variables.
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
	Nodes     int
}

// Value returns the value of variable i.
func (s Solution) Value(i int) float64 { return s.Values[i] }

// Solver solves a Problem. Implementations return a *StatusError whenever the
// status is not StatusOptimal.
type Solver interface {
	Solve(ctx context.Context, p *Problem) (Solution, error)
}

// StatusError reports a non-optimal solve.
type StatusError struct {
	Status Status
	Err    error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("milp: solve %s: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("milp: solve %s", e.Status)
}

func (e *StatusError) Unwrap() error { return e.Err }

// StatusOf extracts the status carried by err. ok is false when err is not a
// StatusError.
func StatusOf(err error) (Status, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status, true
	}
	return StatusOptimal, false
}
