package app

import (
	"context"
	"errors"

	"github.com/kilianp07/arbitrage/core/catalog"
	coremetrics "github.com/kilianp07/arbitrage/core/metrics"
	"github.com/kilianp07/arbitrage/core/milp"
	"github.com/kilianp07/arbitrage/core/optimizer"
)

const solverTimeout = milp.StatusTimedOut

// Status names the outcome of a run for metrics and reports.
func Status(err error) string {
	if err == nil {
		return milp.StatusOptimal.String()
	}
	var se *optimizer.SolverError
	switch {
	case errors.As(err, &se):
		return se.Status.String()
	case errors.Is(err, optimizer.ErrInput):
		return coremetrics.StatusInputError
	case errors.Is(err, catalog.ErrNotFound):
		return coremetrics.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return solverTimeout.String()
	default:
		return coremetrics.StatusInternalError
	}
}
