package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kilianp07/arbitrage/core/catalog"
	"github.com/kilianp07/arbitrage/core/optimizer"
)

const (
	CodeInvalidInput  = "INVALID_INPUT"
	CodeNotFound      = "NOT_FOUND"
	CodeSolverFailed  = "SOLVER_FAILED"
	CodeSolverTimeout = "SOLVER_TIMEOUT"
	CodeInternal      = "INTERNAL_ERROR"
)

// classify maps a service error to an HTTP status and error code.
func classify(err error) (int, string) {
	var se *optimizer.SolverError
	switch {
	case errors.Is(err, optimizer.ErrInput):
		return http.StatusBadRequest, CodeInvalidInput
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.As(err, &se) && se.Timeout(), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeSolverTimeout
	case errors.Is(err, optimizer.ErrSolver):
		return http.StatusUnprocessableEntity, CodeSolverFailed
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func abortWithError(c *gin.Context, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "An unexpected error occurred"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorDetail{Code: code, Message: msg}})
}

func abortBadRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{Code: CodeInvalidInput, Message: err.Error()}})
}
