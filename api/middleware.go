package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	coremon "github.com/kilianp07/arbitrage/core/monitoring"
)

// AccessLog writes one structured line per request.
func AccessLog(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		ev := log.Info()
		if status >= http.StatusInternalServerError {
			ev = log.Error()
		} else if status >= http.StatusBadRequest {
			ev = log.Warn()
		}
		ev = ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP())
		if runID := c.Writer.Header().Get(HeaderRunID); runID != "" {
			ev = ev.Str("run_id", runID)
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("error", c.Errors.Last().Error())
		}
		ev.Msg("request")
	}
}

// Recovery turns panics into a 500 error body and reports them to the monitor.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		coremon.CaptureException(fmt.Errorf("panic: %v", recovered), map[string]string{
			"module": "api",
			"path":   c.FullPath(),
		})
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: ErrorDetail{
			Code:    CodeInternal,
			Message: "An unexpected error occurred",
		}})
	})
}
