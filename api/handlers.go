package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kilianp07/arbitrage/app"
	"github.com/kilianp07/arbitrage/core/catalog"
	"github.com/kilianp07/arbitrage/core/model"
)

// HeaderRunID carries the id of the run behind an optimization response.
const HeaderRunID = "X-Run-ID"

// Service is the part of app.Service the handlers use.
type Service interface {
	Markets(ctx context.Context) ([]catalog.Market, error)
	Profiles(ctx context.Context) ([]model.StorageProfile, error)
	Profile(ctx context.Context, name string) (model.StorageProfile, error)
	CalculateRevenue(ctx context.Context, marketID string, profile model.StorageProfile) (app.Run, error)
	OptimizeSeries(ctx context.Context, raw []*float64, intervalMinutes int, profile model.StorageProfile) (app.Run, error)
}

type handlers struct {
	svc Service
}

// health handles GET /health
func (h handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// listMarkets handles GET /v1/markets
func (h handlers) listMarkets(c *gin.Context) {
	markets, err := h.svc.Markets(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, markets)
}

// listConfigurations handles GET /v1/configurations
func (h handlers) listConfigurations(c *gin.Context) {
	profiles, err := h.svc.Profiles(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, profiles)
}

// calculateRevenue handles POST /v1/calculate-revenue/:market_id
//
// The storage configuration is read from the body, or from the stored
// configuration named by the ?configuration= query parameter.
func (h handlers) calculateRevenue(c *gin.Context) {
	ctx := c.Request.Context()
	var profile model.StorageProfile
	if name := c.Query("configuration"); name != "" {
		p, err := h.svc.Profile(ctx, name)
		if err != nil {
			abortWithError(c, err)
			return
		}
		profile = p
	} else {
		var req StorageConfigRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadRequest(c, err)
			return
		}
		profile = req.Profile()
	}

	run, err := h.svc.CalculateRevenue(ctx, c.Param("market_id"), profile)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Header(HeaderRunID, run.ID)
	c.JSON(http.StatusOK, run.Result)
}

// optimize handles POST /v1/optimize
func (h handlers) optimize(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}
	if req.Data == nil {
		abortBadRequest(c, errors.New("data is required"))
		return
	}
	run, err := h.svc.OptimizeSeries(c.Request.Context(), req.Data, req.Interval, req.Config.Profile())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Header(HeaderRunID, run.ID)
	c.JSON(http.StatusOK, run.Result)
}
