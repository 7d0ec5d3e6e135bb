package api

import "github.com/kilianp07/arbitrage/core/model"

// StorageConfigRequest is the storage description posted by clients.
type StorageConfigRequest struct {
	Name       string   `json:"name" binding:"required"`
	PowerLimit *float64 `json:"power_limit" binding:"required"`
	Capacity   *float64 `json:"capacity" binding:"required"`
	InitialSoC *float64 `json:"initial_soc" binding:"required"`
}

// Profile converts the request into a storage profile.
func (r StorageConfigRequest) Profile() model.StorageProfile {
	return model.StorageProfile{
		Name:       r.Name,
		PowerLimit: *r.PowerLimit,
		Capacity:   *r.Capacity,
		InitialSoC: *r.InitialSoC,
	}
}

// OptimizeRequest carries an ad-hoc price feed.
type OptimizeRequest struct {
	Data     []*float64           `json:"data"`
	Interval int                  `json:"interval" binding:"required"`
	Config   StorageConfigRequest `json:"config"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
