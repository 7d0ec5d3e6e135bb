package config

import (
	"errors"
	"time"
)

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr                   string   `json:"addr"`
	ReadTimeoutSeconds     int      `json:"read_timeout_seconds"`
	WriteTimeoutSeconds    int      `json:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int      `json:"shutdown_timeout_seconds"`
	CORSOrigins            []string `json:"cors_origins"`
}

// SetDefaults fills zero values. The write timeout leaves room for a solve
// that runs up to solve.
func (c *ServerConfig) SetDefaults(solve time.Duration) {
	if c.Addr == "" {
		c.Addr = ":8000"
	}
	if c.ReadTimeoutSeconds <= 0 {
		c.ReadTimeoutSeconds = 30
	}
	if c.WriteTimeoutSeconds <= 0 {
		c.WriteTimeoutSeconds = int(solve/time.Second) + 15
	}
	if c.ShutdownTimeoutSeconds <= 0 {
		c.ShutdownTimeoutSeconds = 10
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
}

// Validate checks mandatory fields.
func (c ServerConfig) Validate() error {
	if c.Addr == "" {
		return errors.New("server: addr is required")
	}
	return nil
}

// CatalogConfig locates the file catalogs.
type CatalogConfig struct {
	MarketsDir        string `json:"markets_dir"`
	ConfigurationsDir string `json:"configurations_dir"`
	// OutDir receives the result files written by the run command.
	OutDir string `json:"out_dir"`
}

// SetDefaults applies the data/ layout.
func (c *CatalogConfig) SetDefaults() {
	if c.MarketsDir == "" {
		c.MarketsDir = "data/markets"
	}
	if c.ConfigurationsDir == "" {
		c.ConfigurationsDir = "data/configurations"
	}
	if c.OutDir == "" {
		c.OutDir = "out/data"
	}
}
