package metrics

import "github.com/kilianp07/arbitrage/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr, when set, starts a dedicated /metrics listener next to
	// the API server.
	PrometheusAddr string `json:"prometheus_addr"`
}

// SetDefaults enables the Prometheus sink when no sink is configured.
func (c *Config) SetDefaults() {
	if len(c.Sinks) == 0 {
		c.Sinks = []factory.ModuleConfig{{Type: "prometheus"}}
	}
}
