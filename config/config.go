package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/arbitrage/core/metrics"
	"github.com/kilianp07/arbitrage/core/optimizer"
	"github.com/kilianp07/arbitrage/infra/diagnostics"
	"github.com/kilianp07/arbitrage/infra/marketdata/rte"
	"github.com/kilianp07/arbitrage/infra/mqtt"
)

type Config struct {
	Server      ServerConfig       `json:"server"`
	Solver      optimizer.Config   `json:"solver"`
	Catalog     CatalogConfig      `json:"catalog"`
	MarketData  MarketDataConfig   `json:"marketdata"`
	Metrics     metrics.Config     `json:"metrics"`
	MQTT        mqtt.Config        `json:"mqtt"`
	Diagnostics diagnostics.Config `json:"diagnostics"`
	Logging     LoggingConfig      `json:"logging"`
	Sentry      SentryConfig       `json:"sentry"`
	// Workers bounds concurrent solves. 0 selects GOMAXPROCS.
	Workers int `json:"workers"`
}

// MarketDataConfig lists remote market sources.
type MarketDataConfig struct {
	RTE rte.Config `json:"rte"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// Load reads the YAML or JSON file at path, applies K_ environment overrides
// (K_SERVER__ADDR sets server.addr), fills defaults and validates the result.
// An empty path loads the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Solver.SetDefaults()
	c.Server.SetDefaults(c.Solver.Timeout())
	c.Catalog.SetDefaults()
	c.MarketData.RTE.SetDefaults()
	c.Metrics.SetDefaults()
	c.MQTT.SetDefaults()
	c.Diagnostics.SetDefaults()
	c.Logging.SetDefaults()
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
}

// Validate checks every section and joins the failures.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Server.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Solver.NodeLimit < 0 {
		errs = append(errs, errors.New("solver: node_limit must be >= 0"))
	}
	if err := c.MarketData.RTE.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.MQTT.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Diagnostics.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, err)
	}
	for i, s := range c.Metrics.Sinks {
		if s.Type == "" {
			errs = append(errs, fmt.Errorf("metrics: sinks[%d].type is required", i))
		}
	}
	return errors.Join(errs...)
}
