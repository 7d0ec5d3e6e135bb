package rte

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/arbitrage/auth"
)

const (
	// DefaultMarketID is the catalog id of the RTE feed.
	DefaultMarketID = "rte-wholesale"
	// DefaultAPIURL is the wholesale market endpoint.
	DefaultAPIURL = "https://digital.iservices.rte-france.com/open_api/wholesale_market/v2/france_power_exchanges"
	defaultTimeout = 10 * time.Second
	defaultTTL     = time.Hour
)

// Config configures the RTE market source.
type Config struct {
	Enabled         bool      `json:"enabled"`
	MarketID        string    `json:"market_id"`
	Name            string    `json:"name"`
	APIURL          string    `json:"api_url"`
	Auth            auth.Conf `json:"auth"`
	Start           string    `json:"start"`
	End             string    `json:"end"`
	TimeoutSeconds  int       `json:"timeout_seconds"`
	CacheTTLSeconds int       `json:"cache_ttl_seconds"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.MarketID == "" {
		c.MarketID = DefaultMarketID
	}
	if c.Name == "" {
		c.Name = "RTE France wholesale"
	}
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = int(defaultTimeout / time.Second)
	}
	if c.CacheTTLSeconds <= 0 {
		c.CacheTTLSeconds = int(defaultTTL / time.Second)
	}
}

// Validate checks an enabled configuration.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	start, end, err := c.Window()
	if err != nil {
		return err
	}
	if !end.After(start) {
		return errors.New("rte: end must be after start")
	}
	return nil
}

// Window parses the configured date range.
func (c Config) Window() (time.Time, time.Time, error) {
	start, err := parseDate(c.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("rte: start: %w", err)
	}
	end, err := parseDate(c.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("rte: end: %w", err)
	}
	return start, end, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing date")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}
