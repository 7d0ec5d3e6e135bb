package model

import "math"

// StorageConfig holds the physical limits of the storage asset for one solve.
type StorageConfig struct {
	PowerLimit      float64 // power rating, energy unit per hour
	Capacity        float64 // energy capacity
	InitialSoC      float64 // stored energy before the first interval
	IntervalMinutes int     // sampling interval of the price series
}

// Validate checks the configuration before any optimization model is built.
func (c StorageConfig) Validate() error {
	checks := []struct {
		field string
		v     float64
	}{
		{"power_limit", c.PowerLimit},
		{"capacity", c.Capacity},
		{"initial_soc", c.InitialSoC},
	}
	for _, ch := range checks {
		if math.IsNaN(ch.v) || math.IsInf(ch.v, 0) {
			return NewInputError(ch.field, "must be a finite number")
		}
		if ch.v < 0 {
			return NewInputError(ch.field, "must be >= 0, got %v", ch.v)
		}
	}
	if c.InitialSoC > c.Capacity {
		return NewInputError("initial_soc", "must be within [0, %v], got %v", c.Capacity, c.InitialSoC)
	}
	if c.IntervalMinutes <= 0 {
		return NewInputError("interval_minutes", "must be > 0, got %d", c.IntervalMinutes)
	}
	return nil
}

// IntervalFraction converts an hourly power rating into energy per interval.
func (c StorageConfig) IntervalFraction() float64 {
	return float64(c.IntervalMinutes) / 60
}

// PowerPerInterval is the maximum energy moved in a single interval.
func (c StorageConfig) PowerPerInterval() float64 {
	return c.PowerLimit * c.IntervalFraction()
}

// StorageProfile is a named storage configuration from the catalog. The
// interval is taken from the market the profile is run against.
type StorageProfile struct {
	Name       string  `json:"name" yaml:"name"`
	PowerLimit float64 `json:"power_limit" yaml:"power_limit"`
	Capacity   float64 `json:"capacity" yaml:"capacity"`
	InitialSoC float64 `json:"initial_soc" yaml:"initial_soc"`
}

// ForInterval turns the profile into a StorageConfig for the given interval.
func (p StorageProfile) ForInterval(minutes int) StorageConfig {
	return StorageConfig{
		PowerLimit:      p.PowerLimit,
		Capacity:        p.Capacity,
		InitialSoC:      p.InitialSoC,
		IntervalMinutes: minutes,
	}
}
