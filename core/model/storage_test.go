package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageConfigValidate(t *testing.T) {
	base := StorageConfig{PowerLimit: 100, Capacity: 200, InitialSoC: 50, IntervalMinutes: 15}
	require.NoError(t, base.Validate())

	cases := []struct {
		name  string
		mut   func(*StorageConfig)
		field string
	}{
		{"negative power", func(c *StorageConfig) { c.PowerLimit = -1 }, "power_limit"},
		{"negative capacity", func(c *StorageConfig) { c.Capacity = -5; c.InitialSoC = 0 }, "capacity"},
		{"soc above capacity", func(c *StorageConfig) { c.InitialSoC = 201 }, "initial_soc"},
		{"negative soc", func(c *StorageConfig) { c.InitialSoC = -1 }, "initial_soc"},
		{"zero interval", func(c *StorageConfig) { c.IntervalMinutes = 0 }, "interval_minutes"},
		{"nan power", func(c *StorageConfig) { c.PowerLimit = math.NaN() }, "power_limit"},
		{"inf capacity", func(c *StorageConfig) { c.Capacity = math.Inf(1) }, "capacity"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mut(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInput))
			var ie *InputError
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, tc.field, ie.Field)
		})
	}
}

func TestStorageConfigZeroValuesAllowed(t *testing.T) {
	cfg := StorageConfig{IntervalMinutes: 60}
	assert.NoError(t, cfg.Validate())
}

func TestPowerPerInterval(t *testing.T) {
	cfg := StorageConfig{PowerLimit: 500, IntervalMinutes: 15}
	assert.InDelta(t, 125.0, cfg.PowerPerInterval(), 1e-12)
	assert.InDelta(t, 0.25, cfg.IntervalFraction(), 1e-12)
}

func TestProfileForInterval(t *testing.T) {
	p := StorageProfile{Name: "small", PowerLimit: 10, Capacity: 20, InitialSoC: 5}
	cfg := p.ForInterval(30)
	assert.Equal(t, StorageConfig{PowerLimit: 10, Capacity: 20, InitialSoC: 5, IntervalMinutes: 30}, cfg)
}

func TestResultCounts(t *testing.T) {
	r := OptimizationResult{Schedule: []ScheduleEntry{{Action: ActionBuy}, {Action: ActionHold}, {Action: ActionBuy}}}
	c := r.Counts()
	assert.Equal(t, 2, c[ActionBuy])
	assert.Equal(t, 0, c[ActionSell])
	assert.Equal(t, 1, c[ActionHold])
	assert.True(t, ActionSell.Valid())
	assert.False(t, Action("WAIT").Valid())
}
