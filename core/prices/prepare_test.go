package prices

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/arbitrage/core/model"
)

func TestPrepareKeepsIndexTimestampsAcrossGaps(t *testing.T) {
	raw, err := ParseRaw([]byte(`[10.5, null, null, 42, null, -3]`))
	require.NoError(t, err)

	pts, err := Prepare(raw, 15)
	require.NoError(t, err)
	require.Len(t, pts, 3)

	assert.Equal(t, "2024-01-01T00:00:00.000Z", pts[0].Timestamp)
	assert.Equal(t, "2024-01-01T00:45:00.000Z", pts[1].Timestamp)
	assert.Equal(t, "2024-01-01T01:15:00.000Z", pts[2].Timestamp)
	assert.Equal(t, []float64{10.5, 42, -3}, []float64{pts[0].Price, pts[1].Price, pts[2].Price})
	for _, p := range pts {
		assert.Equal(t, model.DefaultPriceUnit, p.Unit)
	}
}

func TestPrepareEmptyAndAllNull(t *testing.T) {
	for name, raw := range map[string][]*float64{
		"nil":      nil,
		"empty":    {},
		"all null": {nil, nil, nil},
	} {
		t.Run(name, func(t *testing.T) {
			pts, err := Prepare(raw, 60)
			require.NoError(t, err)
			assert.NotNil(t, pts)
			assert.Empty(t, pts)
		})
	}
}

func TestPrepareOptions(t *testing.T) {
	start := time.Date(2023, 6, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	pts, err := Prepare(Floats(1, 2), 60, WithStart(start), WithUnit("EUR/kWh"))
	require.NoError(t, err)
	assert.Equal(t, "2023-06-01T11:00:00.000Z", pts[0].Timestamp)
	assert.Equal(t, "2023-06-01T12:00:00.000Z", pts[1].Timestamp)
	assert.Equal(t, "EUR/kWh", pts[1].Unit)
}

func TestPrepareRejectsBadInput(t *testing.T) {
	_, err := Prepare(Floats(1), 0)
	assert.True(t, errors.Is(err, model.ErrInput))

	_, err = Prepare(Floats(1, math.NaN()), 60)
	var ie *model.InputError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "data[1]", ie.Field)

	_, err = ParseRaw([]byte(`{"not":"an array"}`))
	assert.True(t, errors.Is(err, model.ErrInput))
}
