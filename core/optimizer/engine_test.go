package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/arbitrage/core/logger"
	"github.com/kilianp07/arbitrage/core/milp"
	"github.com/kilianp07/arbitrage/core/model"
	"github.com/kilianp07/arbitrage/core/prices"
)

func hourly(values ...float64) []model.PricePoint {
	pts, err := prices.Prepare(prices.Floats(values...), 60)
	if err != nil {
		panic(err)
	}
	return pts
}

func storage(power, capacity, soc float64, interval int) model.StorageConfig {
	return model.StorageConfig{PowerLimit: power, Capacity: capacity, InitialSoC: soc, IntervalMinutes: interval}
}

// checkInvariants asserts the physical invariants every valid schedule holds.
func checkInvariants(t *testing.T, res model.OptimizationResult, cfg model.StorageConfig) {
	t.Helper()
	const eps = 1e-5
	p := cfg.PowerPerInterval()
	prev := cfg.InitialSoC
	for i, e := range res.Schedule {
		assert.GreaterOrEqual(t, e.StateOfCharge, -eps, "soc lower bound at %d", i)
		assert.LessOrEqual(t, e.StateOfCharge, cfg.Capacity+eps, "soc upper bound at %d", i)
		assert.InDelta(t, e.NetFlow, e.StateOfCharge-prev, eps, "energy balance at %d", i)
		assert.LessOrEqual(t, math.Abs(e.NetFlow), p+eps, "power limit at %d", i)
		require.True(t, e.Action.Valid())
		switch e.Action {
		case model.ActionBuy:
			assert.Greater(t, e.NetFlow, 0.0, "BUY without charge at %d", i)
		case model.ActionSell:
			assert.Less(t, e.NetFlow, 0.0, "SELL without discharge at %d", i)
		case model.ActionHold:
			assert.InDelta(t, 0, e.NetFlow, eps, "HOLD with flow at %d", i)
		}
		prev = e.StateOfCharge
	}
}

func TestOptimizeAlternatingPrices(t *testing.T) {
	cfg := storage(100, 100, 0, 60)
	res, err := New(Config{}).Optimize(context.Background(), hourly(10, 50, 10, 50), cfg)
	require.NoError(t, err)

	actions := make([]model.Action, 0, len(res.Schedule))
	for _, e := range res.Schedule {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []model.Action{model.ActionBuy, model.ActionSell, model.ActionBuy, model.ActionSell}, actions)
	assert.Equal(t, 8, res.Revenue)
	assert.Equal(t, 2, res.TotalCycles)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", res.Schedule[0].Timestamp)
	assert.Equal(t, 0.05, res.Schedule[1].Price)
	assert.InDelta(t, 100, res.Schedule[0].StateOfCharge, 1e-6)
	checkInvariants(t, res, cfg)
}

func TestOptimizeEmptySeries(t *testing.T) {
	eng := New(Config{}, WithSolver(&fakeSolver{err: errors.New("must not be called")}))
	for name, pts := range map[string][]model.PricePoint{
		"nil":      nil,
		"empty":    {},
		"all null": mustPrepare(t, []*float64{nil, nil, nil}),
	} {
		t.Run(name, func(t *testing.T) {
			res, err := eng.Optimize(context.Background(), pts, storage(10, 20, 0, 15))
			require.NoError(t, err)
			assert.Equal(t, 0, res.Revenue)
			assert.Equal(t, 0, res.TotalCycles)
			assert.NotNil(t, res.Schedule)
			assert.Empty(t, res.Schedule)
		})
	}
}

func TestOptimizeZeroPower(t *testing.T) {
	cfg := storage(0, 100, 40, 60)
	res, err := New(Config{}).Optimize(context.Background(), hourly(10, 50, 5, 80, 30), cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Revenue)
	assert.Equal(t, 0, res.TotalCycles)
	for _, e := range res.Schedule {
		assert.Equal(t, model.ActionHold, e.Action)
		assert.Zero(t, e.NetFlow)
		assert.InDelta(t, 40, e.StateOfCharge, 1e-9)
	}
}

func TestOptimizeZeroCapacity(t *testing.T) {
	cfg := storage(50, 0, 0, 60)
	res, err := New(Config{}).Optimize(context.Background(), hourly(10, 90), cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalCycles)
	assert.Equal(t, 0, res.Revenue)
	checkInvariants(t, res, cfg)
}

func TestOptimizeTiedPrices(t *testing.T) {
	cfg := storage(100, 100, 0, 60)
	eng := New(Config{})
	first, err := eng.Optimize(context.Background(), hourly(20, 20, 60, 60), cfg)
	require.NoError(t, err)
	second, err := eng.Optimize(context.Background(), hourly(20, 20, 60, 60), cfg)
	require.NoError(t, err)

	assert.Equal(t, 4, first.Revenue)
	assert.Equal(t, 1, first.TotalCycles)
	assert.Equal(t, first.Revenue, second.Revenue)
	counts := first.Counts()
	assert.GreaterOrEqual(t, counts[model.ActionBuy], 1)
	assert.GreaterOrEqual(t, counts[model.ActionSell], 1)
	checkInvariants(t, first, cfg)
}

func TestOptimizeInvariantsSubHourly(t *testing.T) {
	cfg := storage(50, 60, 10, 30)
	pts, err := prices.Prepare(prices.Floats(30, 12, 45, 80, 22, 15, 90, 40), 30)
	require.NoError(t, err)

	res, err := New(Config{}).Optimize(context.Background(), pts, cfg)
	require.NoError(t, err)
	require.Len(t, res.Schedule, 8)
	assert.Greater(t, res.Revenue, 0)
	assert.Equal(t, "2024-01-01T00:30:00.000Z", res.Schedule[1].Timestamp)
	checkInvariants(t, res, cfg)
}

func TestOptimizeWithGaps(t *testing.T) {
	v := func(f float64) *float64 { return &f }
	pts := mustPrepare(t, []*float64{v(10), nil, v(50), nil})
	res, err := New(Config{}).Optimize(context.Background(), pts, storage(100, 100, 0, 60))
	require.NoError(t, err)
	require.Len(t, res.Schedule, 2)
	assert.Equal(t, "2024-01-01T02:00:00.000Z", res.Schedule[1].Timestamp)
	assert.Equal(t, 4, res.Revenue)
	assert.Equal(t, 1, res.TotalCycles)
}

func TestOptimizeRollingWindow(t *testing.T) {
	cfg := storage(100, 100, 0, 60)
	log := &warnLog{}
	res, err := New(Config{WindowIntervals: 2}, WithLogger(log)).Optimize(context.Background(), hourly(10, 50, 10, 50, 10), cfg)
	require.NoError(t, err)
	assert.Equal(t, 8, res.Revenue)
	assert.Equal(t, 2, res.TotalCycles)
	require.Len(t, res.Schedule, 5)
	checkInvariants(t, res, cfg)
	require.Len(t, log.warns, 1)
	assert.Contains(t, log.warns[0], "windows of 2")

	log.warns = nil
	_, err = New(Config{}, WithLogger(log)).Optimize(context.Background(), hourly(10, 50, 10, 50, 10), cfg)
	require.NoError(t, err)
	assert.Empty(t, log.warns, "full horizon solves do not warn")
}

func TestOptimizeInvalidInput(t *testing.T) {
	solver := &fakeSolver{}
	eng := New(Config{}, WithSolver(solver))
	cases := map[string]struct {
		pts []model.PricePoint
		cfg model.StorageConfig
	}{
		"negative power":  {hourly(1), storage(-1, 10, 0, 60)},
		"soc above cap":   {hourly(1), storage(1, 10, 11, 60)},
		"zero interval":   {hourly(1), storage(1, 10, 0, 0)},
		"nan price":       {[]model.PricePoint{{Timestamp: "x", Price: math.NaN()}}, storage(1, 10, 0, 60)},
		"empty timestamp": {[]model.PricePoint{{Price: 1}}, storage(1, 10, 0, 60)},
		"empty but bad":   {nil, storage(1, -10, 0, 60)},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := eng.Optimize(context.Background(), tc.pts, tc.cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInput)
			var ie *InputError
			assert.True(t, errors.As(err, &ie))
		})
	}
	assert.Zero(t, solver.calls.Load())
}

func TestOptimizeSolverStatus(t *testing.T) {
	cases := map[string]struct {
		solver *fakeSolver
		status milp.Status
	}{
		"infeasible error": {&fakeSolver{err: &milp.StatusError{Status: milp.StatusInfeasible}}, milp.StatusInfeasible},
		"unbounded status": {&fakeSolver{sol: milp.Solution{Status: milp.StatusUnbounded}}, milp.StatusUnbounded},
		"node limit":       {&fakeSolver{err: &milp.StatusError{Status: milp.StatusNodeLimit}}, milp.StatusNodeLimit},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := New(Config{}, WithSolver(tc.solver)).Optimize(context.Background(), hourly(10, 20), storage(1, 1, 0, 60))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSolver)
			var se *SolverError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tc.status, se.Status)
			assert.Nil(t, res.Schedule)
		})
	}
}

func TestOptimizeSolverBackendFailure(t *testing.T) {
	eng := New(Config{}, WithSolver(&fakeSolver{err: errors.New("singular matrix")}))
	_, err := eng.Optimize(context.Background(), hourly(10, 20), storage(1, 1, 0, 60))
	assert.ErrorIs(t, err, ErrInternal)
	assert.NotErrorIs(t, err, ErrSolver)
}

func TestOptimizeShortSolution(t *testing.T) {
	eng := New(Config{}, WithSolver(&fakeSolver{sol: milp.Solution{Status: milp.StatusOptimal, Values: []float64{1}}}))
	_, err := eng.Optimize(context.Background(), hourly(10, 20), storage(1, 1, 0, 60))
	var ie *InternalError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "solution", ie.Stage)
}

func TestOptimizeTimeout(t *testing.T) {
	solver := &fakeSolver{delay: time.Second, linger: 30 * time.Millisecond}
	eng := New(Config{}, WithSolver(solver))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	res, err := eng.Optimize(ctx, hourly(10, 20), storage(1, 1, 0, 60))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond, "waits for the solver to wind down")
	assert.False(t, solver.running.Load(), "solver still running after Optimize returned")
	var se *SolverError
	require.True(t, errors.As(err, &se))
	assert.True(t, se.Timeout())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, res.Schedule)
}

func TestOptimizeRecorder(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	eng := New(Config{}, WithRecorder(rec))
	pts := hourly(10, 50)
	res, err := eng.Optimize(context.Background(), pts, storage(100, 100, 0, 60))
	require.NoError(t, err, "recorder failures never fail a run")
	assert.Equal(t, 4, res.Revenue)
	require.Len(t, rec.got, 1)
	assert.Equal(t, 100.0, rec.got[0].Capacity)
	assert.Equal(t, 60, rec.got[0].IntervalMinutes)
	assert.Equal(t, pts, rec.got[0].Prices)
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	assert.Equal(t, DefaultSolveTimeout, c.Timeout())
	c.WindowIntervals = -3
	c.SetDefaults()
	assert.Equal(t, 60, c.SolveTimeoutSeconds)
	assert.Equal(t, 0, c.WindowIntervals)
	assert.Equal(t, 2*time.Second, Config{SolveTimeoutSeconds: 2}.Timeout())
}

func mustPrepare(t *testing.T, raw []*float64) []model.PricePoint {
	t.Helper()
	pts, err := prices.Prepare(raw, 60)
	require.NoError(t, err)
	return pts
}

// fakeSolver returns a canned answer after delay. Once ctx is done it takes
// linger more to return, like a solver finishing its current pivot.
type fakeSolver struct {
	sol     milp.Solution
	err     error
	delay   time.Duration
	linger  time.Duration
	calls   atomic.Int32
	running atomic.Bool
}

func (f *fakeSolver) Solve(ctx context.Context, _ *milp.Problem) (milp.Solution, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		f.running.Store(true)
		defer f.running.Store(false)
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			time.Sleep(f.linger)
			return milp.Solution{}, &milp.StatusError{Status: milp.StatusTimedOut, Err: ctx.Err()}
		}
	}
	return f.sol, f.err
}

type warnLog struct {
	logger.NopLogger
	warns []string
}

func (l *warnLog) Warnf(format string, args ...any) {
	l.warns = append(l.warns, fmt.Sprintf(format, args...))
}

type fakeRecorder struct {
	got []Snapshot
	err error
}

func (r *fakeRecorder) RecordInput(_ context.Context, s Snapshot) error {
	r.got = append(r.got, s)
	return r.err
}
