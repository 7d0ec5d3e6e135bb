package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/arbitrage/core/catalog"
	coremetrics "github.com/kilianp07/arbitrage/core/metrics"
	"github.com/kilianp07/arbitrage/core/milp"
	"github.com/kilianp07/arbitrage/core/model"
	coremon "github.com/kilianp07/arbitrage/core/monitoring"
	"github.com/kilianp07/arbitrage/core/optimizer"
	"github.com/kilianp07/arbitrage/core/prices"
	"github.com/kilianp07/arbitrage/infra/mqtt"
)

type memPublisher struct {
	mu      sync.Mutex
	reports []mqtt.RunReport
	closed  bool
}

func (m *memPublisher) PublishResult(_ context.Context, r mqtt.RunReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return nil
}

func (m *memPublisher) Close() { m.closed = true }

type batchSink struct {
	coremetrics.NopSink
	mu      sync.Mutex
	batches []coremetrics.BatchEvent
}

func (b *batchSink) RecordBatch(ev coremetrics.BatchEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batches = append(b.batches, ev)
	return nil
}

type captureMonitor struct {
	coremon.NopMonitor
	mu   sync.Mutex
	errs []error
	tags []map[string]string
}

func (c *captureMonitor) CaptureException(err error, tags map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
	c.tags = append(c.tags, tags)
}

func fixture(t *testing.T) (markets, profiles string) {
	t.Helper()
	root := t.TempDir()
	markets = filepath.Join(root, "markets")
	profiles = filepath.Join(root, "configurations")
	require.NoError(t, os.MkdirAll(markets, 0o755))
	require.NoError(t, os.MkdirAll(profiles, 0o755))
	files := map[string]string{
		filepath.Join(markets, "toy.json"):      `{"metadata":{"market":"Toy","year":"2024"},"interval":60,"data":[10,50,10,50]}`,
		filepath.Join(markets, "gappy.json"):    `{"metadata":{"market":"Gappy","year":"2024"},"interval":60,"data":[10,null,50]}`,
		filepath.Join(profiles, "unit.json"):    `{"name":"unit","power_limit":100,"capacity":100,"initial_soc":0}`,
		filepath.Join(profiles, "idle.yaml"):    "name: idle\npower_limit: 0\ncapacity: 100\ninitial_soc: 40\n",
		filepath.Join(profiles, "invalid.json"): `{"name":"invalid","power_limit":10,"capacity":10,"initial_soc":50}`,
	}
	for p, body := range files {
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return markets, profiles
}

func newTestService(t *testing.T, opts ...func(*Deps)) (*Service, *memPublisher) {
	t.Helper()
	markets, profiles := fixture(t)
	pub := &memPublisher{}
	d := Deps{
		Markets:   catalog.NewFileMarketSource(markets),
		Profiles:  catalog.NewFileProfileSource(profiles),
		Engine:    optimizer.New(optimizer.Config{}),
		Publisher: pub,
		Workers:   2,
	}
	for _, o := range opts {
		o(&d)
	}
	svc, err := NewService(d)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, pub
}

func unit() model.StorageProfile {
	return model.StorageProfile{Name: "unit", PowerLimit: 100, Capacity: 100}
}

func TestCalculateRevenue(t *testing.T) {
	svc, pub := newTestService(t)
	sub := svc.Bus().Subscribe()

	run, err := svc.CalculateRevenue(context.Background(), "toy", unit())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 8, run.Result.Revenue)
	assert.Equal(t, 2, run.Result.TotalCycles)
	require.Len(t, run.Result.Schedule, 4)
	assert.Equal(t, model.ActionBuy, run.Result.Schedule[0].Action)
	assert.Equal(t, model.ActionSell, run.Result.Schedule[1].Action)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", run.Result.Schedule[0].Timestamp)

	ev := <-sub
	assert.Equal(t, run.ID, ev.RunID)
	assert.Equal(t, "optimal", ev.Status)
	assert.Equal(t, "toy", ev.MarketID)
	assert.Equal(t, 4, ev.Intervals)
	assert.True(t, ev.OK())

	require.Len(t, pub.reports, 1)
	assert.Equal(t, 8, pub.reports[0].Revenue)
	assert.Equal(t, "unit", pub.reports[0].Profile)
}

func TestCalculateRevenueGapsKeepTimestamps(t *testing.T) {
	svc, _ := newTestService(t)
	run, err := svc.CalculateRevenue(context.Background(), "gappy", unit())
	require.NoError(t, err)
	require.Len(t, run.Result.Schedule, 2)
	assert.Equal(t, "2024-01-01T02:00:00.000Z", run.Result.Schedule[1].Timestamp)
	assert.Equal(t, 4, run.Result.Revenue)
}

func TestCalculateRevenueErrors(t *testing.T) {
	mon := &captureMonitor{}
	prev := coremon.Current()
	coremon.Init(mon)
	defer coremon.Init(prev)

	svc, pub := newTestService(t)
	sub := svc.Bus().Subscribe()

	_, err := svc.CalculateRevenue(context.Background(), "nope", unit())
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	assert.Equal(t, coremetrics.StatusNotFound, (<-sub).Status)

	bad := model.StorageProfile{Name: "invalid", PowerLimit: 10, Capacity: 10, InitialSoC: 50}
	_, err = svc.CalculateRevenue(context.Background(), "toy", bad)
	assert.ErrorIs(t, err, optimizer.ErrInput)
	assert.Equal(t, coremetrics.StatusInputError, (<-sub).Status)

	assert.Empty(t, pub.reports)
	assert.Empty(t, mon.errs, "input errors are not reported to the monitor")
}

type failingSolver struct{ err error }

func (f failingSolver) Solve(context.Context, *milp.Problem) (milp.Solution, error) {
	return milp.Solution{}, f.err
}

func TestSolverFailureIsCaptured(t *testing.T) {
	mon := &captureMonitor{}
	prev := coremon.Current()
	coremon.Init(mon)
	defer coremon.Init(prev)

	svc, _ := newTestService(t, func(d *Deps) {
		d.Engine = optimizer.New(optimizer.Config{}, optimizer.WithSolver(failingSolver{
			err: &milp.StatusError{Status: milp.StatusInfeasible},
		}))
	})
	_, err := svc.CalculateRevenue(context.Background(), "toy", unit())
	require.ErrorIs(t, err, optimizer.ErrSolver)
	assert.Equal(t, "infeasible", Status(err))
	require.Len(t, mon.errs, 1)
	assert.Equal(t, "toy", mon.tags[0]["market"])
	assert.Equal(t, "unit", mon.tags[0]["profile"])
}

func TestOptimizeSeries(t *testing.T) {
	svc, _ := newTestService(t)
	run, err := svc.OptimizeSeries(context.Background(), prices.Floats(10, 50, 10, 50), 60, unit())
	require.NoError(t, err)
	assert.Equal(t, 8, run.Result.Revenue)
	assert.Equal(t, "adhoc", run.Market.Name)

	run, err = svc.OptimizeSeries(context.Background(), nil, 60, unit())
	require.NoError(t, err)
	assert.Empty(t, run.Result.Schedule)
	assert.Zero(t, run.Result.Revenue)

	_, err = svc.OptimizeSeries(context.Background(), prices.Floats(1), 0, unit())
	assert.ErrorIs(t, err, optimizer.ErrInput)
}

func TestWorkerSlotTimeout(t *testing.T) {
	svc, _ := newTestService(t, func(d *Deps) { d.Workers = 1 })
	svc.slots <- struct{}{}
	defer svc.release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.CalculateRevenue(ctx, "toy", unit())
	require.ErrorIs(t, err, optimizer.ErrSolver)
	var se *optimizer.SolverError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Timeout())
}

func TestBatch(t *testing.T) {
	sink := &batchSink{}
	svc, _ := newTestService(t, func(d *Deps) { d.Sink = sink })

	jobs, err := svc.AllJobs(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 6, "2 markets x 3 profiles")

	results := svc.Batch(context.Background(), jobs)
	require.Len(t, results, len(jobs))
	failed := 0
	for i, r := range results {
		assert.Equal(t, jobs[i], r.Job, "order is kept")
		if r.Err != nil {
			failed++
			assert.Equal(t, "invalid", r.Job.Profile.Name)
			assert.Equal(t, coremetrics.StatusInputError, r.Status())
			continue
		}
		if r.Job.Profile.Name == "idle" {
			assert.Zero(t, r.Run.Result.Revenue)
			assert.Equal(t, len(r.Run.Result.Schedule), r.Run.Result.Counts()[model.ActionHold])
		}
	}
	assert.Equal(t, 2, failed)
	require.Len(t, sink.batches, 1)
	assert.Equal(t, 6, sink.batches[0].Jobs)
	assert.Equal(t, 2, sink.batches[0].Failed)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "optimal", Status(nil))
	assert.Equal(t, "timed_out", Status(&optimizer.SolverError{Status: milp.StatusTimedOut}))
	assert.Equal(t, coremetrics.StatusInternalError, Status(&optimizer.InternalError{Stage: "extract", Index: -1, Err: errors.New("x")}))
	assert.Equal(t, coremetrics.StatusNotFound, Status(catalog.ErrNotFound))
	assert.Equal(t, "timed_out", Status(context.DeadlineExceeded))
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	_, err := NewService(Deps{})
	assert.Error(t, err)
}

func TestCloseRunsClosers(t *testing.T) {
	svc, pub := newTestService(t)
	var order []int
	svc.AddCloser(func() error { order = append(order, 1); return nil })
	svc.AddCloser(func() error { order = append(order, 2); return errors.New("boom") })
	err := svc.Close()
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, []int{2, 1}, order)
	assert.True(t, pub.closed)
}
