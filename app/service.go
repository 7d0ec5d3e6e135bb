package app

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/arbitrage/core/catalog"
	"github.com/kilianp07/arbitrage/core/logger"
	coremetrics "github.com/kilianp07/arbitrage/core/metrics"
	"github.com/kilianp07/arbitrage/core/model"
	coremon "github.com/kilianp07/arbitrage/core/monitoring"
	"github.com/kilianp07/arbitrage/core/optimizer"
	"github.com/kilianp07/arbitrage/core/prices"
	"github.com/kilianp07/arbitrage/infra/mqtt"
	"github.com/kilianp07/arbitrage/internal/eventbus"
)

// Run is the outcome of one optimization.
type Run struct {
	ID       string
	Market   catalog.Market
	Profile  model.StorageProfile
	Result   model.OptimizationResult
	Duration time.Duration
}

// Deps are the collaborators of a Service. Nil members fall back to no-op
// implementations, except Markets, Profiles and Engine which are required.
type Deps struct {
	Markets   catalog.MarketSource
	Profiles  catalog.ProfileSource
	Engine    *optimizer.Engine
	Sink      coremetrics.MetricsSink
	Bus       *eventbus.TypedBus[coremetrics.RunEvent]
	Publisher mqtt.ResultPublisher
	Logger    logger.Logger
	Workers   int
}

// Service runs optimizations for the API and the CLI. Solves are CPU bound;
// at most Workers of them run at the same time across all callers.
type Service struct {
	markets   catalog.MarketSource
	profiles  catalog.ProfileSource
	engine    *optimizer.Engine
	sink      coremetrics.MetricsSink
	bus       *eventbus.TypedBus[coremetrics.RunEvent]
	publisher mqtt.ResultPublisher
	log       logger.Logger
	slots     chan struct{}
	workers   int
	closers   []func() error
	promAddr  string
}

// NewService wires a Service from explicit collaborators.
func NewService(d Deps) (*Service, error) {
	if d.Markets == nil || d.Profiles == nil || d.Engine == nil {
		return nil, errors.New("app: markets, profiles and engine are required")
	}
	if d.Workers <= 0 {
		d.Workers = runtime.GOMAXPROCS(0)
	}
	if d.Sink == nil {
		d.Sink = coremetrics.NopSink{}
	}
	if d.Bus == nil {
		d.Bus = eventbus.NewTyped[coremetrics.RunEvent]()
	}
	if d.Publisher == nil {
		d.Publisher = mqtt.NopPublisher{}
	}
	return &Service{
		markets:   d.Markets,
		profiles:  d.Profiles,
		engine:    d.Engine,
		sink:      d.Sink,
		bus:       d.Bus,
		publisher: d.Publisher,
		log:       logger.OrNop(d.Logger),
		slots:     make(chan struct{}, d.Workers),
		workers:   d.Workers,
	}, nil
}

// Bus exposes the run event bus.
func (s *Service) Bus() *eventbus.TypedBus[coremetrics.RunEvent] { return s.bus }

// Sink returns the metrics sink runs are recorded in.
func (s *Service) Sink() coremetrics.MetricsSink { return s.sink }

// Workers returns the solve concurrency limit.
func (s *Service) Workers() int { return s.workers }

// Markets lists the available markets.
func (s *Service) Markets(ctx context.Context) ([]catalog.Market, error) {
	return s.markets.List(ctx)
}

// Profiles lists the stored storage configurations.
func (s *Service) Profiles(ctx context.Context) ([]model.StorageProfile, error) {
	return s.profiles.List(ctx)
}

// Profile resolves a stored storage configuration by name.
func (s *Service) Profile(ctx context.Context, name string) (model.StorageProfile, error) {
	return s.profiles.Get(ctx, name)
}

// CalculateRevenue optimizes profile against the market marketID.
func (s *Service) CalculateRevenue(ctx context.Context, marketID string, profile model.StorageProfile) (Run, error) {
	start := time.Now()
	md, err := s.markets.Load(ctx, marketID)
	if err != nil {
		s.finish(ctx, Run{ID: uuid.NewString(), Market: catalog.Market{ID: marketID}, Profile: profile}, start, 0, err)
		return Run{}, err
	}
	return s.optimize(ctx, md, profile, start)
}

// OptimizeSeries optimizes profile against an ad-hoc raw feed.
func (s *Service) OptimizeSeries(ctx context.Context, raw []*float64, intervalMinutes int, profile model.StorageProfile) (Run, error) {
	md := catalog.MarketData{Market: catalog.Market{Name: "adhoc", Interval: intervalMinutes}, Data: raw}
	return s.optimize(ctx, md, profile, time.Now())
}

func (s *Service) optimize(ctx context.Context, md catalog.MarketData, profile model.StorageProfile, start time.Time) (Run, error) {
	run := Run{ID: uuid.NewString(), Market: md.Market, Profile: profile}
	points, err := prices.Prepare(md.Data, md.Market.Interval)
	if err != nil {
		s.finish(ctx, run, start, 0, err)
		return Run{}, err
	}

	if err := s.acquire(ctx); err != nil {
		err = &optimizer.SolverError{Status: solverTimeout, Err: err}
		s.finish(ctx, run, start, len(points), err)
		return Run{}, err
	}
	res, err := s.engine.Optimize(ctx, points, profile.ForInterval(md.Market.Interval))
	s.release()

	run.Result = res
	run.Duration = time.Since(start)
	s.finish(ctx, run, start, len(points), err)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

func (s *Service) acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for a solver slot: %w", ctx.Err())
	}
}

func (s *Service) release() { <-s.slots }

// finish reports a run, successful or not, to the bus, the monitor and the
// result publisher.
func (s *Service) finish(ctx context.Context, run Run, start time.Time, intervals int, err error) {
	status := Status(err)
	ev := coremetrics.RunEvent{
		RunID:       run.ID,
		MarketID:    run.Market.ID,
		Profile:     run.Profile.Name,
		Intervals:   intervals,
		Status:      status,
		TotalCycles: run.Result.TotalCycles,
		Revenue:     run.Result.Revenue,
		Duration:    time.Since(start),
		Time:        time.Now(),
	}
	s.bus.Publish(ev)

	if err != nil {
		if errors.Is(err, optimizer.ErrSolver) || errors.Is(err, optimizer.ErrInternal) {
			coremon.CaptureException(err, map[string]string{
				"module":  "optimizer",
				"market":  run.Market.ID,
				"profile": run.Profile.Name,
				"status":  status,
			})
			s.log.Errorf("run %s on %q failed: %v", run.ID, run.Market.ID, err)
		} else {
			s.log.Warnf("run %s on %q rejected: %v", run.ID, run.Market.ID, err)
		}
		return
	}

	s.log.Infof("run %s on %q with %q: %d cycles, revenue %d in %s",
		run.ID, run.Market.ID, run.Profile.Name, run.Result.TotalCycles, run.Result.Revenue, ev.Duration)
	report := mqtt.RunReport{
		RunID:       run.ID,
		MarketID:    run.Market.ID,
		Profile:     run.Profile.Name,
		Time:        ev.Time,
		Intervals:   intervals,
		TotalCycles: run.Result.TotalCycles,
		Revenue:     run.Result.Revenue,
		Schedule:    run.Result.Schedule,
	}
	if perr := s.publisher.PublishResult(ctx, report); perr != nil {
		s.log.Warnf("publish run %s: %v", run.ID, perr)
	}
}

// AddCloser registers a release hook run by Close in reverse order.
func (s *Service) AddCloser(f func() error) { s.closers = append(s.closers, f) }

// Close releases the publisher and every registered resource.
func (s *Service) Close() error {
	s.publisher.Close()
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.bus.Close()
	return errors.Join(errs...)
}
