package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/arbitrage/core/logger"
	"github.com/kilianp07/arbitrage/core/milp"
	"github.com/kilianp07/arbitrage/core/model"
)

// flowTolerance is the energy below which a flow counts as zero when idle
// indicators are released.
const flowTolerance = 1e-6

// Snapshot is the input of one Optimize call as handed to an InputRecorder.
type Snapshot struct {
	Time            time.Time          `json:"-"`
	PowerLimit      float64            `json:"power_limit"`
	Capacity        float64            `json:"capacity"`
	InitialSoC      float64            `json:"initial_soc"`
	IntervalMinutes int                `json:"interval_minutes"`
	Prices          []model.PricePoint `json:"data"`
}

// InputRecorder receives every validated input before it is solved. Errors
// are logged and never fail the optimization.
type InputRecorder interface {
	RecordInput(ctx context.Context, s Snapshot) error
}

// Engine builds and solves the arbitrage program. It holds no per-call state
// and is safe for concurrent use.
type Engine struct {
	cfg      Config
	solver   milp.Solver
	recorder InputRecorder
	log      logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSolver replaces the default branch-and-bound solver. The solver must
// return soon after its context is done: a timed-out Optimize call waits for
// it before returning.
func WithSolver(s milp.Solver) Option {
	return func(e *Engine) {
		if s != nil {
			e.solver = s
		}
	}
}

// WithRecorder installs a diagnostic input recorder.
func WithRecorder(r InputRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New returns an Engine for cfg.
func New(cfg Config, opts ...Option) *Engine {
	cfg.SetDefaults()
	e := &Engine{cfg: cfg, log: logger.NopLogger{}}
	for _, o := range opts {
		o(e)
	}
	if e.solver == nil {
		var bopts []milp.Option
		if cfg.NodeLimit > 0 {
			bopts = append(bopts, milp.WithNodeLimit(cfg.NodeLimit))
		}
		e.solver = milp.NewBranchAndBound(bopts...)
	}
	return e
}

// Config returns the engine configuration with defaults applied.
func (e *Engine) Config() Config { return e.cfg }

// Optimize schedules the asset described by cfg against prices.
//
// Invalid inputs fail with an InputError before any model is built. A solve
// that is not optimal, including one that outlives the configured timeout,
// fails with a SolverError; no partial schedule is returned. An empty series
// yields an empty schedule with zero aggregates.
func (e *Engine) Optimize(ctx context.Context, prices []model.PricePoint, cfg model.StorageConfig) (model.OptimizationResult, error) {
	if err := validate(prices, cfg); err != nil {
		return model.OptimizationResult{}, err
	}
	if len(prices) == 0 {
		return model.OptimizationResult{Schedule: []model.ScheduleEntry{}}, nil
	}
	e.record(ctx, prices, cfg)

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout())
	defer cancel()

	start := time.Now()
	a, err := e.solveHorizon(ctx, prices, cfg)
	if err != nil {
		e.log.Warnf("optimization of %d intervals failed after %s: %v", len(prices), time.Since(start), err)
		return model.OptimizationResult{}, err
	}
	res, err := Extract(prices, a, cfg)
	if err != nil {
		return model.OptimizationResult{}, err
	}
	e.log.Debugw("optimization done", map[string]any{
		"intervals": len(prices),
		"cycles":    res.TotalCycles,
		"revenue":   res.Revenue,
		"duration":  time.Since(start).String(),
	})
	return res, nil
}

func validate(prices []model.PricePoint, cfg model.StorageConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	for i, p := range prices {
		if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
			return model.NewInputError(fmt.Sprintf("prices[%d]", i), "must be a finite number")
		}
		if p.Timestamp == "" {
			return model.NewInputError(fmt.Sprintf("prices[%d]", i), "has no timestamp")
		}
	}
	return nil
}

func (e *Engine) record(ctx context.Context, prices []model.PricePoint, cfg model.StorageConfig) {
	if e.recorder == nil {
		return
	}
	s := Snapshot{
		Time:            time.Now(),
		PowerLimit:      cfg.PowerLimit,
		Capacity:        cfg.Capacity,
		InitialSoC:      cfg.InitialSoC,
		IntervalMinutes: cfg.IntervalMinutes,
		Prices:          prices,
	}
	if err := e.recorder.RecordInput(ctx, s); err != nil {
		e.log.Warnf("recording optimization input: %v", err)
	}
}

// solveHorizon solves the series in one piece or window by window.
func (e *Engine) solveHorizon(ctx context.Context, prices []model.PricePoint, cfg model.StorageConfig) (Assignment, error) {
	size := e.cfg.WindowIntervals
	if size <= 0 || size >= len(prices) {
		return e.solveWindow(ctx, prices, cfg, cfg.InitialSoC)
	}
	e.log.Warnf("solving %d intervals in windows of %d: the schedule is not guaranteed optimal over the horizon", len(prices), size)
	out := newAssignment(0)
	soc := cfg.InitialSoC
	for from := 0; from < len(prices); from += size {
		to := min(from+size, len(prices))
		a, err := e.solveWindow(ctx, prices[from:to], cfg, soc)
		if err != nil {
			return Assignment{}, err
		}
		out.append(a)
		soc = clamp(quantity(a.SoC[a.Len()-1]).InexactFloat64(), 0, cfg.Capacity)
	}
	return out, nil
}

// solveWindow runs one solve on its own goroutine. When ctx ends first, it
// still waits for the solver to return so that no solve outlives the call.
func (e *Engine) solveWindow(ctx context.Context, prices []model.PricePoint, cfg model.StorageConfig, initialSoC float64) (Assignment, error) {
	f, err := formulate(prices, cfg, initialSoC)
	if err != nil {
		return Assignment{}, err
	}

	type result struct {
		sol milp.Solution
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: &InternalError{Stage: "solve", Index: -1, Err: fmt.Errorf("panic: %v", r)}}
			}
		}()
		sol, err := e.solver.Solve(ctx, f.problem)
		ch <- result{sol: sol, err: err}
	}()

	var r result
	select {
	case r = <-ch:
	case <-ctx.Done():
		<-ch
		return Assignment{}, &SolverError{Status: milp.StatusTimedOut, Err: ctx.Err()}
	}
	if r.err != nil {
		var ie *InternalError
		if errors.As(r.err, &ie) {
			return Assignment{}, ie
		}
		return Assignment{}, solverError(r.err)
	}
	if r.sol.Status != milp.StatusOptimal {
		return Assignment{}, &SolverError{Status: r.sol.Status}
	}

	a, err := f.assignment(r.sol)
	if err != nil {
		return Assignment{}, err
	}
	releaseIdleFlags(&a)
	return a, nil
}

// releaseIdleFlags clears indicators that are set without any flow behind
// them. Indicators carry no cost, so an idle interval may come back with a
// flag at 1; clearing it yields an equally optimal assignment that reads HOLD.
func releaseIdleFlags(a *Assignment) {
	for t := range a.ChargeFlag {
		if a.Charge[t] <= flowTolerance {
			a.ChargeFlag[t] = 0
		}
		if a.Discharge[t] <= flowTolerance {
			a.DischargeFlag[t] = 0
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
