package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/arbitrage/core/metrics"
)

// PromSink records optimization runs in Prometheus metrics.
type PromSink struct {
	runs      *prometheus.CounterVec
	solve     *prometheus.HistogramVec
	revenue   *prometheus.GaugeVec
	intervals prometheus.Histogram
	batches   *prometheus.CounterVec
}

// NewPromSink registers run metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics that
// are already registered are reused, so several sinks may share a registry.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optimization_runs_total",
		Help: "Total number of optimization runs by outcome",
	}, []string{"status"})
	solve := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optimization_solve_seconds",
		Help:    "Wall time of an optimization run",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"status"})
	revenue := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "optimization_last_revenue",
		Help: "Revenue of the last successful run per market",
	}, []string{"market"})
	intervals := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "optimization_intervals",
		Help:    "Number of price intervals per run",
		Buckets: prometheus.ExponentialBuckets(4, 4, 7),
	})
	batches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optimization_batch_jobs_total",
		Help: "Jobs processed by batch evaluations",
	}, []string{"result"})

	var err error
	if runs, err = register(reg, runs); err != nil {
		return nil, err
	}
	if solve, err = register(reg, solve); err != nil {
		return nil, err
	}
	if revenue, err = register(reg, revenue); err != nil {
		return nil, err
	}
	if intervals, err = register(reg, intervals); err != nil {
		return nil, err
	}
	if batches, err = register(reg, batches); err != nil {
		return nil, err
	}
	return &PromSink{runs: runs, solve: solve, revenue: revenue, intervals: intervals, batches: batches}, nil
}

// register returns the collector already registered under the same
// descriptor, if any.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRun updates the run counters and histograms.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.Status).Inc()
	s.solve.WithLabelValues(ev.Status).Observe(ev.Duration.Seconds())
	if ev.OK() {
		s.intervals.Observe(float64(ev.Intervals))
		market := ev.MarketID
		if market == "" {
			market = "adhoc"
		}
		s.revenue.WithLabelValues(market).Set(float64(ev.Revenue))
	}
	return nil
}

// RecordBatch counts succeeded and failed batch jobs.
func (s *PromSink) RecordBatch(ev coremetrics.BatchEvent) error {
	s.batches.WithLabelValues("ok").Add(float64(ev.Jobs - ev.Failed))
	s.batches.WithLabelValues("failed").Add(float64(ev.Failed))
	return nil
}
