package app

import (
	"context"
	"fmt"

	"github.com/kilianp07/arbitrage/config"
	"github.com/kilianp07/arbitrage/core/catalog"
	coremetrics "github.com/kilianp07/arbitrage/core/metrics"
	"github.com/kilianp07/arbitrage/core/optimizer"
	"github.com/kilianp07/arbitrage/infra/diagnostics"
	"github.com/kilianp07/arbitrage/infra/logger"
	"github.com/kilianp07/arbitrage/infra/marketdata/rte"
	"github.com/kilianp07/arbitrage/infra/metrics"
	"github.com/kilianp07/arbitrage/infra/mqtt"
	"github.com/kilianp07/arbitrage/internal/eventbus"
)

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	var markets catalog.MarketSource = catalog.NewFileMarketSource(cfg.Catalog.MarketsDir)
	if cfg.MarketData.RTE.Enabled {
		src, err := rte.NewSource(cfg.MarketData.RTE)
		if err != nil {
			return nil, fmt.Errorf("rte market source: %w", err)
		}
		markets = catalog.MultiMarketSource{markets, src}
	}

	recorder, err := diagnostics.New(cfg.Diagnostics)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	engine := optimizer.New(cfg.Solver,
		optimizer.WithRecorder(recorder),
		optimizer.WithLogger(logger.New("optimizer")),
	)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = recorder.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	var publisher mqtt.ResultPublisher = mqtt.NopPublisher{}
	if cfg.MQTT.Enabled() {
		p, err := mqtt.NewPublisher(cfg.MQTT)
		if err != nil {
			_ = recorder.Close()
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		publisher = p
	}

	svc, err := NewService(Deps{
		Markets:   markets,
		Profiles:  catalog.NewFileProfileSource(cfg.Catalog.ConfigurationsDir),
		Engine:    engine,
		Sink:      sink,
		Bus:       eventbus.NewTyped[coremetrics.RunEvent](),
		Publisher: publisher,
		Logger:    logg,
		Workers:   cfg.Workers,
	})
	if err != nil {
		publisher.Close()
		_ = recorder.Close()
		return nil, err
	}
	svc.AddCloser(recorder.Close)
	if c, ok := sink.(interface{ Close() }); ok {
		svc.AddCloser(func() error { c.Close(); return nil })
	}
	svc.promAddr = cfg.Metrics.PrometheusAddr
	return svc, nil
}

// Start runs the background parts of the service: the metrics collector and,
// when configured, the dedicated Prometheus listener. The returned channel is
// closed once the collector has drained.
func (s *Service) Start(ctx context.Context) <-chan struct{} {
	done := metrics.StartEventCollector(ctx, s.bus, s.sink)
	if s.promAddr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	return done
}
