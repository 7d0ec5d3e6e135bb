package metrics

import (
	"context"

	coremetrics "github.com/kilianp07/arbitrage/core/metrics"
	"github.com/kilianp07/arbitrage/infra/logger"
	"github.com/kilianp07/arbitrage/internal/eventbus"
)

// StartEventCollector subscribes to the run bus and records every event in
// sink. It stops when the context is canceled or the bus is closed; the
// returned channel is closed once the collector has exited.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[coremetrics.RunEvent], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := sink.RecordRun(ev); err != nil {
					log.Warnf("record run %s: %v", ev.RunID, err)
				}
			}
		}
	}()
	return done
}
