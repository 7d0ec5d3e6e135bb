// Package metrics defines the run events emitted by the optimization service
// and the sinks recording them. Sinks such as the Prometheus and InfluxDB
// implementations in infra/metrics are combined with NewMultiSink; the factory
// helpers return a MultiSink automatically when several sinks are configured.
package metrics
