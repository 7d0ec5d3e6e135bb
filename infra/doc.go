// Package infra contains technical adapters such as the MQTT result
// publisher, metrics exporters, remote market data and input diagnostics.
// These packages should depend only on the interfaces defined in the core
// packages.
package infra
