// Package otel publishes Engine metrics through an OpenTelemetry Meter.
//
// Each counter becomes an Int64ObservableCounter and each histogram bucket an
// Int64ObservableGauge, all fed by one callback that reads
// Engine.MetricsSnapshot per collection. The caller supplies the Meter.
package otel
