// Package otel publishes tokenpair engine metrics as OpenTelemetry
// observable instruments.
//
// [NewExporter] registers one Int64ObservableCounter per engine counter and
// one Int64ObservableGauge per latency bucket. A single callback reads the
// engine snapshot on each collection cycle. Callers own the MeterProvider.
package otel
