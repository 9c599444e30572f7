// Package otel publishes tokenauth engine metrics through OpenTelemetry
// observable instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per engine counter
// and, per latency histogram, a bucket gauge carrying an "le" attribute plus a
// count gauge. A single callback reads [tokenauth.Engine.MetricsSnapshot] on
// each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
