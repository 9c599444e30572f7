// Package prometheus exposes tokenauth engine metrics through
// prometheus/client_golang.
//
// [NewPrometheusExporter] wraps an [tokenauth.Engine] in a Collector that
// reads [tokenauth.Engine.MetricsSnapshot] on every scrape. Counters are named
// tokenauth_*_total; the validate and refresh latency histograms are
// tokenauth_validate_latency_seconds and tokenauth_refresh_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry. Callers mount Handler or
//     use Registry.
//   - Mutate engine state.
package prometheus
