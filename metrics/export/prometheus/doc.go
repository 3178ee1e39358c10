// Package prometheus exposes tokenpair engine metrics through
// prometheus/client_golang.
//
// [Exporter] is a prometheus.Collector that reads a fresh
// [tokenpair.MetricsSnapshot] on every scrape. Counters are named
// tokenpair_*_total; the single histogram is
// tokenpair_authenticate_latency_seconds.
//
// The exporter never touches the global registry. Register it with a
// registry of your own, or mount [Exporter.Handler], which uses a private
// one.
package prometheus
