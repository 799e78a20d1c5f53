// Package metrics collects per-profile request metrics for the unwrap
// endpoints.
//
// Handlers emit MetricEvent values on a buffered channel; a single
// goroutine started by Collector.Start folds them into in-memory counters
// and a private Prometheus registry. Emit drops events when the buffer is
// full so the request path never waits on bookkeeping.
//
// Two read paths exist:
//
//	collector.Handler()           JSON Snapshot (counts, outcomes, latency percentiles)
//	collector.PrometheusHandler() Prometheus text exposition
//
// On context cancellation the collector drains whatever is still buffered
// before it exits.
package metrics
