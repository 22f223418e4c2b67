// Package metrics exposes task pipeline metrics to Prometheus. The
// Collector is fed by task lifecycle events.
package metrics
