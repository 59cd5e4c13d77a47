// Package metrics exposes poll-cycle metrics to Prometheus.
package metrics
