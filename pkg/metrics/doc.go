// Package metrics defines Prometheus metrics for the peering controller,
// covering the freeze state, arbitration outcomes and keep-alive writes.
package metrics
