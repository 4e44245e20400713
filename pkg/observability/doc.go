// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing setup, health endpoints and graceful shutdown
// helpers for the vaultgate server.
package observability
