// Package metrics provides Prometheus instrumentation for grow-core.
//
// The collectors cover the outbound vendor path only: request counts and
// durations, retry counts, and circuit-breaker state. Exposition is owned
// by the embedding application; this package never starts an HTTP server.
package metrics
