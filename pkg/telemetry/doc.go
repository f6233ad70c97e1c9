// Package telemetry provides the observability surfaces of the Strata
// resolution engine: structured logging via zerolog, Prometheus metrics for
// resolution outcomes, and OpenTelemetry tracing of runs and per-target
// resolutions.
//
// All collectors are optional and nil-safe: an engine wired without metrics
// or tracing pays no cost and emits nothing.
package telemetry
