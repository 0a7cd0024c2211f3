// Package instrumentation wires OpenTelemetry metrics with a Prometheus
// exporter and provides nil-safe recorders for the service's counters.
package instrumentation
