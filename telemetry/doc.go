// Package telemetry wires the transport core to OpenTelemetry tracing and
// metrics and provides a structured JSON logger with secret redaction.
//
// The executor records one span and one set of counters per logical
// operation, tagged with the adapter, operation name, target and rate
// limit category. Everything is noop-capable: a zero-config Observer logs
// nothing and exports nothing, so the core never requires telemetry
// configuration to run.
package telemetry
