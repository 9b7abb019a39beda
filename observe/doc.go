// Package observe provides the telemetry used by chatquery: an OpenTelemetry
// tracer and meter, a JSON line logger, and a Middleware that wraps each
// query with a span, counters and a completion log line.
//
// Everything degrades to no-ops when disabled, so callers never need nil
// checks. Exporter selection lives in the exporters subpackage.
package observe
