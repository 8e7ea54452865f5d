// Package observability wires OpenTelemetry tracing for generation runs.
//
// Jobs, lessons and assembly stages open spans through Tracer; InitTracing
// decides where they go (stdout or an OTLP/HTTP collector) based on the
// [tracing] configuration section.
package observability
