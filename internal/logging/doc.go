// Package logging assembles structured slog loggers and formatting helpers used
// across coursegen.
//
// It owns the console and JSON handlers, routes an optional rotated JSON log
// file through lumberjack, and exposes context-aware helpers so pipeline code
// can tag log lines with job IDs, stages, and lesson orders automatically. A
// no-op logger is provided for tests and wiring code that cannot fail.
package logging
