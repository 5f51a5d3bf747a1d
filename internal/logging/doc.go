// Package logging assembles structured slog loggers and formatting helpers
// used across filmpress components.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so cycle code automatically tags
// log lines with run identifiers and source paths. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
package logging
