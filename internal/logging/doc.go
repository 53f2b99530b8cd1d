// Package logging assembles the structured slog loggers used across seam.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes small attr helpers so components tag log lines with
// the same field keys everywhere. A no-op logger is provided for tests and
// wiring code that cannot fail.
package logging
