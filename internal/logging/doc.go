// Package logging assembles structured slog loggers and formatting helpers
// used across glossa components.
//
// It owns the configurable console/JSON handlers, centralizes level and
// output plumbing, and exposes attribute helpers so component code tags log
// lines with job IDs, services, and correlation IDs in a uniform shape. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail, plus an in-memory StreamHub that fans recent log events out to the
// log-follow endpoints.
//
// Prefer these constructors over hand-rolled slog setup so new components
// emit data with the same shape and routing guarantees as the rest of the
// system.
package logging
