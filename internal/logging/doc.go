// Package logging assembles structured slog loggers and formatting helpers
// used across the remote-control client and CLI.
//
// It centralizes level and output plumbing and exposes context-aware helpers
// so client code can automatically tag log lines with operation names, job
// references, and correlation IDs. The package also provides a no-op logger
// for tests and wiring code that cannot fail.
package logging
