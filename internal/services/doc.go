// Package services defines shared utilities consumed by the remote-control
// client and the multistream orchestration layer.
//
// Key responsibilities:
//   - Context helpers that stamp operation names, correlation identifiers, and
//     job references for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate remote and
//     local failures into a consistent, classifiable error chain.
//
// Use these helpers when wiring new client operations so error handling and
// observability stay uniform across the system.
package services
