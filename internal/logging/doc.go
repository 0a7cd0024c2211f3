// Package logging provides structured logging helpers built on log/slog.
//
// It defines the attribute keys shared across the codebase (operation,
// provider, job_id, ...) plus helpers for anonymizing user identifiers and
// masking token material so that credentials never reach log output.
package logging
