// Package logging provides a thin wrapper around zap for structured logging.
//
// Logging is silent by default so CLI output stays clean; set
// WLEDBRIDGE_LOG_LEVEL to "debug", "info", "warn" or "error" to enable it.
// Long-running modes (serve, watch) initialize an explicit level instead.
package logging
