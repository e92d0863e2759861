// Package logging provides structured logging for the car park core.
//
// This package wraps Go's standard log/slog package so every component logs
// with the same handler, level and default fields.
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stderr"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("car entered", "plate", "FAKE-042", "available_bays", 99)
//	logger.Error("activity log append failed", "error", err)
//
// Plates are logged as-is; they are the only identifier the lot holds.
package logging
