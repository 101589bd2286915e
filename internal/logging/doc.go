// Package logging provides structured logging for selectmini.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used by the upload client, the CLI and the printer emulator.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Raw request/response dumps, connection events
//   - Info: Normal operations (uploads, emulator requests, discovery)
//   - Warn: Non-fatal issues (busy device, unparsable status messages)
//   - Error: Failed uploads, rejected commands, startup failures
//
// # Structured Logging
//
// All log functions use structured fields:
//
//	logging.Info("Uploading G-code",
//	    zap.String("ip", "192.168.1.50"),
//	    zap.Int("gcode_bytes", 48213),
//	)
//
// # Configuration
//
// CLI commands are silent by default. Set SELECTMINI_LOG_LEVEL (or pass
// --log-level to the emulator) to enable output:
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
package logging
