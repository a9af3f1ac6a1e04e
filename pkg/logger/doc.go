// Package logger provides a structured logging interface for animedl.
//
// It wraps zerolog with a small Logger interface supporting:
//   - Debug, Info, Warn and Error levels
//   - Structured fields via WithField / WithFields / WithError
//   - Pretty console output on stderr
//   - Optional JSON log file alongside the console
//   - A global logger for the CLI and injectable loggers for components
//
// Basic usage:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	logger.WithField("episode", "Naruto-Episode-1").Info("Resolving video URL")
//
// Components take a Logger in their constructors; tests pass
// logger.NewTestLogger() to capture output or logger.NewNopLogger() to drop it.
package logger
