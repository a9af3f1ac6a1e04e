package logger

import (
	"time"
)

// LogRequest logs HTTP request information
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.DebugWithFields("HTTP request completed", fields)
	}
}

// LogEpisode logs the terminal outcome of one episode
func LogEpisode(l Logger, name, status string, elapsed time.Duration, err error) {
	entry := l.WithFields(map[string]interface{}{
		"episode": name,
		"status":  status,
		"elapsed": elapsed.Round(time.Millisecond).String(),
	})

	switch {
	case err != nil:
		entry.WithError(err).Error("Episode failed")
	case status == "skipped":
		entry.Info("Already downloaded")
	default:
		entry.Info("Episode downloaded")
	}
}

// LogAttempt logs one download attempt
func LogAttempt(l Logger, path string, attempt, maxAttempts int, written int64, err error) {
	fields := map[string]interface{}{
		"path":         path,
		"attempt":      attempt,
		"max_attempts": maxAttempts,
		"bytes":        written,
	}

	if err != nil {
		l.WithError(err).WarnWithFields("Download partial or corrupted, retrying", fields)
		return
	}
	l.DebugWithFields("Download attempt finished", fields)
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing
type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
