package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs one provider HTTP round trip
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

// LogPage logs a successfully fetched review page
func LogPage(l Logger, app string, page, pageReviews, totalReviews int) {
	l.InfoWithFields("Fetched review page", map[string]interface{}{
		"app":           app,
		"page":          page,
		"page_reviews":  pageReviews,
		"total_reviews": totalReviews,
	})
}

// LogPause logs a failed page fetch followed by a pause
func LogPause(l Logger, app string, page, attempt int, pause time.Duration, errorType string, permanent bool, err error) {
	l.WithError(err).WarnWithFields("Page fetch failed, pausing before retry", map[string]interface{}{
		"app":        app,
		"page":       page,
		"attempt":    attempt,
		"pause":      pause,
		"error_type": errorType,
		"permanent":  permanent,
	})
}

// LogFileWritten logs a persisted output file
func LogFileWritten(l Logger, path string, records int) {
	l.DebugWithFields("Wrote output file", map[string]interface{}{
		"path":    path,
		"records": records,
	})
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	entry := l.WithField("component", component)
	if len(config) > 0 {
		entry = entry.WithFields(config)
	}
	entry.Info("Component started")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
