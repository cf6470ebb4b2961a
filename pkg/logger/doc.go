// Package logger provides the structured logging interface used across
// storereviews.
//
// It wraps zerolog with a small field-oriented API. Console output is colored
// and goes to stderr; when a log file is configured every line is also
// appended to that file.
//
// Basic Usage:
//
//	err := logger.Initialize(&config.LoggingConfig{Level: "info"})
//
//	log := logger.GetLogger().WithField("app", "com.example.app")
//	log.InfoWithFields("Fetched review page", map[string]interface{}{
//	    "page":         3,
//	    "page_reviews": 40,
//	})
//
// Tests use NewNopLogger when output is irrelevant and NewTestLogger when
// they need to assert on what was logged.
package logger
