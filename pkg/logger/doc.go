// Package logger provides the structured logging interface used across artgrab.
//
// It wraps zerolog with a small interface that supports fields, error
// attachment and a capturing TestLogger for assertions in tests.
//
//	log := logger.GetLogger().WithField("component", "session")
//	log.InfoWithFields("Download completed", map[string]interface{}{
//	    "artwork_id": "12345",
//	    "part":       0,
//	})
//
// Console output goes to stderr. When LoggingConfig.File is set, lines are
// written to the file as well.
package logger
