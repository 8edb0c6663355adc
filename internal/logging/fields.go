// Package logging provides structured field helpers over logrus so every
// component logs with a consistent vocabulary of keys.
package logging

import (
	"github.com/sirupsen/logrus"
)

const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldSessionID   = "session_id"
	FieldUserID      = "user_id"
	FieldStage       = "stage"
	FieldStrategy    = "strategy"
	FieldLanguage    = "language"
	FieldConfidence  = "confidence"
	FieldDurationMS  = "duration_ms"
	FieldPackageSize = "package_count"
)

// New builds a logrus.Logger configured per LoggingConfig-style inputs.
func New(level, format string) *logrus.Logger {
	logger := logrus.New()

	switch format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// WithComponent scopes a logger to a named component (e.g. "intent",
// "recommend", "orchestrator").
func WithComponent(logger logrus.FieldLogger, component string) *logrus.Entry {
	return logger.WithField(FieldComponent, component)
}

// WithRequest scopes a logger to a single inbound request.
func WithRequest(logger logrus.FieldLogger, requestID, sessionID string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		FieldRequestID: requestID,
		FieldSessionID: sessionID,
	})
}

// WithStage annotates a log entry with the orchestrator stage it came from.
func WithStage(logger logrus.FieldLogger, stage string) *logrus.Entry {
	return logger.WithField(FieldStage, stage)
}
