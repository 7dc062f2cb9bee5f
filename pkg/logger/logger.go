package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

// InitLogger initializes the structured logger with proper configuration
func InitLogger(logLevel string, isDevelopment bool) *logrus.Logger {
	log := logrus.New()

	// Override with environment if not provided
	if logLevel == "" {
		logLevel = os.Getenv("LOG_LEVEL")
		if logLevel == "" {
			if isDevelopment {
				logLevel = "debug"
			} else {
				logLevel = "info"
			}
		}
	}

	if level, err := logrus.ParseLevel(strings.ToLower(logLevel)); err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(logrus.InfoLevel)
		log.WithField("invalid_level", logLevel).Warn("Invalid LOG_LEVEL, using INFO")
	}

	// Set formatter based on environment
	if !isDevelopment || strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceColors:     true,
		})
	}

	// CLI output goes to stdout, so logs go to stderr
	log.SetOutput(os.Stderr)

	// Store global logger reference
	Logger = log

	return log
}

// GetLogger returns the global logger instance
func GetLogger() *logrus.Logger {
	if Logger == nil {
		return InitLogger("info", false)
	}
	return Logger
}

// Discard returns a logger that drops everything. Used by tests and pure callers.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func orGlobal(log *logrus.Logger) *logrus.Logger {
	if log == nil {
		return GetLogger()
	}
	return log
}

// WithComponent creates a logger with engine component context
func WithComponent(log *logrus.Logger, component string) *logrus.Entry {
	return orGlobal(log).WithField("component", component)
}

// WithFixture creates a logger scoped to one home/away pairing
func WithFixture(log *logrus.Logger, home, away string) *logrus.Entry {
	return orGlobal(log).WithFields(logrus.Fields{
		"home": home,
		"away": away,
	})
}

// WithMatch creates a logger with match context
func WithMatch(log *logrus.Logger, matchID string) *logrus.Entry {
	return orGlobal(log).WithField("match_id", matchID)
}

// WithRun creates a logger for a backtest or batch run
func WithRun(log *logrus.Logger, runID, kind string) *logrus.Entry {
	return orGlobal(log).WithFields(logrus.Fields{
		"run_id":   runID,
		"run_kind": kind,
	})
}

// WithHTTPContext creates a logger with HTTP request context
func WithHTTPContext(log *logrus.Logger, method, path, userAgent string) *logrus.Entry {
	return orGlobal(log).WithFields(logrus.Fields{
		"http_method":     method,
		"http_path":       path,
		"http_user_agent": userAgent,
	})
}
