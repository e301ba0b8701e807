// ABOUTME: logrus setup from the configured level and log file
// ABOUTME: Text to stderr by default, JSON when writing to a file
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// ConfigureLogger sets the standard logrus logger's level and destination.
//
// Valid levels are "none", "error", "warn", "info" and "debug". An empty
// logFile logs text to stderr; otherwise JSON is written to the file, which
// the caller must close.
func ConfigureLogger(level, logFile string) (*os.File, error) {
	if level == "none" {
		logrus.SetOutput(io.Discard)
		return nil, nil
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil || lvl > logrus.DebugLevel || lvl < logrus.ErrorLevel {
		return nil, fmt.Errorf("unexpected log level: %q", level)
	}
	logrus.SetLevel(lvl)

	if logFile == "" {
		logrus.SetOutput(os.Stderr)
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return nil, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logrus.SetOutput(f)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	return f, nil
}
