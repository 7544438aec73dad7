// Package observability wires logging, metrics and error reporting.
package observability

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a JSON logger at the named level, falling back to info
// when the level is unknown.
func NewLogger(level string) *logrus.Logger {
	return newLogger(os.Stdout, level)
}

func newLogger(out io.Writer, level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// MaskEmail keeps the first three characters of an address for log
// correlation: "owner@lab.com" -> "own***".
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	if len(email) <= 3 {
		return "***"
	}
	return email[:3] + "***"
}
