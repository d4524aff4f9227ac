package config

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/symptom-risk-server/internal/domain"
)

// NewLogger builds the process logger from the logging section. Unknown levels fall
// back to info. Output "stderr" writes to standard error, which the MCP stdio
// transport requires since stdout carries the protocol.
func NewLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}

	logger.SetOutput(outputFor(cfg.Output))
	return logger
}

func outputFor(output string) io.Writer {
	switch strings.ToLower(output) {
	case "stderr":
		return os.Stderr
	case "discard", "none":
		return io.Discard
	default:
		return os.Stdout
	}
}
