// Package log centralizes logrus setup for the rpcserver binary, reading
// its sink/level/format from internal/config.LoggingConfig the way the
// teacher's services construct a per-component logger at startup.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/synnergy-rpc/synnergy-rpc/internal/config"
)

// New builds a *logrus.Entry scoped to component, configured from cfg.
func New(component string, cfg config.LoggingConfig) *logrus.Entry {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logger.SetOutput(output(cfg.File))

	return logger.WithField("component", component)
}

func output(file string) io.Writer {
	if file == "" {
		return os.Stderr
	}
	f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return os.Stderr
	}
	return f
}
