package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

// New builds the process logger. Development gets colored console output,
// everything else JSON.
func New(environment, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if environment == "development" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = lvl
	}
	return cfg.Build()
}

// NewLogrus builds the executor logger. When file is set, entries go to both
// stderr and the file.
func NewLogrus(level, file string) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetOutput(os.Stderr)

	if level != "" {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		l.SetLevel(lvl)
	}

	if file != "" {
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open executor log file: %w", err)
		}
		l.SetOutput(io.MultiWriter(os.Stderr, f))
	}
	return l, nil
}
