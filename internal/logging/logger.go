package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the application logger. level is a zap level name ("debug",
// "info", ...); an unknown level falls back to info. When file is empty the
// logger writes to stderr, otherwise it appends to file.
func New(level, file string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Level = zap.NewAtomicLevelAt(ParseLevel(level))

	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		config.OutputPaths = []string{file}
		config.ErrorOutputPaths = []string{file}
	}

	logger, err := config.Build(
		zap.Fields(zap.String("service", "agenda-contatos")),
	)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// ParseLevel parses a level name, defaulting to info
func ParseLevel(s string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return zapcore.InfoLevel
	}
	return level
}
