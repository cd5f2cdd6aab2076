// Package logging builds the zap logger used across treenav.
//
// The terminal belongs to the TUI, so logs only go to a file. With no file
// configured every log call is discarded.
package logging

import (
	"os"
	"path/filepath"

	"go.trai.ch/zerr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the log destination and verbosity.
type Config struct {
	File   string `koanf:"file" yaml:"file"`
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"` // json or console
}

// ErrInvalidLevel is returned for an unknown log level.
var ErrInvalidLevel = zerr.New("invalid log level")

// New returns a logger for cfg and a function that flushes and closes it.
func New(cfg Config) (*zap.Logger, func(), error) {
	if cfg.File == "" {
		return zap.NewNop(), func() {}, nil
	}

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, zerr.With(ErrInvalidLevel, "level", cfg.Level)
		}
		level = parsed
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return nil, nil, zerr.Wrap(err, "create log directory")
	}
	file, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, zerr.With(zerr.Wrap(err, "open log file"), "path", cfg.File)
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), zapcore.AddSync(file), level)
	logger := zap.New(core, zap.AddCaller())
	closer := func() {
		_ = logger.Sync()
		_ = file.Close()
	}
	return logger, closer, nil
}

func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
