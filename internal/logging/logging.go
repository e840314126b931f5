// Package logging builds the zap logger used by the command line tool.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lhaig/axiom/internal/config"
)

// ParseLevel converts a config level name to a zap level
func ParseLevel(s string) (zapcore.Level, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}

// New returns a logger writing to stderr and, when cfg.File is set, to a
// size-rotated file
func New(cfg config.LogConfig) (*zap.Logger, error) {
	var sinks []zapcore.WriteSyncer
	sinks = append(sinks, zapcore.Lock(os.Stderr))
	if cfg.File != "" {
		sinks = append(sinks, zapcore.AddSync(RotatingFile(cfg)))
	}
	return build(cfg, zapcore.NewMultiWriteSyncer(sinks...))
}

// NewWriter returns a logger writing only to w
func NewWriter(cfg config.LogConfig, w io.Writer) (*zap.Logger, error) {
	return build(cfg, zapcore.AddSync(w))
}

// RotatingFile returns the lumberjack sink configured by cfg
func RotatingFile(cfg config.LogConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
}

func build(cfg config.LogConfig, out zapcore.WriteSyncer) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch cfg.Format {
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	case "console", "":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
	return zap.New(zapcore.NewCore(enc, out, level)), nil
}
