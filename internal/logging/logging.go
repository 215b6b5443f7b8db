// Package logging builds the zap loggers used by the binaries.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level       string
	Development bool
	File        string
}

// New returns a logger writing to stderr and, when cfg.File is set, to a
// size-rotated file. Every entry carries the component name.
func New(cfg Config, component string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if s := strings.TrimSpace(cfg.Level); s != "" {
		parsed, err := zapcore.ParseLevel(s)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	var encCfg zapcore.EncoderConfig
	if cfg.Development {
		encCfg = zap.NewDevelopmentEncoderConfig()
	} else {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	var consoleEnc zapcore.Encoder
	if cfg.Development {
		consoleEnc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		consoleEnc = zapcore.NewJSONEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stderr), level),
	}
	if path := strings.TrimSpace(cfg.File); path != "" {
		rotator := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), level))
	}

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	logger := zap.New(zapcore.NewTee(cores...), opts...)
	if component != "" {
		logger = logger.With(zap.String("component", component))
	}
	return logger, nil
}
