// Package logger builds the service's zap logger.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger settings.
type Config struct {
	Service     string // attached to every entry as "service"
	Level       string // debug, info, warn, error
	Encoding    string // json or console; empty picks console in development
	OutputPath  string // stdout when empty
	Development bool
}

// New builds a zap.Logger from cfg. Unknown levels fall back to info
// (debug in development) and unknown encodings to json.
//
// Development mode switches to colored console output with caller and
// stack traces on warnings, so local runs read like the gin debug log.
func New(cfg Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(defaultLevel(cfg.Development))
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid log level '%s', using '%s'. Error: %v\n", cfg.Level, defaultLevel(cfg.Development), err)
			level.SetLevel(defaultLevel(cfg.Development))
		}
	}

	encoding := strings.ToLower(cfg.Encoding)
	switch {
	case encoding == "" && cfg.Development:
		encoding = "console"
	case encoding != "console" && encoding != "json":
		encoding = "json"
	}

	outputPath := cfg.OutputPath
	if outputPath == "" {
		outputPath = "stdout"
	}

	zapConfig := zap.Config{
		Level:             level,
		Development:       cfg.Development,
		DisableCaller:     !cfg.Development,
		DisableStacktrace: !cfg.Development,
		Encoding:          encoding,
		EncoderConfig:     encoderConfig(cfg.Development, encoding),
		OutputPaths:       []string{outputPath},
		ErrorOutputPaths:  []string{"stderr"},
	}
	if cfg.Service != "" {
		zapConfig.InitialFields = map[string]any{"service": cfg.Service}
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

func defaultLevel(development bool) zapcore.Level {
	if development {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

func encoderConfig(development bool, encoding string) zapcore.EncoderConfig {
	if development {
		encoderCfg := zap.NewDevelopmentEncoderConfig()
		if encoding == "console" {
			encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		return encoderCfg
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return encoderCfg
}
