package config

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger: на debug цветная консоль для локальной отладки,
// на остальных уровнях JSON для сборщика логов
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level := parseLogLevel(cfg.Level)

	zc := jsonConfig()
	if level == zapcore.DebugLevel {
		zc = consoleConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	if cfg.Service != "" {
		zc.InitialFields = map[string]any{"service": cfg.Service}
	}

	return zc.Build()
}

func consoleConfig() zap.Config {
	zc := zap.NewDevelopmentConfig()
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zc
}

func jsonConfig() zap.Config {
	zc := zap.NewProductionConfig()
	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc
}

// parseLogLevel понимает debug..error; всё остальное, включая пустую строку, это info
func parseLogLevel(raw string) zapcore.Level {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "warning" {
		name = "warn"
	}

	level, err := zapcore.ParseLevel(name)
	if err != nil || level > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return level
}
