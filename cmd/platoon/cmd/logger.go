package cmd

import (
	"os"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// initLogger initializes the zap logger. LOG_LEVEL and LOG_FORMAT override the configuration.
func initLogger(cfg config.LoggingConfig) *zap.Logger {
	logLevel := cfg.Level
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		logLevel = env
	}

	var level zapcore.Level
	switch logLevel {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	logFormat := cfg.Format
	if env := os.Getenv("LOG_FORMAT"); env != "" {
		logFormat = env
	}

	var zc zap.Config
	if logFormat == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stdout"}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
