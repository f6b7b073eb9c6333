package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewAppLogger builds the process logger. ENV=production selects the JSON
// production encoder at info level, anything else the console development
// encoder at debug level. LOG_LEVEL overrides the level in both cases.
func NewAppLogger() (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	if os.Getenv("ENV") == "production" {
		cfg = zap.NewProductionConfig()
	}

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		level, err := zapcore.ParseLevel(lvl)
		if err != nil {
			return nil, err
		}

		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return logger.Sugar(), nil
}

func Sync(logger *zap.SugaredLogger) {
	_ = logger.Sync()
}
