package logger_test

import (
	"testing"

	"github.com/SeaCloudHub/objdetect/pkg/logger"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNewAppLogger(t *testing.T) {
	t.Run("development logs at debug level", func(t *testing.T) {
		t.Setenv("ENV", "development")
		t.Setenv("LOG_LEVEL", "")

		l, err := logger.NewAppLogger()
		assert.NoError(t, err)
		assert.True(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("production logs at info level", func(t *testing.T) {
		t.Setenv("ENV", "production")
		t.Setenv("LOG_LEVEL", "")

		l, err := logger.NewAppLogger()
		assert.NoError(t, err)
		assert.False(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))
		assert.True(t, l.Desugar().Core().Enabled(zapcore.InfoLevel))
	})

	t.Run("LOG_LEVEL overrides the environment", func(t *testing.T) {
		t.Setenv("ENV", "development")
		t.Setenv("LOG_LEVEL", "warn")

		l, err := logger.NewAppLogger()
		assert.NoError(t, err)
		assert.False(t, l.Desugar().Core().Enabled(zapcore.InfoLevel))
	})

	t.Run("it should reject an unknown level", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "loud")

		_, err := logger.NewAppLogger()
		assert.Error(t, err)
	})
}
