package logger

import (
	"errors"
	"testing"

	"go-regula/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerDevelopment(t *testing.T) {
	log, err := NewLogger(&config.Config{Environment: "development", AppId: "regula"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNewLoggerProduction(t *testing.T) {
	log, err := NewLogger(&config.Config{Environment: "production", AppId: "regula"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestCronLoggerForwardsErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cl := NewCronLogger(zap.New(core))

	cl.Info("wake", "now", "later")
	cl.Error(errors.New("panic in job"), "job failed", "entry", 1)

	require.Equal(t, 2, logs.Len())
	entry := logs.All()[1]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "job failed", entry.Message)
	assert.Equal(t, "panic in job", entry.ContextMap()["error"])
}
