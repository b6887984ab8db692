package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestLogger_KeyValues(t *testing.T) {
	log, logs := observed(zapcore.DebugLevel)

	log.Info("document stored", "document_id", "doc-1", "bytes", 42)
	log.With("run_id", "run-9").Error("step failed", "step", "compile")

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, "document stored", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, map[string]interface{}{"document_id": "doc-1", "bytes": int64(42)}, entries[0].ContextMap())

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, map[string]interface{}{"run_id": "run-9", "step": "compile"}, entries[1].ContextMap())
}

func TestLogger_LevelFilter(t *testing.T) {
	log, logs := observed(zapcore.WarnLevel)

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "shown", logs.All()[0].Message)
}

func TestNew(t *testing.T) {
	for _, mode := range []string{"prod", "PRODUCTION", "dev", ""} {
		log, err := New(mode)
		require.NoError(t, err, mode)
		require.NotNil(t, log.SugaredLogger)
	}
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Info("ignored", "k", "v")
	log.With("a", 1).Warn("ignored")
	log.Sync()
}
