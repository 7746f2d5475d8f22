package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	t.Run("json to stdout", func(t *testing.T) {
		log, err := New(&Config{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		})
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("file output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		log, err := New(&Config{Level: "debug", Format: "json", Output: path, TimeFormat: "15:04:05"})
		require.NoError(t, err)

		log.Info("debt generated", zap.String("plate", "ABC123"))
		require.NoError(t, log.Sync())

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(data, &entry))
		assert.Equal(t, "debt generated", entry["msg"])
		assert.Equal(t, "ABC123", entry["plate"])
	})
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"fatal":   zapcore.FatalLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestWithAndNamed(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	With(base, zap.String("driver_id", "d1")).Info("assigned")
	Named(base, "billing").Info("generated")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "d1", logs.All()[0].ContextMap()["driver_id"])
	assert.Equal(t, "billing", logs.All()[1].LoggerName)
}

func TestSync(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	assert.NoError(t, Sync(zap.New(core)))
}
