package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrapForwardsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := Wrap(zap.New(core)).With(String("component", "serp"))

	log.Info("search cached", String("keyword", "cafetera"), Int("items", 5))
	log.Debug("detail", Bool("hit", true))

	require.Equal(t, 2, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "search cached", entry.Message)
	assert.Equal(t, "serp", entry.ContextMap()["component"])
	assert.Equal(t, "cafetera", entry.ContextMap()["keyword"])
	assert.EqualValues(t, 5, entry.ContextMap()["items"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARNING": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestNewAndNop(t *testing.T) {
	log, err := New(Config{Level: "debug", OutputPaths: []string{t.TempDir() + "/out.log"}})
	require.NoError(t, err)
	log.Info("hello")
	_ = log.Sync()

	nop := OrNop(nil)
	nop.Error("ignored", Error(assert.AnError))
	assert.NoError(t, nop.Sync())
	assert.Equal(t, nop, nop.With(String("k", "v")))
}
