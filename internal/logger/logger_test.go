package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZap(zap.New(core))

	log.WarnObj("telegram publish failed", "dispatch_error", map[string]any{
		"source": "El ABC",
		"error":  errors.New("boom"),
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "telegram publish failed", entries[0].Message)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "dispatch_error", ctx["event"])
	assert.Equal(t, "El ABC", ctx["source"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	_, err := New("loud", "json")
	assert.Error(t, err)

	_, err = New("info", "xml")
	assert.Error(t, err)

	log, err := New("debug", "console")
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestEnsure(t *testing.T) {
	assert.IsType(t, NopLogger{}, Ensure(nil))

	core, _ := observer.New(zapcore.InfoLevel)
	l := NewZap(zap.New(core))
	assert.Same(t, l, Ensure(l))
}
