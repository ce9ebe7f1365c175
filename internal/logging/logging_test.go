package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{Level: "loud", Format: "json"})
	assert.Error(t, err)

	_, err = New(Config{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := newWithSink(DefaultConfig(), zapcore.AddSync(&buf))
	require.NoError(t, err)

	l.Info("pnl computed", zap.String("wallet", "0xabc"), zap.String("mode", "anchored"))
	require.NoError(t, l.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "pnl computed", entry["msg"])
	assert.Equal(t, "0xabc", entry["wallet"])
	assert.Equal(t, "info", entry["level"])
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := newWithSink(Config{Level: "warn", Format: "json"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	child := l.Named("snapshot")
	child.Info("hidden")
	assert.Empty(t, buf.String())

	require.NoError(t, l.SetLevel("debug"))
	assert.Equal(t, zapcore.DebugLevel, l.Level())

	child.Debug("visible")
	assert.True(t, strings.Contains(buf.String(), "visible"))

	assert.Error(t, l.SetLevel("nope"))
}
