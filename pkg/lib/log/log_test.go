package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for name, want := range cases {
		got, ok := ParseLevel(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := ParseLevel("loud")
	assert.False(t, ok)
}

// TestLazyLogger_ComponentAttr 测试组件属性与 JSON 格式
func TestLazyLogger_ComponentAttr(t *testing.T) {
	t.Setenv(EnvLevel, "")
	t.Setenv(EnvFormat, "")
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	Setup(Options{Level: "debug", Format: "json", Output: &buf})

	Logger("core/forward").Debug("hello", "k", 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "core/forward", rec["component"])
	assert.Equal(t, "hello", rec["msg"])
	assert.Contains(t, rec, "ts")
}

// TestSetup_EnvOverrides 测试环境变量覆盖级别
func TestSetup_EnvOverrides(t *testing.T) {
	t.Setenv(EnvLevel, "error")
	t.Setenv(EnvFormat, "text")
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	Setup(Options{Level: "debug", Output: &buf})

	Logger("x").Info("suppressed")
	assert.Empty(t, buf.String())

	Logger("x").Error("shown")
	assert.Contains(t, buf.String(), "shown")
}
