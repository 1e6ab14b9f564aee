package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestNewConfig 测试创建默认配置
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultMaxNeighbors, cfg.Office.MaxNeighbors)
	assert.Equal(t, DefaultProcessingDelay, cfg.Office.ProcessingDelay.Duration())
	assert.Equal(t, "localhost:1099", cfg.Directory.Addr())
}

// TestConfig_Validate 测试配置验证
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero neighbors", func(c *Config) { c.Office.MaxNeighbors = 0 }},
		{"unknown policy", func(c *Config) { c.Office.EvictionPolicy = "random" }},
		{"negative delay", func(c *Config) { c.Office.ProcessingDelay = Duration(-time.Second) }},
		{"call timeout below delay", func(c *Config) { c.Transport.CallTimeout = Duration(time.Second) }},
		{"bad port", func(c *Config) { c.Directory.Port = 70000 }},
		{"rate without burst", func(c *Config) { c.Transport.RateLimit = 10; c.Transport.RateBurst = 0 }},
		{"bad qos", func(c *Config) { c.Headquarters.MQTTQoS = 3 }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	var nilCfg *Config
	assert.Error(t, nilCfg.Validate())
}

// TestDuration_JSON 测试 Duration JSON 编解码
func TestDuration_JSON(t *testing.T) {
	var v struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"1m30s","b":1000000}`), &v))
	assert.Equal(t, 90*time.Second, v.A.Duration())
	assert.Equal(t, time.Millisecond, v.B.Duration())

	data, err := json.Marshal(Duration(3 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"3s"`, string(data))

	assert.Error(t, json.Unmarshal([]byte(`{"a":"soon"}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"a":true}`), &v))
}

// TestDuration_YAML 测试 Duration YAML 编解码
func TestDuration_YAML(t *testing.T) {
	var v struct {
		A Duration `yaml:"a"`
		B Duration `yaml:"b"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: 250ms\nb: 2000\n"), &v))
	assert.Equal(t, 250*time.Millisecond, v.A.Duration())
	assert.Equal(t, Duration(2000), v.B)

	out, err := yaml.Marshal(map[string]Duration{"a": Duration(time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, "a: 1m0s\n", string(out))

	assert.Error(t, yaml.Unmarshal([]byte("a: [1]\n"), &v))
}

// TestLoad 测试从文件加载
func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("Empty", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, NewConfig(), cfg)
	})

	t.Run("YAML", func(t *testing.T) {
		path := filepath.Join(dir, "office.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
office:
  max_neighbors: 5
  eviction_policy: best-fit
  processing_delay: 100ms
directory:
  host: registry
`), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Office.MaxNeighbors)
		assert.Equal(t, "best-fit", cfg.Office.EvictionPolicy)
		assert.Equal(t, 100*time.Millisecond, cfg.Office.ProcessingDelay.Duration())
		assert.Equal(t, "registry", cfg.Directory.Host)
		// 未出现的字段保持默认值
		assert.Equal(t, 1099, cfg.Directory.Port)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("JSON", func(t *testing.T) {
		path := filepath.Join(dir, "office.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"transport":{"call_timeout":"45s"}}`), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 45*time.Second, cfg.Transport.CallTimeout.Duration())
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.json"))
		assert.Error(t, err)
	})

	t.Run("Malformed", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

// TestApplyEnv 测试环境变量覆盖
func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvPrefix+EnvDirectoryHost, "dir.example")
	t.Setenv(EnvPrefix+EnvDirectoryPort, "2099")
	t.Setenv(EnvPrefix+EnvMaxNeighbors, "4")
	t.Setenv(EnvPrefix+EnvProcessingDelay, "10ms")
	t.Setenv(EnvPrefix+EnvMQTTBroker, "tcp://broker:1883")
	t.Setenv(EnvPrefix+EnvResyncInterval, "not-a-duration")

	cfg := NewConfig()
	ApplyEnv(cfg)

	assert.Equal(t, "dir.example", cfg.Directory.Host)
	assert.Equal(t, 2099, cfg.Directory.Port)
	assert.Equal(t, 4, cfg.Office.MaxNeighbors)
	assert.Equal(t, 10*time.Millisecond, cfg.Office.ProcessingDelay.Duration())
	assert.Equal(t, "tcp://broker:1883", cfg.Headquarters.MQTTBroker)
	assert.Equal(t, time.Minute, cfg.Office.ResyncInterval.Duration())
}
