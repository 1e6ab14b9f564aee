package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// 环境变量名（均使用 GPSOFFICE_ 前缀）
const (
	EnvPrefix = "GPSOFFICE_"

	EnvDirectoryHost   = "DIRECTORY_HOST"
	EnvDirectoryPort   = "DIRECTORY_PORT"
	EnvMaxNeighbors    = "MAX_NEIGHBORS"
	EnvEvictionPolicy  = "EVICTION_POLICY"
	EnvProcessingDelay = "PROCESSING_DELAY"
	EnvResyncInterval  = "RESYNC_INTERVAL"
	EnvListenAddr      = "LISTEN_ADDR"
	EnvAdvertiseAddr   = "ADVERTISE_ADDR"
	EnvCallTimeout     = "CALL_TIMEOUT"
	EnvMetricsAddr     = "METRICS_ADDR"
	EnvWSAddr          = "WS_ADDR"
	EnvMQTTBroker      = "MQTT_BROKER"
	EnvLogLevel        = "LOG_LEVEL"
	EnvLogFormat       = "LOG_FORMAT"
)

// ApplyEnv 应用环境变量覆盖配置
//
// 环境变量优先级高于配置文件，但低于命令行参数。无法解析的值被忽略。
func ApplyEnv(cfg *Config) {
	if v, ok := lookup(EnvDirectoryHost); ok {
		cfg.Directory.Host = v
	}
	if v, ok := lookup(EnvDirectoryPort); ok {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Directory.Port = port
		}
	}
	if v, ok := lookup(EnvMaxNeighbors); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Office.MaxNeighbors = n
		}
	}
	if v, ok := lookup(EnvEvictionPolicy); ok {
		cfg.Office.EvictionPolicy = v
	}
	if v, ok := lookup(EnvProcessingDelay); ok {
		setDuration(&cfg.Office.ProcessingDelay, v)
	}
	if v, ok := lookup(EnvResyncInterval); ok {
		setDuration(&cfg.Office.ResyncInterval, v)
	}
	if v, ok := lookup(EnvListenAddr); ok {
		cfg.Transport.ListenAddr = v
	}
	if v, ok := lookup(EnvAdvertiseAddr); ok {
		cfg.Transport.AdvertiseAddr = v
	}
	if v, ok := lookup(EnvCallTimeout); ok {
		setDuration(&cfg.Transport.CallTimeout, v)
	}
	if v, ok := lookup(EnvMetricsAddr); ok {
		cfg.Office.MetricsAddr = v
	}
	if v, ok := lookup(EnvWSAddr); ok {
		cfg.Headquarters.WSAddr = v
	}
	if v, ok := lookup(EnvMQTTBroker); ok {
		cfg.Headquarters.MQTTBroker = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.Log.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok {
		cfg.Log.Format = v
	}
}

func lookup(name string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(EnvPrefix + name))
	return v, v != ""
}

func setDuration(dst *Duration, v string) {
	if d, err := time.ParseDuration(v); err == nil {
		*dst = Duration(d)
	}
}
