// Package config 提供统一的配置管理
//
// 主 Config 结构体嵌入各组件子配置，每个子配置在独立文件中定义。
// 优先级从低到高：默认值 < 配置文件（JSON 或 YAML）< 环境变量 < 命令行参数。
//
// 使用示例：
//
//	cfg, err := config.Load("office.yaml")
//	if err != nil { ... }
//	config.ApplyEnv(cfg)
//	cfg.Office.MaxNeighbors = 5
//	if err := cfg.Validate(); err != nil { ... }
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 是 GPS 办公室网络的完整配置结构
//
//   - Directory: 目录服务地址与记录租期
//   - Office: 邻居表、处理延迟、重同步、指标
//   - Transport: RPC 拨号、调用超时、会话与限流
//   - Headquarters: 总部 websocket 与 MQTT 输出
//   - Log: 日志级别与格式
type Config struct {
	Directory    DirectoryConfig    `json:"directory" yaml:"directory"`
	Office       OfficeConfig       `json:"office" yaml:"office"`
	Transport    TransportConfig    `json:"transport" yaml:"transport"`
	Headquarters HeadquartersConfig `json:"headquarters" yaml:"headquarters"`
	Log          LogConfig          `json:"log" yaml:"log"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level debug | info | warn | error
	Level string `json:"level" yaml:"level"`

	// Format text | json
	Format string `json:"format" yaml:"format"`
}

// DefaultLogConfig 默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{Level: "info", Format: "text"}
}

// Validate 验证日志配置
func (c LogConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.Format)
	}
	return nil
}

// ErrInvalidConfig 配置无效
var ErrInvalidConfig = errors.New("config: invalid configuration")

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Directory:    DefaultDirectoryConfig(),
		Office:       DefaultOfficeConfig(),
		Transport:    DefaultTransportConfig(),
		Headquarters: DefaultHeadquartersConfig(),
		Log:          DefaultLogConfig(),
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := c.Directory.Validate(); err != nil {
		return err
	}
	if err := c.Office.Validate(); err != nil {
		return err
	}
	if err := c.Transport.Validate(); err != nil {
		return err
	}
	if err := c.Headquarters.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}

	// 调用方等待对端处理完毕，超时必须大于处理延迟
	if c.Transport.CallTimeout.Duration() <= c.Office.ProcessingDelay.Duration() {
		return fmt.Errorf("%w: transport.call_timeout (%s) must exceed office.processing_delay (%s)",
			ErrInvalidConfig, c.Transport.CallTimeout, c.Office.ProcessingDelay)
	}
	return nil
}

// Load 从文件加载配置
//
// 扩展名为 .yaml/.yml 时按 YAML 解析，否则按 JSON 解析。
// 文件中未出现的字段保持默认值。path 为空时返回默认配置。
func Load(path string) (*Config, error) {
	cfg := NewConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: 用户指定的配置文件路径是预期行为
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
