package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// DirectoryConfig 目录服务配置
type DirectoryConfig struct {
	// Host 目录服务主机
	Host string `json:"host" yaml:"host"`

	// Port 目录服务端口
	Port int `json:"port" yaml:"port"`

	// RecordTTL 办公室记录租期，0 表示不过期
	RecordTTL Duration `json:"record_ttl" yaml:"record_ttl"`

	// CleanupInterval 过期记录清理间隔
	CleanupInterval Duration `json:"cleanup_interval" yaml:"cleanup_interval"`

	// SubscriberBuffer 每个订阅者的事件缓冲
	SubscriberBuffer int `json:"subscriber_buffer" yaml:"subscriber_buffer"`
}

// DefaultDirectoryConfig 默认目录服务配置
func DefaultDirectoryConfig() DirectoryConfig {
	return DirectoryConfig{
		Host:             "localhost",
		Port:             1099,
		RecordTTL:        Duration(time.Minute),
		CleanupInterval:  Duration(10 * time.Second),
		SubscriberBuffer: 64,
	}
}

// Validate 验证目录服务配置
func (c DirectoryConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: directory.port %d", ErrInvalidConfig, c.Port)
	}
	if c.RecordTTL < 0 || c.CleanupInterval < 0 {
		return fmt.Errorf("%w: directory durations must not be negative", ErrInvalidConfig)
	}
	if c.RecordTTL > 0 && c.CleanupInterval == 0 {
		return fmt.Errorf("%w: directory.cleanup_interval required with record_ttl", ErrInvalidConfig)
	}
	if c.SubscriberBuffer < 1 {
		return fmt.Errorf("%w: directory.subscriber_buffer must be positive", ErrInvalidConfig)
	}
	return nil
}

// Addr 返回 host:port
func (c DirectoryConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
