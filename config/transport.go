package config

import (
	"fmt"
	"time"
)

// TransportConfig RPC 传输配置
type TransportConfig struct {
	// ListenAddr 本进程 RPC 监听地址（办公室、客户、总部的监听者）
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`

	// AdvertiseAddr 对外公布的地址，空表示使用实际监听地址
	AdvertiseAddr string `json:"advertise_addr" yaml:"advertise_addr"`

	// DialTimeout 拨号超时
	DialTimeout Duration `json:"dial_timeout" yaml:"dial_timeout"`

	// CallTimeout 单次调用超时
	CallTimeout Duration `json:"call_timeout" yaml:"call_timeout"`

	// MaxSessions 客户端缓存的会话数
	MaxSessions int `json:"max_sessions" yaml:"max_sessions"`

	// MaxConnections 服务端最大并发连接，0 表示不限制
	MaxConnections int `json:"max_connections" yaml:"max_connections"`

	// RateLimit 服务端每秒调用数，0 表示不限制
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`

	// RateBurst 限流突发量
	RateBurst int `json:"rate_burst" yaml:"rate_burst"`

	// KeepAliveInterval yamux 心跳间隔
	KeepAliveInterval Duration `json:"keep_alive_interval" yaml:"keep_alive_interval"`
}

// DefaultTransportConfig 默认传输配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		ListenAddr:        "127.0.0.1:0",
		DialTimeout:       Duration(5 * time.Second),
		CallTimeout:       Duration(30 * time.Second),
		MaxSessions:       64,
		MaxConnections:    256,
		RateBurst:         32,
		KeepAliveInterval: Duration(30 * time.Second),
	}
}

// Validate 验证传输配置
func (c TransportConfig) Validate() error {
	if c.DialTimeout <= 0 {
		return fmt.Errorf("%w: transport.dial_timeout must be positive", ErrInvalidConfig)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("%w: transport.call_timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxSessions < 1 {
		return fmt.Errorf("%w: transport.max_sessions must be positive", ErrInvalidConfig)
	}
	if c.MaxConnections < 0 || c.RateLimit < 0 || c.RateBurst < 0 {
		return fmt.Errorf("%w: transport limits must not be negative", ErrInvalidConfig)
	}
	if c.RateLimit > 0 && c.RateBurst == 0 {
		return fmt.Errorf("%w: transport.rate_burst required with rate_limit", ErrInvalidConfig)
	}
	if c.KeepAliveInterval <= 0 {
		return fmt.Errorf("%w: transport.keep_alive_interval must be positive", ErrInvalidConfig)
	}
	return nil
}
