package rpc

import (
	"io"
	"time"

	"github.com/hashicorp/yamux"
	"golang.org/x/time/rate"
)

// DefaultYamuxConfig 返回默认的 yamux 配置
func DefaultYamuxConfig() *yamux.Config {
	cfg := yamux.DefaultConfig()
	cfg.AcceptBacklog = 256
	cfg.EnableKeepAlive = true
	cfg.KeepAliveInterval = 30 * time.Second
	cfg.ConnectionWriteTimeout = 10 * time.Second
	cfg.StreamCloseTimeout = time.Minute
	cfg.LogOutput = io.Discard // 禁用 yamux 自带日志
	return cfg
}

// ServerConfig 服务端配置
type ServerConfig struct {
	// MaxConnections 最大并发连接，0 表示不限制
	MaxConnections int

	// RateLimit 每秒调用数，0 表示不限制
	RateLimit rate.Limit

	// RateBurst 限流突发量
	RateBurst int

	// MaxFrameSize 单帧上限
	MaxFrameSize int

	// KeepAliveInterval yamux 心跳间隔
	KeepAliveInterval time.Duration
}

// DefaultServerConfig 默认服务端配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		MaxConnections:    256,
		MaxFrameSize:      DefaultMaxFrameSize,
		KeepAliveInterval: 30 * time.Second,
	}
}

// ClientConfig 客户端配置
type ClientConfig struct {
	// DialTimeout 拨号超时
	DialTimeout time.Duration

	// CallTimeout 未设置 ctx 截止时间时的单次调用超时
	CallTimeout time.Duration

	// MaxSessions 缓存的会话数
	MaxSessions int

	// MaxFrameSize 单帧上限
	MaxFrameSize int

	// KeepAliveInterval yamux 心跳间隔
	KeepAliveInterval time.Duration
}

// DefaultClientConfig 默认客户端配置
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		DialTimeout:       5 * time.Second,
		CallTimeout:       30 * time.Second,
		MaxSessions:       64,
		MaxFrameSize:      DefaultMaxFrameSize,
		KeepAliveInterval: 30 * time.Second,
	}
}

func yamuxConfig(keepAlive time.Duration) *yamux.Config {
	cfg := DefaultYamuxConfig()
	if keepAlive > 0 {
		cfg.KeepAliveInterval = keepAlive
	}
	return cfg
}
