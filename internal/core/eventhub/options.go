package eventhub

import (
	"time"

	"github.com/benbjohnson/clock"
)

// 默认值
const (
	// DefaultNotifyTimeout 单次投递超时
	DefaultNotifyTimeout = 5 * time.Second
)

// Config Hub 配置
type Config struct {
	// NotifyTimeout 单个监听者单次投递的超时
	NotifyTimeout time.Duration

	// MaxFailures 连续失败多少次后撤销租约，0 表示永不撤销
	MaxFailures int

	// Clock 时钟，测试中可替换为 mock
	Clock clock.Clock
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		NotifyTimeout: DefaultNotifyTimeout,
		MaxFailures:   0,
		Clock:         clock.New(),
	}
}

// Option 配置选项
type Option func(*Config)

// WithNotifyTimeout 设置投递超时
func WithNotifyTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.NotifyTimeout = d
	}
}

// WithMaxFailures 设置撤销阈值
func WithMaxFailures(n int) Option {
	return func(c *Config) {
		c.MaxFailures = n
	}
}

// WithClock 设置时钟
func WithClock(clk clock.Clock) Option {
	return func(c *Config) {
		c.Clock = clk
	}
}
