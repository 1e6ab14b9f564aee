package directory

import (
	"errors"
	"time"

	"github.com/benbjohnson/clock"
)

// StoreConfig Store 配置
type StoreConfig struct {
	// CleanupInterval 过期记录清理间隔
	CleanupInterval time.Duration

	// SubscriberBuffer 每个订阅者的事件缓冲
	SubscriberBuffer int

	// Clock 时钟
	Clock clock.Clock
}

// DefaultStoreConfig 默认配置
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		CleanupInterval:  10 * time.Second,
		SubscriberBuffer: 64,
		Clock:            clock.New(),
	}
}

// Validate 验证配置
func (c *StoreConfig) Validate() error {
	if c.CleanupInterval <= 0 {
		return errors.New("cleanup interval must be positive")
	}
	if c.SubscriberBuffer < 1 {
		return errors.New("subscriber buffer must be positive")
	}
	if c.Clock == nil {
		return errors.New("clock must not be nil")
	}
	return nil
}
