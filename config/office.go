package config

import (
	"fmt"
	"strings"
	"time"
)

// 办公室默认值
const (
	// DefaultMaxNeighbors 邻居表容量 K
	DefaultMaxNeighbors = 3

	// DefaultProcessingDelay 每个包裹在办公室的处理延迟
	DefaultProcessingDelay = 3 * time.Second
)

// OfficeConfig 办公室配置
type OfficeConfig struct {
	// MaxNeighbors 邻居表容量
	MaxNeighbors int `json:"max_neighbors" yaml:"max_neighbors"`

	// EvictionPolicy first-fit | best-fit
	EvictionPolicy string `json:"eviction_policy" yaml:"eviction_policy"`

	// ProcessingDelay 处理延迟
	ProcessingDelay Duration `json:"processing_delay" yaml:"processing_delay"`

	// ResyncInterval 周期性全量重同步间隔，0 表示关闭
	ResyncInterval Duration `json:"resync_interval" yaml:"resync_interval"`

	// NotifyTimeout 单次事件投递超时
	NotifyTimeout Duration `json:"notify_timeout" yaml:"notify_timeout"`

	// ListenerMaxFailures 办公室监听者连续失败多少次后撤销，0 表示不撤销
	ListenerMaxFailures int `json:"listener_max_failures" yaml:"listener_max_failures"`

	// ListenerLease 办公室监听者租期，0 表示不过期
	ListenerLease Duration `json:"listener_lease" yaml:"listener_lease"`

	// MetricsAddr prometheus 监听地址，空表示关闭
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr"`
}

// DefaultOfficeConfig 默认办公室配置
func DefaultOfficeConfig() OfficeConfig {
	return OfficeConfig{
		MaxNeighbors:        DefaultMaxNeighbors,
		EvictionPolicy:      "first-fit",
		ProcessingDelay:     Duration(DefaultProcessingDelay),
		ResyncInterval:      Duration(time.Minute),
		NotifyTimeout:       Duration(5 * time.Second),
		ListenerMaxFailures: 3,
	}
}

// Validate 验证办公室配置
func (c OfficeConfig) Validate() error {
	if c.MaxNeighbors < 1 {
		return fmt.Errorf("%w: office.max_neighbors must be at least 1", ErrInvalidConfig)
	}
	switch strings.ToLower(c.EvictionPolicy) {
	case "", "first-fit", "best-fit":
	default:
		return fmt.Errorf("%w: office.eviction_policy %q", ErrInvalidConfig, c.EvictionPolicy)
	}
	if c.ProcessingDelay < 0 || c.ResyncInterval < 0 || c.NotifyTimeout < 0 || c.ListenerLease < 0 {
		return fmt.Errorf("%w: office durations must not be negative", ErrInvalidConfig)
	}
	if c.ListenerMaxFailures < 0 {
		return fmt.Errorf("%w: office.listener_max_failures must not be negative", ErrInvalidConfig)
	}
	return nil
}
