package office

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-gpsoffice/config"
	"github.com/dep2p/go-gpsoffice/internal/core/eventhub"
	"github.com/dep2p/go-gpsoffice/internal/core/neighbor"
)

// Config 办公室配置
type Config struct {
	// MaxNeighbors 邻居表容量 K
	MaxNeighbors int

	// Policy 表满时的替换策略
	Policy neighbor.Policy

	// ProcessingDelay 每个包裹的处理延迟
	ProcessingDelay time.Duration

	// ForwardTimeout 调用下一跳的超时
	ForwardTimeout time.Duration

	// NotifyTimeout 单次事件投递超时
	NotifyTimeout time.Duration

	// ListenerMaxFailures 办公室监听者连续失败次数上限，0 表示不撤销
	ListenerMaxFailures int

	// ListenerLease 办公室监听者租期，0 表示不过期
	ListenerLease time.Duration

	// ResyncInterval 周期性全量重同步间隔，0 表示关闭
	ResyncInterval time.Duration

	// RecordTTL 目录记录租期，大于 0 时后台续期
	RecordTTL time.Duration

	// Clock 时钟
	Clock clock.Clock
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		MaxNeighbors:        config.DefaultMaxNeighbors,
		Policy:              neighbor.FirstFit,
		ProcessingDelay:     config.DefaultProcessingDelay,
		ForwardTimeout:      30 * time.Second,
		NotifyTimeout:       eventhub.DefaultNotifyTimeout,
		ListenerMaxFailures: 3,
		ResyncInterval:      time.Minute,
		Clock:               clock.New(),
	}
}

// ConfigFromUnified 从统一配置创建办公室配置
//
// 统一配置已通过 Validate，策略名称不会解析失败。
func ConfigFromUnified(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	o := cfg.Office
	if o.MaxNeighbors > 0 {
		c.MaxNeighbors = o.MaxNeighbors
	}
	if p, err := neighbor.ParsePolicy(o.EvictionPolicy); err == nil {
		c.Policy = p
	}
	c.ProcessingDelay = o.ProcessingDelay.Duration()
	c.ResyncInterval = o.ResyncInterval.Duration()
	if d := o.NotifyTimeout.Duration(); d > 0 {
		c.NotifyTimeout = d
	}
	c.ListenerMaxFailures = o.ListenerMaxFailures
	c.ListenerLease = o.ListenerLease.Duration()
	if d := cfg.Transport.CallTimeout.Duration(); d > 0 {
		c.ForwardTimeout = d
	}
	c.RecordTTL = cfg.Directory.RecordTTL.Duration()
	return c
}
