package directory

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-gpsoffice/config"
	"github.com/dep2p/go-gpsoffice/pkg/interfaces"
)

// Module 目录服务模块
var Module = fx.Module("discovery_directory",
	fx.Provide(NewFromParams),
	fx.Invoke(registerLifecycle),
)

// Params 目录依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Clock      clock.Clock    `optional:"true"`
}

// Result 目录导出结果
type Result struct {
	fx.Out

	Store     *Store
	Directory interfaces.Directory
}

// ConfigFromUnified 从统一配置创建 Store 配置
func ConfigFromUnified(cfg *config.Config) StoreConfig {
	sc := DefaultStoreConfig()
	if cfg == nil {
		return sc
	}
	if d := cfg.Directory.CleanupInterval.Duration(); d > 0 {
		sc.CleanupInterval = d
	}
	if cfg.Directory.SubscriberBuffer > 0 {
		sc.SubscriberBuffer = cfg.Directory.SubscriberBuffer
	}
	return sc
}

// NewFromParams 从 Fx 参数创建 Store
func NewFromParams(p Params) Result {
	sc := ConfigFromUnified(p.UnifiedCfg)
	if p.Clock != nil {
		sc.Clock = p.Clock
	}
	store := NewStore(sc)
	return Result{Store: store, Directory: store}
}

func registerLifecycle(lc fx.Lifecycle, store *Store) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			store.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			return store.Close()
		},
	})
}
