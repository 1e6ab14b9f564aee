package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-gpsoffice/pkg/types"
)

// BootstrapOption Bootstrap 配置选项
type BootstrapOption func(*Bootstrap)

// WithIdentity 设置办公室身份
func WithIdentity(id types.Identity) BootstrapOption {
	return func(b *Bootstrap) {
		b.identity = id
	}
}

// WithModules 追加 fx 选项，测试中用于替换依赖
func WithModules(opts ...fx.Option) BootstrapOption {
	return func(b *Bootstrap) {
		b.extra = append(b.extra, opts...)
	}
}

// WithBuildOptions 设置构建选项
func WithBuildOptions(o BuildOptions) BootstrapOption {
	return func(b *Bootstrap) {
		def := DefaultBuildOptions()
		if o.StartTimeout <= 0 {
			o.StartTimeout = def.StartTimeout
		}
		if o.StopTimeout <= 0 {
			o.StopTimeout = def.StopTimeout
		}
		b.options = o
	}
}

// BuildOptions 构建选项
type BuildOptions struct {
	// StartTimeout 启动超时
	StartTimeout time.Duration

	// StopTimeout 停止超时
	StopTimeout time.Duration
}

// DefaultBuildOptions 默认构建选项
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		StartTimeout: 30 * time.Second,
		StopTimeout:  30 * time.Second,
	}
}
