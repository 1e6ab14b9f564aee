// Package app 提供 GPS 办公室网络的应用编排层
//
// app 包负责：
// - 按角色组装 fx 模块
// - 依赖注入协调
// - 生命周期管理
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-gpsoffice/config"
	"github.com/dep2p/go-gpsoffice/internal/customer"
	"github.com/dep2p/go-gpsoffice/internal/discovery/directory"
	"github.com/dep2p/go-gpsoffice/internal/headquarters"
	"github.com/dep2p/go-gpsoffice/internal/office"
	"github.com/dep2p/go-gpsoffice/internal/remote"
	"github.com/dep2p/go-gpsoffice/pkg/lib/log"
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

var logger = log.Logger("app")

// 引导错误
var (
	// ErrUnknownRole 未知角色
	ErrUnknownRole = errors.New("app: unknown role")

	// ErrMissingIdentity 办公室角色缺少身份
	ErrMissingIdentity = errors.New("app: office role requires an identity")
)

// Role 进程角色
type Role string

// 角色
const (
	RoleDirectory    Role = "directory"
	RoleOffice       Role = "office"
	RoleCustomer     Role = "customer"
	RoleHeadquarters Role = "headquarters"
)

// Runtime 已启动应用中各角色的句柄，不属于当前角色的字段为 nil
type Runtime struct {
	Endpoint     *remote.Endpoint
	Store        *directory.Store
	Office       *office.Office
	Customer     *customer.Customer
	Headquarters *headquarters.Headquarters
}

type runtimeParams struct {
	fx.In

	Endpoint     *remote.Endpoint
	Store        *directory.Store           `optional:"true"`
	Office       *office.Office             `optional:"true"`
	Customer     *customer.Customer         `optional:"true"`
	Headquarters *headquarters.Headquarters `optional:"true"`
}

// Bootstrap 应用引导程序
//
// Bootstrap 负责：
// - 校验配置
// - 按角色组装 fx 模块
// - 管理应用生命周期
type Bootstrap struct {
	role     Role
	config   *config.Config
	identity types.Identity
	options  BuildOptions
	extra    []fx.Option

	fxApp   *fx.App
	runtime *Runtime
}

// NewBootstrap 创建引导程序，cfg 为 nil 时使用默认配置
func NewBootstrap(role Role, cfg *config.Config, opts ...BootstrapOption) *Bootstrap {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	b := &Bootstrap{
		role:    role,
		config:  cfg,
		options: DefaultBuildOptions(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build 构建应用（不启动）
func (b *Bootstrap) Build() error {
	if err := b.config.Validate(); err != nil {
		return err
	}

	modules, err := b.setupModules()
	if err != nil {
		return fmt.Errorf("设置模块失败: %w", err)
	}

	b.fxApp = fx.New(
		fx.Options(modules...),
		b.fxLogger(),
		fx.Invoke(func(p runtimeParams) {
			b.runtime = &Runtime{
				Endpoint:     p.Endpoint,
				Store:        p.Store,
				Office:       p.Office,
				Customer:     p.Customer,
				Headquarters: p.Headquarters,
			}
		}),
	)
	return b.fxApp.Err()
}

// Start 构建并启动应用
func (b *Bootstrap) Start(ctx context.Context) (*Runtime, error) {
	if b.fxApp == nil {
		if err := b.Build(); err != nil {
			return nil, err
		}
	}

	startCtx, cancel := context.WithTimeout(ctx, b.options.StartTimeout)
	defer cancel()

	if err := b.fxApp.Start(startCtx); err != nil {
		return nil, fmt.Errorf("启动应用失败: %w", err)
	}
	logger.Info("应用已启动", "role", string(b.role), "endpoint", b.runtime.Endpoint.String())
	return b.runtime, nil
}

// Stop 停止应用
func (b *Bootstrap) Stop(ctx context.Context) error {
	if b.fxApp == nil {
		return nil
	}

	stopCtx, cancel := context.WithTimeout(ctx, b.options.StopTimeout)
	defer cancel()

	return b.fxApp.Stop(stopCtx)
}

// setupModules 组装角色所需的 fx 模块
func (b *Bootstrap) setupModules() ([]fx.Option, error) {
	modules := []fx.Option{
		// 配置（Tier 0）
		fx.Supply(b.config),

		// 传输（Tier 1）
		TransportModules(),
	}

	switch b.role {
	case RoleDirectory:
		modules = append(modules, DirectoryModules())
	case RoleOffice:
		if b.identity.Name == "" {
			return nil, ErrMissingIdentity
		}
		modules = append(modules, DirectoryClientModules(), OfficeModules(b.identity))
	case RoleCustomer:
		modules = append(modules, DirectoryClientModules(), CustomerModules())
	case RoleHeadquarters:
		modules = append(modules, DirectoryClientModules(), HeadquartersModules())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, b.role)
	}

	return append(modules, b.extra...), nil
}

// fxLogger debug 级别时把 fx 事件输出到 zap，否则静默
func (b *Bootstrap) fxLogger() fx.Option {
	if !strings.EqualFold(b.config.Log.Level, "debug") {
		return fx.NopLogger
	}
	return fx.WithLogger(func() fxevent.Logger {
		l, err := zap.NewDevelopment()
		if err != nil {
			return fxevent.NopLogger
		}
		return &fxevent.ZapLogger{Logger: l.Named("fx")}
	})
}
