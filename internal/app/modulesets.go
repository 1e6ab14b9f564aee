// Package app 提供模块集合清单
//
// modulesets.go 集中维护"哪个角色装配哪些模块"，是 Bootstrap 组装的唯一模块来源。
package app

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-gpsoffice/config"
	"github.com/dep2p/go-gpsoffice/internal/core/metrics"
	"github.com/dep2p/go-gpsoffice/internal/core/rpc"
	"github.com/dep2p/go-gpsoffice/internal/customer"
	"github.com/dep2p/go-gpsoffice/internal/discovery/directory"
	"github.com/dep2p/go-gpsoffice/internal/headquarters"
	"github.com/dep2p/go-gpsoffice/internal/office"
	"github.com/dep2p/go-gpsoffice/internal/remote"
	"github.com/dep2p/go-gpsoffice/pkg/interfaces"
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

// TransportModules 传输层模块组合
//
// 每个角色都加载：RPC 客户端与服务端、Dialer、监听者注册表。
func TransportModules() fx.Option {
	return remote.Module
}

// DirectoryModules 目录服务角色
//
// 内存目录通过本进程的 RPC 服务端对外提供。
func DirectoryModules() fx.Option {
	return fx.Options(
		directory.Module,
		fx.Invoke(func(srv *rpc.Server, store *directory.Store) {
			remote.ServeDirectory(srv, store)
		}),
	)
}

// DirectoryClientModules 远程目录
//
// 按 directory.host/port 提供 interfaces.Directory 桩。
func DirectoryClientModules() fx.Option {
	return fx.Provide(func(d *remote.Dialer, cfg *config.Config) interfaces.Directory {
		return d.Directory(cfg.Directory.Addr())
	})
}

// OfficeModules 办公室角色
func OfficeModules(id types.Identity) fx.Option {
	return fx.Options(
		fx.Supply(id),
		metrics.Module,
		office.Module,
	)
}

// CustomerModules 客户角色
func CustomerModules() fx.Option {
	return customer.Module
}

// HeadquartersModules 总部角色
func HeadquartersModules() fx.Option {
	return headquarters.Module
}
