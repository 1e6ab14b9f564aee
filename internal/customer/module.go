package customer

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-gpsoffice/internal/remote"
	"github.com/dep2p/go-gpsoffice/pkg/interfaces"
)

// Module 客户模块
//
// 监听者登记在 remote.ListenerRegistry 上，Send 必须在应用启动之后调用。
var Module = fx.Module("customer",
	fx.Provide(NewFromParams),
)

// Params 客户依赖参数
type Params struct {
	fx.In

	Directory interfaces.Directory
	Dialer    interfaces.Dialer
	Listeners *remote.ListenerRegistry
}

// NewFromParams 从 Fx 参数创建客户
func NewFromParams(p Params) *Customer {
	return New(p.Directory, p.Dialer, p.Listeners, DefaultConfig())
}
