package office

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-gpsoffice/config"
	"github.com/dep2p/go-gpsoffice/internal/core/metrics"
	"github.com/dep2p/go-gpsoffice/internal/core/rpc"
	"github.com/dep2p/go-gpsoffice/internal/remote"
	"github.com/dep2p/go-gpsoffice/pkg/interfaces"
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

// Module 办公室模块
//
// 依赖 types.Identity、interfaces.Directory、interfaces.Dialer；存在 rpc.Server 时
// 把办公室注册为远程可调用，存在 metrics.Collector 且配置了 metrics_addr 时提供 /metrics。
var Module = fx.Module("office",
	fx.Provide(NewFromParams),
	fx.Invoke(registerLifecycle),
)

// Params 办公室依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Identity   types.Identity
	Directory  interfaces.Directory
	Dialer     interfaces.Dialer
	Reporter   metrics.Reporter `optional:"true"`
	Clock      clock.Clock      `optional:"true"`
}

// NewFromParams 从 Fx 参数创建办公室
func NewFromParams(p Params) (*Office, error) {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	if p.Clock != nil {
		cfg.Clock = p.Clock
	}
	return New(p.Identity, p.Directory, p.Dialer, p.Reporter, cfg)
}

type lifecycleParams struct {
	fx.In

	LC         fx.Lifecycle
	Office     *Office
	UnifiedCfg *config.Config     `optional:"true"`
	Server     *rpc.Server        `optional:"true"`
	Endpoint   *remote.Endpoint   `optional:"true"`
	Collector  *metrics.Collector `optional:"true"`
}

func registerLifecycle(p lifecycleParams) {
	if p.Server != nil {
		remote.ServeOffice(p.Server, p.Office)
	}

	var ms *MetricsServer
	if p.Collector != nil && p.UnifiedCfg != nil && p.UnifiedCfg.Office.MetricsAddr != "" {
		ms = NewMetricsServer(p.UnifiedCfg.Office.MetricsAddr, p.Collector)
	}

	p.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if ms != nil {
				if err := ms.Start(); err != nil {
					return err
				}
			}
			endpoint := ""
			if p.Endpoint != nil {
				endpoint = p.Endpoint.String()
			}
			return p.Office.Start(ctx, endpoint)
		},
		OnStop: func(ctx context.Context) error {
			err := p.Office.Stop(ctx)
			if ms != nil {
				err = multierr.Append(err, ms.Stop(ctx))
			}
			return err
		},
	})
}
