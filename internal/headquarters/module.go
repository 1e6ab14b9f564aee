package headquarters

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-gpsoffice/config"
	"github.com/dep2p/go-gpsoffice/internal/remote"
	"github.com/dep2p/go-gpsoffice/pkg/interfaces"
)

// Module 总部模块
//
// 依赖 interfaces.Directory、interfaces.Dialer 与 remote.ListenerRegistry；
// 配置了 ws_addr 时提供 websocket 事件流，配置了 mqtt_broker 时发布到 MQTT。
var Module = fx.Module("headquarters",
	fx.Provide(NewFromParams),
	fx.Invoke(registerLifecycle),
)

// Params 总部依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Directory  interfaces.Directory
	Dialer     interfaces.Dialer
}

// Result 总部导出结果
type Result struct {
	fx.Out

	Headquarters *Headquarters
	FeedServer   *FeedServer // 未配置 ws_addr 时为 nil
}

// NewFromParams 从 Fx 参数创建总部及其输出
func NewFromParams(p Params) (Result, error) {
	hq := config.DefaultHeadquartersConfig()
	if p.UnifiedCfg != nil {
		hq = p.UnifiedCfg.Headquarters
	}

	var (
		sinks []Sink
		fs    *FeedServer
	)
	if hq.WSAddr != "" {
		feed := NewFeed()
		fs = NewFeedServer(hq.WSAddr, feed)
		sinks = append(sinks, feed)
	}
	if hq.MQTTBroker != "" {
		ms, err := NewMQTTSink(MQTTConfig{
			Broker:   hq.MQTTBroker,
			Topic:    hq.MQTTTopic,
			ClientID: hq.MQTTClientID,
			QoS:      hq.MQTTQoS,
		})
		if err != nil {
			return Result{}, err
		}
		sinks = append(sinks, ms)
	}

	return Result{
		Headquarters: New(p.Directory, p.Dialer, DefaultConfig(), sinks...),
		FeedServer:   fs,
	}, nil
}

type lifecycleParams struct {
	fx.In

	LC           fx.Lifecycle
	Headquarters *Headquarters
	Listeners    *remote.ListenerRegistry
	FeedServer   *FeedServer `optional:"true"`
}

func registerLifecycle(p lifecycleParams) {
	p.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if p.FeedServer != nil {
				if err := p.FeedServer.Start(); err != nil {
					return err
				}
			}
			// 服务端已监听，句柄中的端点才有效
			self := p.Listeners.Register(p.Headquarters)
			return p.Headquarters.Start(ctx, self)
		},
		OnStop: func(ctx context.Context) error {
			err := p.Headquarters.Stop()
			if p.FeedServer != nil {
				err = multierr.Append(err, p.FeedServer.Stop(ctx))
			}
			return err
		},
	})
}
