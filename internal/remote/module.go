package remote

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-gpsoffice/config"
	"github.com/dep2p/go-gpsoffice/internal/core/rpc"
	"github.com/dep2p/go-gpsoffice/pkg/interfaces"
)

// Module 远程传输模块
//
// 提供共享的 rpc.Client、rpc.Server、Dialer 与 ListenerRegistry；
// 服务端在 OnStart 时监听 transport.listen_addr。
var Module = fx.Module("remote",
	fx.Provide(NewFromParams),
	fx.Invoke(registerLifecycle),
)

// Params 传输依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Result 传输导出结果
type Result struct {
	fx.Out

	Client      *rpc.Client
	Server      *rpc.Server
	Dialer      *Dialer
	DialerIface interfaces.Dialer
	Listeners   *ListenerRegistry
	Endpoint    *Endpoint
}

// Endpoint 本进程对外公布的 RPC 地址，服务端监听后才可用
type Endpoint struct {
	server    *rpc.Server
	listen    string
	advertise string
}

// ListenAddr 返回配置的监听地址
func (e *Endpoint) ListenAddr() string {
	return e.listen
}

// String 返回对外地址
func (e *Endpoint) String() string {
	return AdvertiseAddr(e.server.Addr(), e.advertise)
}

// ServerConfigFromUnified 从统一配置创建服务端配置
func ServerConfigFromUnified(cfg *config.Config) rpc.ServerConfig {
	sc := rpc.DefaultServerConfig()
	if cfg == nil {
		return sc
	}
	t := cfg.Transport
	sc.MaxConnections = t.MaxConnections
	sc.RateLimit = rate.Limit(t.RateLimit)
	sc.RateBurst = t.RateBurst
	if d := t.KeepAliveInterval.Duration(); d > 0 {
		sc.KeepAliveInterval = d
	}
	return sc
}

// ClientConfigFromUnified 从统一配置创建客户端配置
func ClientConfigFromUnified(cfg *config.Config) rpc.ClientConfig {
	cc := rpc.DefaultClientConfig()
	if cfg == nil {
		return cc
	}
	t := cfg.Transport
	if d := t.DialTimeout.Duration(); d > 0 {
		cc.DialTimeout = d
	}
	if d := t.CallTimeout.Duration(); d > 0 {
		cc.CallTimeout = d
	}
	if t.MaxSessions > 0 {
		cc.MaxSessions = t.MaxSessions
	}
	if d := t.KeepAliveInterval.Duration(); d > 0 {
		cc.KeepAliveInterval = d
	}
	return cc
}

// NewFromParams 从 Fx 参数创建传输组件
func NewFromParams(p Params) Result {
	listen := config.DefaultTransportConfig().ListenAddr
	advertise := ""
	if p.UnifiedCfg != nil {
		if p.UnifiedCfg.Transport.ListenAddr != "" {
			listen = p.UnifiedCfg.Transport.ListenAddr
		}
		advertise = p.UnifiedCfg.Transport.AdvertiseAddr
	}

	client := rpc.NewClient(ClientConfigFromUnified(p.UnifiedCfg))
	server := rpc.NewServer(ServerConfigFromUnified(p.UnifiedCfg))
	endpoint := &Endpoint{server: server, listen: listen, advertise: advertise}
	dialer := NewDialer(client)

	return Result{
		Client:      client,
		Server:      server,
		Dialer:      dialer,
		DialerIface: dialer,
		Listeners:   NewListenerRegistry(server, endpoint.String),
		Endpoint:    endpoint,
	}
}

func registerLifecycle(lc fx.Lifecycle, server *rpc.Server, client *rpc.Client, endpoint *Endpoint) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return server.Listen(endpoint.listen)
		},
		OnStop: func(context.Context) error {
			return multierr.Append(server.Close(), client.Close())
		},
	})
}
