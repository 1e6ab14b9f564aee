package office

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"github.com/dep2p/go-gpsoffice/internal/core/eventhub"
	"github.com/dep2p/go-gpsoffice/internal/core/forward"
	"github.com/dep2p/go-gpsoffice/internal/core/metrics"
	"github.com/dep2p/go-gpsoffice/internal/core/neighbor"
	"github.com/dep2p/go-gpsoffice/internal/discovery/watcher"
	"github.com/dep2p/go-gpsoffice/pkg/interfaces"
	"github.com/dep2p/go-gpsoffice/pkg/lib/log"
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

var logger = log.Logger("office")

// 确保 Office 实现接口
var _ interfaces.Office = (*Office)(nil)

// Office 办公室节点
type Office struct {
	identity types.Identity
	config   Config
	dir      interfaces.Directory
	dialer   interfaces.Dialer
	reporter metrics.Reporter

	table   *neighbor.Table
	hub     *eventhub.Hub
	engine  *forward.Engine
	watcher *watcher.Watcher

	// ready 在首次全量重同步之后关闭
	ready chan struct{}

	mu       sync.Mutex
	started  bool
	bound    bool
	endpoint string

	renewCancel context.CancelFunc
	renewDone   chan struct{}
}

// New 创建办公室
//
// reporter 可为 nil。
func New(identity types.Identity, dir interfaces.Directory, dialer interfaces.Dialer, reporter metrics.Reporter, config Config) (*Office, error) {
	if identity.Name == "" {
		return nil, ErrInvalidIdentity
	}
	if dir == nil || dialer == nil {
		return nil, ErrMissingDependency
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	if config.MaxNeighbors < 1 {
		config.MaxNeighbors = DefaultConfig().MaxNeighbors
	}
	reporter = metrics.OrNop(reporter)

	table := neighbor.New(identity, config.MaxNeighbors, config.Policy)
	hub := eventhub.New("office:"+identity.Name,
		eventhub.WithNotifyTimeout(config.NotifyTimeout),
		eventhub.WithMaxFailures(config.ListenerMaxFailures),
		eventhub.WithClock(config.Clock))

	engine := forward.New(identity.Name, table, hub, dialer, reporter, forward.Config{
		ProcessingDelay: config.ProcessingDelay,
		ForwardTimeout:  config.ForwardTimeout,
		NotifyTimeout:   config.NotifyTimeout,
		Clock:           config.Clock,
	})

	w := watcher.New(table, dir, dialer, reporter, watcher.Config{
		Type:           types.OfficeType,
		ResyncInterval: config.ResyncInterval,
		Clock:          config.Clock,
	})

	return &Office{
		identity: identity,
		config:   config,
		dir:      dir,
		dialer:   dialer,
		reporter: reporter,
		table:    table,
		hub:      hub,
		engine:   engine,
		watcher:  w,
		ready:    make(chan struct{}),
	}, nil
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 订阅目录、绑定自身并完成初始重同步
//
// endpoint 为本办公室对外的 RPC 地址，写入目录记录。绑定失败（重名或目录不可达）
// 返回错误，调用方应终止进程。
func (o *Office) Start(ctx context.Context, endpoint string) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return ErrAlreadyStarted
	}
	o.started = true
	o.endpoint = endpoint
	o.mu.Unlock()

	if err := o.watcher.Start(ctx); err != nil {
		return fmt.Errorf("office: subscribe directory: %w", err)
	}

	record := types.Record{
		Name:     o.identity.Name,
		Type:     types.OfficeType,
		Endpoint: endpoint,
		TTL:      o.config.RecordTTL,
	}
	if err := o.dir.Bind(ctx, record); err != nil {
		o.watcher.Stop()
		return fmt.Errorf("office: bind %q: %w", o.identity.Name, err)
	}
	o.mu.Lock()
	o.bound = true
	o.mu.Unlock()

	// 初始重同步失败不致命，后续通知与周期重同步会自愈
	if err := o.watcher.Resync(ctx); err != nil {
		logger.Warn("初始重同步失败", "office", o.identity.Name, "error", err)
	}
	close(o.ready)

	if o.config.RecordTTL > 0 {
		o.startRenew()
	}

	logger.Info("办公室已启动",
		"office", o.identity.Name,
		"coordinate", o.identity.Coordinate.String(),
		"endpoint", endpoint,
		"neighbors", o.table.Names())
	return nil
}

// Stop 解绑名称并停止所有后台任务
func (o *Office) Stop(ctx context.Context) error {
	o.mu.Lock()
	bound := o.bound
	o.bound = false
	renewCancel, renewDone := o.renewCancel, o.renewDone
	o.renewCancel = nil
	o.mu.Unlock()

	if renewCancel != nil {
		renewCancel()
		<-renewDone
	}

	var err error
	if bound {
		if uerr := o.dir.Unbind(ctx, o.identity.Name); uerr != nil {
			err = multierr.Append(err, fmt.Errorf("office: unbind %q: %w", o.identity.Name, uerr))
		}
	}
	o.watcher.Stop()
	err = multierr.Append(err, o.engine.Close(ctx))

	logger.Info("办公室已停止", "office", o.identity.Name)
	return err
}

// startRenew 以租期三分之一的间隔续期目录记录
func (o *Office) startRenew() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	o.mu.Lock()
	o.renewCancel, o.renewDone = cancel, done
	o.mu.Unlock()

	interval := o.config.RecordTTL / 3
	ticker := o.config.Clock.Ticker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := o.dir.Renew(ctx, o.identity.Name); err != nil && ctx.Err() == nil {
					logger.Warn("续期目录记录失败", "office", o.identity.Name, "error", err)
				}
			}
		}
	}()
}

// ============================================================================
//                              interfaces.Office
// ============================================================================

// PacketForward 接收入站包裹
//
// 启动完成前到达的包裹等待初始重同步结束。
func (o *Office) PacketForward(ctx context.Context, p *types.Packet) error {
	select {
	case <-o.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	return o.engine.Forward(ctx, p)
}

// CreatePacket 为客户创建包裹并在本办公室开始转发
//
// 返回时本跳已报告 Arrived 与 Departed 或 Delivered。
func (o *Office) CreatePacket(ctx context.Context, dest types.Coordinate, customer types.ListenerRef) (types.TrackingID, error) {
	p := types.NewPacket(dest, customer, o.config.Clock.Now())
	o.reporter.PacketCreated()
	logger.Info("创建包裹",
		"tracking_id", p.TrackingID,
		"destination", dest.String(),
		"customer", customer.String())

	if err := o.PacketForward(ctx, p); err != nil {
		return "", err
	}
	return p.TrackingID, nil
}

// Coordinate 返回坐标
func (o *Office) Coordinate(context.Context) (types.Coordinate, error) {
	return o.identity.Coordinate, nil
}

// Name 返回名称
func (o *Office) Name(context.Context) (string, error) {
	return o.identity.Name, nil
}

// AddListener 在办公室级事件中心注册监听者
func (o *Office) AddListener(_ context.Context, ref types.ListenerRef) (types.Lease, error) {
	if ref.IsZero() {
		return types.Lease{}, ErrEmptyListener
	}
	l, err := o.dialer.DialListener(ref)
	if err != nil {
		return types.Lease{}, err
	}
	lease := o.hub.Subscribe(l, o.config.ListenerLease)
	logger.Info("注册办公室监听者", "office", o.identity.Name, "listener", ref.String(), "lease", lease.ID)
	return lease, nil
}

// ============================================================================
//                              查询
// ============================================================================

// Identity 返回身份
func (o *Office) Identity() types.Identity {
	return o.identity
}

// Endpoint 返回写入目录的地址
func (o *Office) Endpoint() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.endpoint
}

// Neighbors 返回当前邻居名称
func (o *Office) Neighbors() []string {
	return o.table.Names()
}

// ListenerCount 返回办公室级监听者数量
func (o *Office) ListenerCount() int {
	return o.hub.Len()
}

// Resync 立即执行一次全量重同步
func (o *Office) Resync(ctx context.Context) error {
	return o.watcher.Resync(ctx)
}
