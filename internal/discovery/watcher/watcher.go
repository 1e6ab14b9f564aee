package watcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-gpsoffice/internal/core/metrics"
	"github.com/dep2p/go-gpsoffice/internal/core/neighbor"
	"github.com/dep2p/go-gpsoffice/pkg/interfaces"
	"github.com/dep2p/go-gpsoffice/pkg/lib/log"
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

var logger = log.Logger("discovery/watcher")

// 预定义错误
var (
	// ErrAlreadyStarted 已启动
	ErrAlreadyStarted = errors.New("watcher: already started")

	// ErrSelf 候选者是自己
	ErrSelf = errors.New("watcher: candidate is self")
)

// ============================================================================
//                              配置
// ============================================================================

// Config 监视器配置
type Config struct {
	// Type 关注的记录类型
	Type string

	// ResyncInterval 周期性全量重同步间隔，0 表示关闭
	ResyncInterval time.Duration

	// ResolveTimeout 单个候选者解析（查找 + 拨号 + 读坐标）超时
	ResolveTimeout time.Duration

	// Parallelism 全量重同步时并行解析的候选者数
	Parallelism int

	// Clock 时钟
	Clock clock.Clock
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Type:           types.OfficeType,
		ResyncInterval: time.Minute,
		ResolveTimeout: 10 * time.Second,
		Parallelism:    8,
		Clock:          clock.New(),
	}
}

// ============================================================================
//                              Watcher
// ============================================================================

// Watcher 目录监视器
type Watcher struct {
	config   Config
	self     string
	dir      interfaces.Directory
	dialer   interfaces.Dialer
	table    *neighbor.Table
	reporter metrics.Reporter

	// 全量重同步互斥
	resyncMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	started     bool
	stopped     bool
	unsubscribe func()
}

// 确保 Watcher 实现 DirectoryListener 接口
var (
	_ interfaces.DirectoryListener     = (*Watcher)(nil)
	_ interfaces.DirectoryResubscriber = (*Watcher)(nil)
)

// New 创建监视器
func New(table *neighbor.Table, dir interfaces.Directory, dialer interfaces.Dialer, reporter metrics.Reporter, config Config) *Watcher {
	def := DefaultConfig()
	if config.Type == "" {
		config.Type = def.Type
	}
	if config.ResolveTimeout <= 0 {
		config.ResolveTimeout = def.ResolveTimeout
	}
	if config.Parallelism < 1 {
		config.Parallelism = def.Parallelism
	}
	if config.Clock == nil {
		config.Clock = def.Clock
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		config:   config,
		self:     table.Self().Name,
		dir:      dir,
		dialer:   dialer,
		table:    table,
		reporter: metrics.OrNop(reporter),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start 订阅目录通知并启动周期性重同步
//
// 不执行初始重同步；调用方在绑定自身名字后调用 Resync。
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started || w.stopped {
		return ErrAlreadyStarted
	}

	filter := types.Filter{Type: w.config.Type, Bound: true, Unbound: true}
	unsubscribe, err := w.dir.Subscribe(ctx, w, filter)
	if err != nil {
		return err
	}
	w.unsubscribe = unsubscribe
	w.started = true

	if w.config.ResyncInterval > 0 {
		w.wg.Add(1)
		go w.resyncLoop()
	}

	logger.Info("目录监视器已启动", "self", w.self, "type", w.config.Type)
	return nil
}

// Stop 取消订阅并等待所有处理 goroutine 退出
func (w *Watcher) Stop() {
	w.mu.Lock()
	unsubscribe := w.unsubscribe
	w.unsubscribe = nil
	w.stopped = true
	w.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	w.cancel()
	w.wg.Wait()
}

// OnDirectoryEvent 实现 interfaces.DirectoryListener
func (w *Watcher) OnDirectoryEvent(ev types.DirectoryEvent) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		w.handle(w.ctx, ev)
	}()
}

func (w *Watcher) handle(ctx context.Context, ev types.DirectoryEvent) {
	if ev.Name == w.self {
		return
	}

	if ev.Bound {
		c, err := w.resolve(ctx, ev.Name)
		if err != nil {
			logger.Debug("跳过新绑定的办公室", "name", ev.Name, "error", err)
			return
		}
		// 与全量重同步串行，避免插入被旧快照覆盖
		w.resyncMu.Lock()
		if w.table.InsertCandidate(c) {
			logger.Info("邻居表接纳新办公室", "name", c.Name, "coordinate", c.Coordinate.String())
		}
		w.reporter.SetNeighbors(w.table.Len())
		w.resyncMu.Unlock()
		return
	}

	if w.table.RemoveByName(ev.Name) {
		logger.Info("邻居已解绑", "name", ev.Name)
	}
	if err := w.Resync(ctx); err != nil {
		logger.Warn("解绑后重同步失败", "name", ev.Name, "error", err)
	}
}

// OnResubscribed 实现 interfaces.DirectoryResubscriber：补做一次全量重同步
func (w *Watcher) OnResubscribed() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		if err := w.Resync(w.ctx); err != nil {
			logger.Warn("订阅恢复后重同步失败", "error", err)
		}
	}()
}

// ============================================================================
//                              解析与重同步
// ============================================================================

// resolve 把目录中的名字解析为候选邻居
func (w *Watcher) resolve(ctx context.Context, name string) (neighbor.Candidate, error) {
	if name == w.self {
		return neighbor.Candidate{}, ErrSelf
	}

	ctx, cancel := context.WithTimeout(ctx, w.config.ResolveTimeout)
	defer cancel()

	rec, err := w.dir.Lookup(ctx, name)
	if err != nil {
		return neighbor.Candidate{}, err
	}
	handle, err := w.dialer.DialOffice(rec.Endpoint)
	if err != nil {
		return neighbor.Candidate{}, err
	}
	coord, err := handle.Coordinate(ctx)
	if err != nil {
		return neighbor.Candidate{}, err
	}
	return neighbor.Candidate{Name: name, Coordinate: coord, Handle: handle}, nil
}

// Resync 从目录当前枚举重建邻居表
//
// 列举失败时返回错误且邻居表保持不变；单个候选者解析失败只被跳过。
func (w *Watcher) Resync(ctx context.Context) error {
	w.resyncMu.Lock()
	defer w.resyncMu.Unlock()

	names, err := w.dir.List(ctx, w.config.Type)
	if err != nil {
		return err
	}

	resolved := make([]*neighbor.Candidate, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.Parallelism)
	for i, name := range names {
		if name == w.self {
			continue
		}
		i, name := i, name
		g.Go(func() error {
			c, err := w.resolve(gctx, name)
			if err != nil {
				logger.Debug("重同步时跳过办公室", "name", name, "error", err)
				return nil
			}
			resolved[i] = &c
			return nil
		})
	}
	_ = g.Wait()

	candidates := make([]neighbor.Candidate, 0, len(names))
	for _, c := range resolved {
		if c != nil {
			candidates = append(candidates, *c)
		}
	}
	w.table.FullResync(candidates)
	w.reporter.SetNeighbors(w.table.Len())

	logger.Debug("邻居表已重同步", "self", w.self, "candidates", len(candidates), "neighbors", w.table.Names())
	return nil
}

func (w *Watcher) resyncLoop() {
	defer w.wg.Done()

	ticker := w.config.Clock.Ticker(w.config.ResyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.Resync(w.ctx); err != nil && w.ctx.Err() == nil {
				logger.Warn("周期性重同步失败", "error", err)
			}
		case <-w.ctx.Done():
			return
		}
	}
}
