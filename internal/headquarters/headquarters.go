package headquarters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/dep2p/go-gpsoffice/pkg/interfaces"
	"github.com/dep2p/go-gpsoffice/pkg/lib/log"
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

var logger = log.Logger("headquarters")

// ErrAlreadyStarted 重复启动
var ErrAlreadyStarted = errors.New("headquarters: already started")

// Sink 事件输出
type Sink interface {
	Publish(ctx context.Context, ev types.Event) error
	Close() error
}

// Config 总部配置
type Config struct {
	// Type 关注的办公室类型
	Type string

	// Out 消息文本输出，默认 os.Stdout
	Out io.Writer

	// AttachTimeout 单次向办公室注册监听者的超时
	AttachTimeout time.Duration
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Type:          types.OfficeType,
		Out:           os.Stdout,
		AttachTimeout: 10 * time.Second,
	}
}

// Headquarters 总部
type Headquarters struct {
	config Config
	dir    interfaces.Directory
	dialer interfaces.Dialer
	sinks  []Sink

	outMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	self        types.ListenerRef
	started     bool
	stopped     bool
	attached    map[string]*attachment
	unsubscribe func()
}

// attachment 是一次注册；租约为空表示注册尚在进行
type attachment struct {
	lease types.Lease
}

var (
	_ interfaces.Listener              = (*Headquarters)(nil)
	_ interfaces.DirectoryListener     = (*Headquarters)(nil)
	_ interfaces.DirectoryResubscriber = (*Headquarters)(nil)
)

// New 创建总部
func New(dir interfaces.Directory, dialer interfaces.Dialer, config Config, sinks ...Sink) *Headquarters {
	def := DefaultConfig()
	if config.Type == "" {
		config.Type = def.Type
	}
	if config.Out == nil {
		config.Out = def.Out
	}
	if config.AttachTimeout <= 0 {
		config.AttachTimeout = def.AttachTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Headquarters{
		config:   config,
		dir:      dir,
		dialer:   dialer,
		sinks:    sinks,
		ctx:      ctx,
		cancel:   cancel,
		attached: make(map[string]*attachment),
	}
}

// Start 订阅目录并注册到所有已存在的办公室
//
// self 是本总部作为监听者的句柄，由调用方注册后传入。
func (h *Headquarters) Start(ctx context.Context, self types.ListenerRef) error {
	h.mu.Lock()
	if h.started || h.stopped {
		h.mu.Unlock()
		return ErrAlreadyStarted
	}
	h.started = true
	h.self = self
	h.mu.Unlock()

	// 先订阅再枚举，不会错过并发加入的办公室
	unsubscribe, err := h.dir.Subscribe(ctx, h, types.Filter{Type: h.config.Type, Bound: true, Unbound: true})
	if err != nil {
		return fmt.Errorf("headquarters: subscribe directory: %w", err)
	}
	h.mu.Lock()
	h.unsubscribe = unsubscribe
	h.mu.Unlock()

	names, err := h.dir.List(ctx, h.config.Type)
	if err != nil {
		return fmt.Errorf("headquarters: list offices: %w", err)
	}
	for _, name := range names {
		h.attach(ctx, name)
	}

	logger.Info("总部已启动", "offices", len(names), "listener", self.String())
	return nil
}

// Stop 取消订阅、等待后台注册结束并关闭所有输出
func (h *Headquarters) Stop() error {
	h.mu.Lock()
	unsubscribe := h.unsubscribe
	h.unsubscribe = nil
	h.stopped = true
	h.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	h.cancel()
	h.wg.Wait()

	var err error
	for _, s := range h.sinks {
		err = multierr.Append(err, s.Close())
	}
	return err
}

// OnDirectoryEvent 实现 interfaces.DirectoryListener
func (h *Headquarters) OnDirectoryEvent(ev types.DirectoryEvent) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	if !ev.Bound {
		// 同名办公室重启后需要重新注册
		delete(h.attached, ev.Name)
		h.mu.Unlock()
		return
	}
	h.wg.Add(1)
	h.mu.Unlock()

	go func() {
		defer h.wg.Done()
		h.attach(h.ctx, ev.Name)
	}()
}

// OnResubscribed 实现 interfaces.DirectoryResubscriber
//
// 重新枚举目录：移除已不存在的办公室，注册中断期间加入的办公室。
func (h *Headquarters) OnResubscribed() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.wg.Add(1)
	h.mu.Unlock()

	go func() {
		defer h.wg.Done()
		h.reconcile(h.ctx)
	}()
}

func (h *Headquarters) reconcile(ctx context.Context) {
	names, err := h.dir.List(ctx, h.config.Type)
	if err != nil {
		logger.Warn("订阅恢复后枚举办公室失败", "error", err)
		return
	}
	bound := make(map[string]struct{}, len(names))
	for _, name := range names {
		bound[name] = struct{}{}
	}

	h.mu.Lock()
	for name := range h.attached {
		if _, ok := bound[name]; !ok {
			delete(h.attached, name)
		}
	}
	h.mu.Unlock()

	for _, name := range names {
		h.attach(ctx, name)
	}
}

// attach 查找办公室并注册监听者，同名只注册一次
func (h *Headquarters) attach(ctx context.Context, name string) {
	h.mu.Lock()
	if _, ok := h.attached[name]; ok {
		h.mu.Unlock()
		return
	}
	// 占位，防止枚举与通知并发注册同一办公室
	a := &attachment{}
	h.attached[name] = a
	self := h.self
	h.mu.Unlock()

	lease, err := h.addListener(ctx, name, self)

	h.mu.Lock()
	defer h.mu.Unlock()
	// 注册期间办公室已解绑，占位已被移除或替换
	stale := h.attached[name] != a
	if err != nil {
		if !stale {
			delete(h.attached, name)
		}
		logger.Warn("注册到办公室失败", "office", name, "error", err)
		return
	}
	if stale {
		logger.Debug("办公室已解绑，丢弃注册结果", "office", name, "lease", lease.ID)
		return
	}
	a.lease = lease
	logger.Debug("已注册到办公室", "office", name, "lease", lease.ID)
}

func (h *Headquarters) addListener(ctx context.Context, name string, self types.ListenerRef) (types.Lease, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.AttachTimeout)
	defer cancel()

	rec, err := h.dir.Lookup(ctx, name)
	if err != nil {
		return types.Lease{}, err
	}
	office, err := h.dialer.DialOffice(rec.Endpoint)
	if err != nil {
		return types.Lease{}, err
	}
	return office.AddListener(ctx, self)
}

// Offices 返回已完成注册的办公室数量
func (h *Headquarters) Offices() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, a := range h.attached {
		if a.lease.ID != "" {
			n++
		}
	}
	return n
}

// Notify 实现 interfaces.Listener：打印消息并转发到各输出
//
// 输出失败只记录日志，不影响办公室。
func (h *Headquarters) Notify(ctx context.Context, ev types.Event) error {
	h.outMu.Lock()
	_, err := fmt.Fprintln(h.config.Out, ev.Message)
	h.outMu.Unlock()
	if err != nil {
		return err
	}

	for _, s := range h.sinks {
		if serr := s.Publish(ctx, ev); serr != nil {
			logger.Warn("事件输出失败", "tracking_id", ev.TrackingID, "error", serr)
		}
	}
	return nil
}
