package forward

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-gpsoffice/internal/core/eventhub"
	"github.com/dep2p/go-gpsoffice/internal/core/metrics"
	"github.com/dep2p/go-gpsoffice/internal/core/neighbor"
	"github.com/dep2p/go-gpsoffice/pkg/interfaces"
	"github.com/dep2p/go-gpsoffice/pkg/lib/log"
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

var logger = log.Logger("core/forward")

// 预定义错误
var (
	// ErrNilPacket 包裹为空
	ErrNilPacket = errors.New("forward: nil packet")

	// ErrClosed 引擎已关闭
	ErrClosed = errors.New("forward: engine closed")
)

// ============================================================================
//                              配置
// ============================================================================

// Config 引擎配置
type Config struct {
	// ProcessingDelay 每个包裹的处理延迟
	ProcessingDelay time.Duration

	// ForwardTimeout 调用下一跳的超时
	ForwardTimeout time.Duration

	// NotifyTimeout 单次向客户监听者投递的超时
	NotifyTimeout time.Duration

	// Clock 时钟
	Clock clock.Clock
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		ProcessingDelay: 3 * time.Second,
		ForwardTimeout:  30 * time.Second,
		NotifyTimeout:   eventhub.DefaultNotifyTimeout,
		Clock:           clock.New(),
	}
}

// ============================================================================
//                              Engine
// ============================================================================

// Engine 转发引擎
type Engine struct {
	name      string
	table     *neighbor.Table
	officeHub *eventhub.Hub
	dialer    interfaces.Dialer
	reporter  metrics.Reporter
	config    Config

	// 后台派发任务的生命周期
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New 创建转发引擎
//
// dialer 用于把包裹携带的 ListenerRef 解析为客户监听者；reporter 可为 nil。
func New(name string, table *neighbor.Table, officeHub *eventhub.Hub, dialer interfaces.Dialer, reporter metrics.Reporter, config Config) *Engine {
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	if config.ForwardTimeout <= 0 {
		config.ForwardTimeout = DefaultConfig().ForwardTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		name:      name,
		table:     table,
		officeHub: officeHub,
		dialer:    dialer,
		reporter:  metrics.OrNop(reporter),
		config:    config,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Forward 处理一次入站包裹
//
// 返回时本跳已经发出 Delivered 或 Departed；下一跳的结果只通过事件报告。
func (e *Engine) Forward(ctx context.Context, p *types.Packet) error {
	if p == nil {
		return ErrNilPacket
	}

	e.mu.RLock()
	closed := e.closed
	if !closed {
		e.wg.Add(1)
	}
	e.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	defer e.wg.Done()

	// 调用方超时不应截断事件投递
	ctx = context.WithoutCancel(ctx)
	sess := e.newSession(p)

	sess.emit(ctx, types.NewArrived(p.TrackingID, e.name, e.config.Clock.Now()))

	if e.config.ProcessingDelay > 0 {
		e.config.Clock.Sleep(e.config.ProcessingDelay)
	}

	next, ok := e.table.ClosestTo(p.Destination)
	if !ok {
		logger.Info("包裹已投递", "tracking_id", p.TrackingID, "destination", p.Destination.String())
		sess.emit(ctx, types.NewDelivered(p.TrackingID, e.name, p.Destination, e.config.Clock.Now()))
		return nil
	}

	sess.emit(ctx, types.NewDeparted(p.TrackingID, e.name, e.config.Clock.Now()))
	logger.Debug("派发到下一跳", "tracking_id", p.TrackingID, "next", next.Name)

	e.wg.Add(1)
	go e.dispatch(sess, p, next)
	return nil
}

// dispatch 在后台调用下一跳，失败时发出 Lost
func (e *Engine) dispatch(sess *session, p *types.Packet, next neighbor.Descriptor) {
	defer e.wg.Done()

	ctx, cancel := context.WithTimeout(e.ctx, e.config.ForwardTimeout)
	defer cancel()

	err := next.Handle.PacketForward(ctx, p)
	if err == nil {
		return
	}

	logger.Warn("转发到邻居失败，包裹丢失",
		"tracking_id", p.TrackingID,
		"neighbor", next.Name,
		"error", err)
	e.reporter.ForwardFailed()
	sess.emit(context.Background(), types.NewLost(p.TrackingID, next.Name, e.config.Clock.Now()))
}

// Close 停止接收新包裹，取消在途的下一跳调用并等待后台任务退出
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.cancel()
		return nil
	case <-ctx.Done():
		e.cancel()
		<-done
		return ctx.Err()
	}
}

// ============================================================================
//                              事件扇出会话
// ============================================================================

// session 单跳的事件扇出：客户 Hub + 办公室 Hub
type session struct {
	engine   *Engine
	customer *eventhub.Hub
}

func (e *Engine) newSession(p *types.Packet) *session {
	s := &session{engine: e}
	if p.Listener.IsZero() || e.dialer == nil {
		return s
	}

	l, err := e.dialer.DialListener(p.Listener)
	if err != nil {
		logger.Warn("无法解析客户监听者", "tracking_id", p.TrackingID, "listener", p.Listener.String(), "error", err)
		return s
	}
	s.customer = eventhub.New("packet:"+p.TrackingID.String(),
		eventhub.WithNotifyTimeout(e.config.NotifyTimeout),
		eventhub.WithClock(e.config.Clock))
	s.customer.Subscribe(l, 0)
	return s
}

func (s *session) emit(ctx context.Context, ev types.Event) {
	if s.customer != nil {
		s.customer.Publish(ctx, ev)
	}
	if s.engine.officeHub != nil {
		s.engine.officeHub.Publish(ctx, ev)
	}
	s.engine.reporter.EventEmitted(ev.Kind)
}
