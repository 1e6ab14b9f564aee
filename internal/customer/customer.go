package customer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-gpsoffice/pkg/interfaces"
	"github.com/dep2p/go-gpsoffice/pkg/lib/log"
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

var logger = log.Logger("customer")

// ErrNoOutcome 等待终态事件时上下文结束
var ErrNoOutcome = errors.New("customer: no delivery outcome")

// Registrar 登记本进程内的监听者
type Registrar interface {
	Register(l interfaces.Listener) types.ListenerRef
	Unregister(ref types.ListenerRef) bool
}

// Config 客户配置
type Config struct {
	// Out 事件文本输出，默认 os.Stdout
	Out io.Writer

	// Clock 本地生成 lost 事件的时间源
	Clock clock.Clock
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{Out: os.Stdout, Clock: clock.New()}
}

// Customer 客户
type Customer struct {
	config    Config
	dir       interfaces.Directory
	dialer    interfaces.Dialer
	registrar Registrar
}

// New 创建客户
func New(dir interfaces.Directory, dialer interfaces.Dialer, registrar Registrar, config Config) *Customer {
	def := DefaultConfig()
	if config.Out == nil {
		config.Out = def.Out
	}
	if config.Clock == nil {
		config.Clock = def.Clock
	}
	return &Customer{config: config, dir: dir, dialer: dialer, registrar: registrar}
}

// Send 从 origin 办公室寄出前往 dest 的包裹，返回终态事件
func (c *Customer) Send(ctx context.Context, origin string, dest types.Coordinate) (types.Event, error) {
	rec, err := c.dir.Lookup(ctx, origin)
	if err != nil {
		return types.Event{}, fmt.Errorf("customer: lookup %s: %w", origin, err)
	}
	office, err := c.dialer.DialOffice(rec.Endpoint)
	if err != nil {
		return types.Event{}, fmt.Errorf("customer: dial %s: %w", origin, err)
	}

	t := newTracker(c.config.Out)
	ref := c.registrar.Register(t)
	defer c.registrar.Unregister(ref)

	id, err := office.CreatePacket(ctx, dest, ref)
	if err != nil {
		known := t.trackingID()
		if known == "" {
			return types.Event{}, fmt.Errorf("customer: create packet at %s: %w", origin, err)
		}
		// 已得知追踪号，起始办公室中途失联
		logger.Warn("起始办公室调用失败", "office", origin, "tracking_id", known, "error", err)
		if ev, ok := t.outcome(); ok {
			return ev, nil
		}
		ev := types.NewLost(known, origin, c.config.Clock.Now())
		_ = t.Notify(ctx, ev)
		return ev, nil
	}
	t.expect(id)
	logger.Debug("包裹已创建", "office", origin, "tracking_id", id, "destination", dest.String())

	select {
	case <-t.done:
		ev, _ := t.outcome()
		return ev, nil
	case <-ctx.Done():
		return types.Event{}, fmt.Errorf("%w: %s: %v", ErrNoOutcome, id, ctx.Err())
	}
}

// ============================================================================
//                              一次性监听者
// ============================================================================

// tracker 打印事件并记录第一条终态事件
type tracker struct {
	out io.Writer

	mu       sync.Mutex
	id       types.TrackingID
	terminal *types.Event
	done     chan struct{}
}

var _ interfaces.Listener = (*tracker)(nil)

func newTracker(out io.Writer) *tracker {
	return &tracker{out: out, done: make(chan struct{})}
}

// Notify 实现 interfaces.Listener
func (t *tracker) Notify(_ context.Context, ev types.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.id == "" {
		t.id = ev.TrackingID
	} else if ev.TrackingID != t.id {
		return nil
	}
	if t.terminal != nil {
		return nil
	}

	fmt.Fprintln(t.out, ev.Message)
	if ev.Terminal() {
		t.terminal = &ev
		close(t.done)
	}
	return nil
}

// expect 固定追踪号，之后其他包裹的事件被忽略
func (t *tracker) expect(id types.TrackingID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.id == "" {
		t.id = id
	}
}

func (t *tracker) trackingID() types.TrackingID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

func (t *tracker) outcome() (types.Event, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.terminal == nil {
		return types.Event{}, false
	}
	return *t.terminal, true
}
