package eventhub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dep2p/go-gpsoffice/pkg/interfaces"
	"github.com/dep2p/go-gpsoffice/pkg/lib/log"
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

var logger = log.Logger("core/eventhub")

// ErrUnknownLease 租约不存在或已被撤销
var ErrUnknownLease = errors.New("eventhub: unknown lease")

// subscription 订阅
type subscription struct {
	lease    types.Lease
	listener interfaces.Listener
	failures int
}

// Hub 事件中心
type Hub struct {
	name   string
	config *Config

	mu   sync.Mutex
	subs []*subscription
}

// New 创建事件中心，name 仅用于日志
func New(name string, opts ...Option) *Hub {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	if config.Clock == nil {
		config.Clock = DefaultConfig().Clock
	}
	return &Hub{
		name:   name,
		config: config,
	}
}

// Subscribe 注册监听者，ttl <= 0 表示租约不过期
func (h *Hub) Subscribe(listener interfaces.Listener, ttl time.Duration) types.Lease {
	lease := types.Lease{ID: uuid.NewString()}
	if ttl > 0 {
		lease.ExpiresAt = h.config.Clock.Now().Add(ttl)
	}

	h.mu.Lock()
	h.pruneLocked(h.config.Clock.Now())
	h.subs = append(h.subs, &subscription{lease: lease, listener: listener})
	h.mu.Unlock()

	return lease
}

// Renew 续期租约
func (h *Hub) Renew(leaseID string, ttl time.Duration) (types.Lease, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.config.Clock.Now()
	h.pruneLocked(now)
	for _, s := range h.subs {
		if s.lease.ID == leaseID {
			if ttl > 0 {
				s.lease.ExpiresAt = now.Add(ttl)
			} else {
				s.lease.ExpiresAt = time.Time{}
			}
			return s.lease, nil
		}
	}
	return types.Lease{}, ErrUnknownLease
}

// Cancel 取消租约
func (h *Hub) Cancel(leaseID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, s := range h.subs {
		if s.lease.ID == leaseID {
			h.subs = append(h.subs[:i], h.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Len 返回有效订阅数
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pruneLocked(h.config.Clock.Now())
	return len(h.subs)
}

// Result 一次发布的投递结果
type Result struct {
	Delivered int
	Failed    int
}

// Publish 向所有有效订阅者投递事件
//
// 永不返回错误；投递失败被记录并计入该订阅的失败次数。
func (h *Hub) Publish(ctx context.Context, event types.Event) Result {
	h.mu.Lock()
	h.pruneLocked(h.config.Clock.Now())
	snapshot := make([]*subscription, len(h.subs))
	copy(snapshot, h.subs)
	h.mu.Unlock()

	if len(snapshot) == 0 {
		return Result{}
	}

	errs := make([]error, len(snapshot))
	var wg sync.WaitGroup
	for i, s := range snapshot {
		wg.Add(1)
		go func(i int, s *subscription) {
			defer wg.Done()
			errs[i] = h.deliver(ctx, s.listener, event)
		}(i, s)
	}
	wg.Wait()

	var res Result
	h.mu.Lock()
	for i, s := range snapshot {
		if errs[i] == nil {
			res.Delivered++
			s.failures = 0
			continue
		}
		res.Failed++
		s.failures++
		logger.Warn("事件投递失败",
			"hub", h.name,
			"lease", s.lease.ID,
			"kind", event.Kind.String(),
			"tracking_id", event.TrackingID,
			"failures", s.failures,
			"error", errs[i])
		if h.config.MaxFailures > 0 && s.failures >= h.config.MaxFailures {
			h.removeLocked(s)
			logger.Info("撤销失效监听者租约", "hub", h.name, "lease", s.lease.ID)
		}
	}
	h.mu.Unlock()

	return res
}

// deliver 投递到单个监听者，panic 视为失败
func (h *Hub) deliver(ctx context.Context, l interfaces.Listener, event types.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("eventhub: listener panicked")
		}
	}()

	if h.config.NotifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.NotifyTimeout)
		defer cancel()
	}
	return l.Notify(ctx, event)
}

// pruneLocked 清理过期租约，调用方必须持有 h.mu
func (h *Hub) pruneLocked(now time.Time) {
	kept := h.subs[:0]
	for _, s := range h.subs {
		if s.lease.Expired(now) {
			logger.Debug("租约过期", "hub", h.name, "lease", s.lease.ID)
			continue
		}
		kept = append(kept, s)
	}
	for i := len(kept); i < len(h.subs); i++ {
		h.subs[i] = nil
	}
	h.subs = kept
}

// removeLocked 移除指定订阅，调用方必须持有 h.mu
func (h *Hub) removeLocked(target *subscription) {
	for i, s := range h.subs {
		if s == target {
			h.subs = append(h.subs[:i], h.subs[i+1:]...)
			return
		}
	}
}
