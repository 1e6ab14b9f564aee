package directory

import (
	"context"
	"sync"
	"time"

	"github.com/dep2p/go-gpsoffice/pkg/interfaces"
	"github.com/dep2p/go-gpsoffice/pkg/lib/log"
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

var logger = log.Logger("discovery/directory")

// 确保 Store 实现 Directory 接口
var _ interfaces.Directory = (*Store)(nil)

// ============================================================================
//                              记录
// ============================================================================

// entry 已绑定记录
type entry struct {
	record    types.Record
	boundAt   time.Time
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// ============================================================================
//                              订阅者
// ============================================================================

type subscriber struct {
	id       uint64
	filter   types.Filter
	listener interfaces.DirectoryListener
	ch       chan types.DirectoryEvent
	done     chan struct{}
	once     sync.Once
}

func (s *subscriber) run() {
	for {
		select {
		case ev := <-s.ch:
			s.listener.OnDirectoryEvent(ev)
		case <-s.done:
			return
		}
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// ============================================================================
//                              Store 存储
// ============================================================================

// Store 内存目录
type Store struct {
	config StoreConfig

	mu      sync.Mutex
	records map[string]*entry
	order   []string
	subs    map[uint64]*subscriber
	nextSub uint64
	closed  bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewStore 创建目录
func NewStore(config StoreConfig) *Store {
	def := DefaultStoreConfig()
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	if config.SubscriberBuffer < 1 {
		config.SubscriberBuffer = def.SubscriberBuffer
	}
	if config.Clock == nil {
		config.Clock = def.Clock
	}
	return &Store{
		config:  config,
		records: make(map[string]*entry),
		subs:    make(map[uint64]*subscriber),
		stopCh:  make(chan struct{}),
	}
}

// Start 启动过期清理循环
func (s *Store) Start() {
	s.wg.Add(1)
	go s.cleanupLoop()
}

// Close 停止清理循环并关闭所有订阅
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.stopCh)
	subs := s.subs
	s.subs = make(map[uint64]*subscriber)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
	s.wg.Wait()
	return nil
}

// ============================================================================
//                              注册操作
// ============================================================================

// Bind 绑定记录，名字已存在时返回 ErrAlreadyBound
func (s *Store) Bind(_ context.Context, record types.Record) error {
	if record.Name == "" || record.Type == "" || record.Endpoint == "" {
		return ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	now := s.config.Clock.Now()
	if e, ok := s.records[record.Name]; ok {
		if !e.expired(now) {
			return ErrAlreadyBound
		}
		// 过期但尚未清理的记录视为已解绑
		s.removeLocked(record.Name)
	}

	e := &entry{record: record, boundAt: now}
	if record.TTL > 0 {
		e.expiresAt = now.Add(record.TTL)
	}
	s.records[record.Name] = e
	s.order = append(s.order, record.Name)

	logger.Info("名字已绑定", "name", record.Name, "type", record.Type, "endpoint", record.Endpoint)
	s.publishLocked(types.DirectoryEvent{Name: record.Name, Type: record.Type, Bound: true})
	return nil
}

// Renew 续期记录
func (s *Store) Renew(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.config.Clock.Now()
	e, ok := s.records[name]
	if !ok || e.expired(now) {
		return ErrNotBound
	}
	if e.record.TTL > 0 {
		e.expiresAt = now.Add(e.record.TTL)
	}
	return nil
}

// Unbind 解绑名字
func (s *Store) Unbind(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.records[name]
	if !ok {
		return ErrNotBound
	}
	s.removeLocked(name)

	logger.Info("名字已解绑", "name", name)
	s.publishLocked(types.DirectoryEvent{Name: name, Type: e.record.Type, Bound: false})
	return nil
}

// ============================================================================
//                              查询操作
// ============================================================================

// Lookup 按名字查找
func (s *Store) Lookup(_ context.Context, name string) (types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.records[name]
	if !ok || e.expired(s.config.Clock.Now()) {
		return types.Record{}, ErrNotBound
	}
	return e.record, nil
}

// List 按绑定顺序列举指定类型的名字，typ 为空时列举全部
func (s *Store) List(_ context.Context, typ string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.config.Clock.Now()
	names := make([]string, 0, len(s.order))
	for _, name := range s.order {
		e := s.records[name]
		if e.expired(now) {
			continue
		}
		if typ != "" && e.record.Type != typ {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// Len 返回记录数
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// ============================================================================
//                              订阅
// ============================================================================

// Subscribe 订阅匹配 filter 的通知，返回取消函数
func (s *Store) Subscribe(_ context.Context, listener interfaces.DirectoryListener, filter types.Filter) (func(), error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.nextSub++
	sub := &subscriber{
		id:       s.nextSub,
		filter:   filter,
		listener: listener,
		ch:       make(chan types.DirectoryEvent, s.config.SubscriberBuffer),
		done:     make(chan struct{}),
	}
	s.subs[sub.id] = sub
	s.mu.Unlock()

	go sub.run()

	cancel := func() {
		s.mu.Lock()
		delete(s.subs, sub.id)
		s.mu.Unlock()
		sub.stop()
	}
	return cancel, nil
}

// publishLocked 非阻塞地把事件放入各订阅者缓冲，调用方必须持有 s.mu
func (s *Store) publishLocked(ev types.DirectoryEvent) {
	for _, sub := range s.subs {
		if !sub.filter.Match(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			logger.Warn("订阅者缓冲已满，丢弃通知", "subscriber", sub.id, "name", ev.Name, "bound", ev.Bound)
		}
	}
}

// removeLocked 删除记录，调用方必须持有 s.mu
func (s *Store) removeLocked(name string) {
	delete(s.records, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// ============================================================================
//                              清理
// ============================================================================

// CleanupExpired 解绑所有过期记录，返回数量
func (s *Store) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.config.Clock.Now()
	var expired []*entry
	for _, name := range s.order {
		if e := s.records[name]; e.expired(now) {
			expired = append(expired, e)
		}
	}
	for _, e := range expired {
		s.removeLocked(e.record.Name)
		logger.Info("记录租期到期，自动解绑", "name", e.record.Name)
		s.publishLocked(types.DirectoryEvent{Name: e.record.Name, Type: e.record.Type, Bound: false})
	}
	return len(expired)
}

func (s *Store) cleanupLoop() {
	defer s.wg.Done()

	ticker := s.config.Clock.Ticker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.CleanupExpired()
		case <-s.stopCh:
			return
		}
	}
}
