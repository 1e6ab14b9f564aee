package headquarters

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dep2p/go-gpsoffice/pkg/types"
)

// feedBuffer 每个 websocket 客户端缓冲的事件数，溢出时丢弃
const feedBuffer = 64

// writeWait 单条写入超时
const writeWait = 5 * time.Second

// FeedEvent websocket 与 MQTT 上的事件 JSON
type FeedEvent struct {
	Kind        string            `json:"kind"`
	TrackingID  string            `json:"tracking_id"`
	Office      string            `json:"office"`
	Message     string            `json:"message"`
	Destination *types.Coordinate `json:"destination,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewFeedEvent 从事件构造 JSON 形式
func NewFeedEvent(ev types.Event) FeedEvent {
	fe := FeedEvent{
		Kind:       ev.Kind.String(),
		TrackingID: ev.TrackingID.String(),
		Office:     ev.Office,
		Message:    ev.Message,
		Timestamp:  ev.Timestamp,
	}
	if ev.Kind == types.EventDelivered {
		dest := ev.Destination
		fe.Destination = &dest
	}
	return fe
}

// ============================================================================
//                              Feed
// ============================================================================

// Feed 把事件广播给所有 websocket 客户端
type Feed struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*feedClient]struct{}
	closed  bool
}

type feedClient struct {
	conn *websocket.Conn
	ch   chan FeedEvent
	done chan struct{}
	once sync.Once
}

func (c *feedClient) stop() {
	c.once.Do(func() { close(c.done) })
}

var _ Sink = (*Feed)(nil)

// NewFeed 创建事件流
func NewFeed() *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*feedClient]struct{}),
	}
}

// ServeHTTP 升级为 websocket 并持续推送事件
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket 升级失败", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &feedClient{conn: conn, ch: make(chan FeedEvent, feedBuffer), done: make(chan struct{})}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		_ = conn.Close()
		return
	}
	f.clients[c] = struct{}{}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.clients, c)
		f.mu.Unlock()
		_ = conn.Close()
	}()

	// 读循环只用于感知客户端断开
	go func() {
		defer c.stop()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-c.done:
			return
		case ev := <-c.ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				logger.Debug("websocket 写入失败", "remote", r.RemoteAddr, "error", err)
				return
			}
		}
	}
}

// Clients 返回当前客户端数
func (f *Feed) Clients() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Publish 实现 Sink，慢客户端的事件被丢弃
func (f *Feed) Publish(_ context.Context, ev types.Event) error {
	fe := NewFeedEvent(ev)
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		select {
		case c.ch <- fe:
		default:
			logger.Warn("websocket 客户端过慢，丢弃事件", "tracking_id", fe.TrackingID)
		}
	}
	return nil
}

// Close 实现 Sink，断开所有客户端
func (f *Feed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for c := range f.clients {
		c.stop()
	}
	return nil
}

// ============================================================================
//                              FeedServer
// ============================================================================

// FeedServer 在 addr 上以 /ws 提供 Feed
type FeedServer struct {
	feed     *Feed
	addr     string
	server   *http.Server
	listener net.Listener
}

// NewFeedServer 创建服务
func NewFeedServer(addr string, feed *Feed) *FeedServer {
	mux := http.NewServeMux()
	mux.Handle("/ws", feed)
	return &FeedServer{
		feed:   feed,
		addr:   addr,
		server: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
	}
}

// Start 开始监听
func (s *FeedServer) Start() error {
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = l
	go func() {
		if err := s.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("事件流服务退出", "addr", s.addr, "error", err)
		}
	}()
	logger.Info("事件流已监听", "addr", l.Addr().String(), "path", "/ws")
	return nil
}

// Addr 返回实际监听地址
func (s *FeedServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop 断开客户端并关闭服务
func (s *FeedServer) Stop(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	_ = s.feed.Close()
	return s.server.Shutdown(ctx)
}
