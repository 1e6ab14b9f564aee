package rpc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/yamux"

	"github.com/dep2p/go-gpsoffice/internal/core/wire"
)

// Client RPC 客户端
type Client struct {
	config ClientConfig

	mu       sync.Mutex
	sessions *lru.Cache[string, *yamux.Session]
	closed   bool
}

// NewClient 创建客户端
func NewClient(config ClientConfig) *Client {
	def := DefaultClientConfig()
	if config.DialTimeout <= 0 {
		config.DialTimeout = def.DialTimeout
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = def.CallTimeout
	}
	if config.MaxSessions < 1 {
		config.MaxSessions = def.MaxSessions
	}
	if config.MaxFrameSize <= 0 {
		config.MaxFrameSize = def.MaxFrameSize
	}

	// 淘汰的会话立即关闭
	cache, _ := lru.NewWithEvict[string, *yamux.Session](config.MaxSessions, func(addr string, sess *yamux.Session) {
		_ = sess.Close()
	})
	return &Client{config: config, sessions: cache}
}

// Close 关闭所有缓存的会话
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.sessions.Purge()
	return nil
}

// session 返回到 addr 的会话，必要时拨号
//
// 拨号不持有 c.mu；并发拨号同一地址时保留先加入缓存的会话。
func (c *Client) session(ctx context.Context, addr string) (*yamux.Session, error) {
	if sess, ok, err := c.cached(addr); ok {
		return sess, err
	}

	dialer := net.Dialer{Timeout: c.config.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, addr, err)
	}
	sess, err := yamux.Client(conn, yamuxConfig(c.config.KeepAliveInterval))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, addr, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = sess.Close()
		return nil, ErrClientClosed
	}
	if existing, ok := c.sessions.Get(addr); ok && !existing.IsClosed() {
		_ = sess.Close()
		return existing, nil
	}
	c.sessions.Add(addr, sess)
	return sess, nil
}

// cached 返回缓存中可用的会话；ok 为 false 表示需要拨号
func (c *Client) cached(addr string) (*yamux.Session, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, true, ErrClientClosed
	}
	if sess, ok := c.sessions.Get(addr); ok {
		if !sess.IsClosed() {
			return sess, true, nil
		}
		c.sessions.Remove(addr)
	}
	return nil, false, nil
}

// drop 丢弃失效会话
func (c *Client) drop(addr string, sess *yamux.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.sessions.Peek(addr); ok && cur == sess {
		c.sessions.Remove(addr)
	}
}

// openStream 打开新流；缓存会话已失效时重拨一次
func (c *Client) openStream(ctx context.Context, addr string) (*yamux.Stream, error) {
	for attempt := 0; ; attempt++ {
		sess, err := c.session(ctx, addr)
		if err != nil {
			return nil, err
		}
		stream, err := sess.OpenStream()
		if err == nil {
			return stream, nil
		}
		c.drop(addr, sess)
		if attempt > 0 {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, addr, err)
		}
	}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.config.CallTimeout)
}

// Call 发起一元调用
func (c *Client) Call(ctx context.Context, addr, method string, payload []byte) ([]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	stream, err := c.openStream(ctx, addr)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = stream.Close() })
	defer stop()

	if err := writeEnvelope(stream, &wire.Envelope{Method: method, Payload: payload}); err != nil {
		return nil, c.mapErr(ctx, addr, err)
	}
	resp, err := readEnvelope(bufio.NewReader(stream), c.config.MaxFrameSize)
	if err != nil {
		return nil, c.mapErr(ctx, addr, err)
	}
	if resp.Code != uint32(CodeOK) {
		return nil, &Error{Code: Code(resp.Code), Message: resp.Message}
	}
	return resp.Payload, nil
}

// Stream 发起服务端流式调用
//
// ctx 只约束建立阶段；返回的 StreamReader 在 Close 或对端结束前一直有效。
func (c *Client) Stream(ctx context.Context, addr, method string, payload []byte) (*StreamReader, error) {
	callCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	stream, err := c.openStream(callCtx, addr)
	if err != nil {
		return nil, err
	}
	if deadline, ok := callCtx.Deadline(); ok {
		_ = stream.SetDeadline(deadline)
	}

	r := bufio.NewReader(stream)
	if err := writeEnvelope(stream, &wire.Envelope{Method: method, Payload: payload}); err != nil {
		_ = stream.Close()
		return nil, c.mapErr(callCtx, addr, err)
	}
	ack, err := readEnvelope(r, c.config.MaxFrameSize)
	if err != nil {
		_ = stream.Close()
		return nil, c.mapErr(callCtx, addr, err)
	}
	if ack.Code != uint32(CodeOK) {
		_ = stream.Close()
		return nil, &Error{Code: Code(ack.Code), Message: ack.Message}
	}

	_ = stream.SetDeadline(time.Time{})
	return &StreamReader{stream: stream, r: r, max: c.config.MaxFrameSize}, nil
}

// mapErr 把传输层错误归类为 ErrTimeout 或 ErrUnreachable
func (c *Client) mapErr(ctx context.Context, addr string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, yamux.ErrTimeout) {
		return fmt.Errorf("%w: %s", ErrTimeout, addr)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if errors.Is(err, ErrFrameTooLarge) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrUnreachable, addr, err)
}

// StreamReader 流式调用的接收端
type StreamReader struct {
	stream *yamux.Stream
	r      *bufio.Reader
	max    int
	once   sync.Once
}

// Recv 读取下一帧；流结束时返回 io.EOF
func (s *StreamReader) Recv() ([]byte, error) {
	env, err := readEnvelope(s.r, s.max)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if env.Code != uint32(CodeOK) {
		return nil, &Error{Code: Code(env.Code), Message: env.Message}
	}
	return env.Payload, nil
}

// Close 关闭流
func (s *StreamReader) Close() error {
	var err error
	s.once.Do(func() { err = s.stream.Close() })
	return err
}
