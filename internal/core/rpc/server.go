package rpc

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/hashicorp/yamux"
	"go.uber.org/multierr"
	"golang.org/x/net/netutil"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-gpsoffice/internal/core/wire"
	"github.com/dep2p/go-gpsoffice/pkg/lib/log"
)

var logger = log.Logger("core/rpc")

// Handler 一元调用处理器
type Handler func(ctx context.Context, payload []byte) ([]byte, error)

// StreamHandler 服务端流式处理器
//
// send 写出一帧；客户端关闭流或服务端关闭时 ctx 被取消。处理器返回即结束流。
type StreamHandler func(ctx context.Context, payload []byte, send func([]byte) error) error

// Server RPC 服务端
type Server struct {
	config  ServerConfig
	limiter *rate.Limiter

	mu       sync.RWMutex
	handlers map[string]Handler
	streams  map[string]StreamHandler
	listener net.Listener
	sessions map[*yamux.Session]struct{}
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer 创建服务端
func NewServer(config ServerConfig) *Server {
	if config.MaxFrameSize <= 0 {
		config.MaxFrameSize = DefaultMaxFrameSize
	}
	s := &Server{
		config:   config,
		handlers: make(map[string]Handler),
		streams:  make(map[string]StreamHandler),
		sessions: make(map[*yamux.Session]struct{}),
	}
	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(config.RateLimit, burst)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Handle 注册一元方法
func (s *Server) Handle(method string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// HandleStream 注册流式方法
func (s *Server) HandleStream(method string, h StreamHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams[method] = h
}

// Listen 在 addr 上监听并在后台服务
func (s *Server) Listen(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if s.config.MaxConnections > 0 {
		l = netutil.LimitListener(l, s.config.MaxConnections)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = l.Close()
		return ErrServerClosed
	}
	s.listener = l
	s.mu.Unlock()

	s.wg.Add(1)
	go s.acceptLoop(l)

	logger.Info("RPC 服务已监听", "addr", l.Addr().String())
	return nil
}

// Addr 返回实际监听地址
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close 关闭监听与所有会话，等待处理 goroutine 退出
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	listener := s.listener
	sessions := s.sessions
	s.sessions = make(map[*yamux.Session]struct{})
	s.mu.Unlock()

	s.cancel()

	var err error
	if listener != nil {
		err = multierr.Append(err, listener.Close())
	}
	for sess := range sessions {
		err = multierr.Append(err, sess.Close())
	}
	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop(l net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := l.Accept()
		if err != nil {
			if s.ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				logger.Warn("接受连接失败", "error", err)
			}
			return
		}

		sess, err := yamux.Server(conn, yamuxConfig(s.config.KeepAliveInterval))
		if err != nil {
			logger.Warn("建立 yamux 会话失败", "remote", conn.RemoteAddr().String(), "error", err)
			_ = conn.Close()
			continue
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = sess.Close()
			return
		}
		s.sessions[sess] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serveSession(sess)
	}
}

func (s *Server) serveSession(sess *yamux.Session) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess)
		s.mu.Unlock()
		_ = sess.Close()
	}()

	for {
		stream, err := sess.AcceptStream()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go s.serveStream(stream)
	}
}

func (s *Server) serveStream(stream *yamux.Stream) {
	defer s.wg.Done()
	defer stream.Close()

	r := bufio.NewReader(stream)
	req, err := readEnvelope(r, s.config.MaxFrameSize)
	if err != nil {
		logger.Debug("读取请求失败", "error", err)
		return
	}

	if s.limiter != nil && !s.limiter.Allow() {
		s.writeError(stream, req.Method, &Error{Code: CodeResourceExhausted, Message: ErrResourceExhausted.Error()})
		return
	}

	s.mu.RLock()
	unary, isUnary := s.handlers[req.Method]
	streaming, isStream := s.streams[req.Method]
	s.mu.RUnlock()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	switch {
	case isUnary:
		resp, err := unary(ctx, req.Payload)
		if err != nil {
			s.writeError(stream, req.Method, err)
			return
		}
		if err := writeEnvelope(stream, &wire.Envelope{Payload: resp}); err != nil {
			logger.Debug("写入响应失败", "method", req.Method, "error", err)
		}

	case isStream:
		// 确认帧，之后是数据帧
		if err := writeEnvelope(stream, &wire.Envelope{}); err != nil {
			return
		}
		// 客户端关闭流时取消处理器
		go func() {
			_, _ = io.Copy(io.Discard, r)
			cancel()
		}()
		var writeMu sync.Mutex
		send := func(payload []byte) error {
			writeMu.Lock()
			defer writeMu.Unlock()
			return writeEnvelope(stream, &wire.Envelope{Payload: payload})
		}
		if err := streaming(ctx, req.Payload, send); err != nil && ctx.Err() == nil {
			logger.Debug("流式处理器结束", "method", req.Method, "error", err)
		}

	default:
		s.writeError(stream, req.Method, &Error{Code: CodeMethodNotFound, Message: ErrMethodNotFound.Error() + ": " + req.Method})
	}
}

func (s *Server) writeError(w io.Writer, method string, err error) {
	code := codeOf(err)
	if werr := writeEnvelope(w, &wire.Envelope{Code: uint32(code), Message: err.Error()}); werr != nil {
		logger.Debug("写入错误响应失败", "method", method, "error", werr)
	}
}
