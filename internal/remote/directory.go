package remote

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/dep2p/go-gpsoffice/internal/core/rpc"
	"github.com/dep2p/go-gpsoffice/internal/core/wire"
	"github.com/dep2p/go-gpsoffice/pkg/interfaces"
	"github.com/dep2p/go-gpsoffice/pkg/lib/log"
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

var logger = log.Logger("remote")

// watchBuffer 单个 watch 流在服务端缓冲的事件数
const watchBuffer = 64

// ============================================================================
//                              服务绑定
// ============================================================================

// ServeDirectory 把目录服务注册到服务端
func ServeDirectory(srv *rpc.Server, dir interfaces.Directory) {
	srv.Handle(MethodBind, func(ctx context.Context, payload []byte) ([]byte, error) {
		rec, err := wire.UnmarshalRecord(payload)
		if err != nil {
			return nil, badRequest(MethodBind, err)
		}
		return nil, dir.Bind(ctx, rec)
	})

	srv.Handle(MethodRenew, func(ctx context.Context, payload []byte) ([]byte, error) {
		name, err := wire.UnmarshalString(payload)
		if err != nil {
			return nil, badRequest(MethodRenew, err)
		}
		return nil, dir.Renew(ctx, name)
	})

	srv.Handle(MethodUnbind, func(ctx context.Context, payload []byte) ([]byte, error) {
		name, err := wire.UnmarshalString(payload)
		if err != nil {
			return nil, badRequest(MethodUnbind, err)
		}
		return nil, dir.Unbind(ctx, name)
	})

	srv.Handle(MethodLookup, func(ctx context.Context, payload []byte) ([]byte, error) {
		name, err := wire.UnmarshalString(payload)
		if err != nil {
			return nil, badRequest(MethodLookup, err)
		}
		rec, err := dir.Lookup(ctx, name)
		if err != nil {
			return nil, err
		}
		return wire.MarshalRecord(rec), nil
	})

	srv.Handle(MethodList, func(ctx context.Context, payload []byte) ([]byte, error) {
		typ, err := wire.UnmarshalString(payload)
		if err != nil {
			return nil, badRequest(MethodList, err)
		}
		names, err := dir.List(ctx, typ)
		if err != nil {
			return nil, err
		}
		return wire.MarshalStrings(names), nil
	})

	srv.HandleStream(MethodWatch, func(ctx context.Context, payload []byte, send func([]byte) error) error {
		filter, err := wire.UnmarshalFilter(payload)
		if err != nil {
			return badRequest(MethodWatch, err)
		}
		return watch(ctx, dir, filter, send)
	})
}

// watch 订阅目录并把事件写入流，直到 ctx 取消或写入失败
func watch(ctx context.Context, dir interfaces.Directory, filter types.Filter, send func([]byte) error) error {
	events := make(chan types.DirectoryEvent, watchBuffer)
	cancel, err := dir.Subscribe(ctx, interfaces.DirectoryListenerFunc(func(ev types.DirectoryEvent) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}), filter)
	if err != nil {
		return err
	}
	defer cancel()

	// 空帧表示订阅已生效
	if err := send(nil); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if err := send(wire.MarshalDirectoryEvent(ev)); err != nil {
				return err
			}
		}
	}
}

// ============================================================================
//                              客户端桩
// ============================================================================

// 重新订阅的退避区间
const (
	resubscribeMin = 100 * time.Millisecond
	resubscribeMax = 5 * time.Second
)

// DirectoryStub 远程目录句柄
type DirectoryStub struct {
	client *rpc.Client
	addr   string

	retryMin time.Duration
	retryMax time.Duration
}

var _ interfaces.Directory = (*DirectoryStub)(nil)

// NewDirectoryStub 创建指向 addr 的目录句柄
func NewDirectoryStub(client *rpc.Client, addr string) *DirectoryStub {
	return &DirectoryStub{client: client, addr: addr, retryMin: resubscribeMin, retryMax: resubscribeMax}
}

// Bind 实现 interfaces.Directory
func (s *DirectoryStub) Bind(ctx context.Context, rec types.Record) error {
	_, err := s.client.Call(ctx, s.addr, MethodBind, wire.MarshalRecord(rec))
	return err
}

// Renew 实现 interfaces.Directory
func (s *DirectoryStub) Renew(ctx context.Context, name string) error {
	_, err := s.client.Call(ctx, s.addr, MethodRenew, wire.MarshalString(name))
	return err
}

// Unbind 实现 interfaces.Directory
func (s *DirectoryStub) Unbind(ctx context.Context, name string) error {
	_, err := s.client.Call(ctx, s.addr, MethodUnbind, wire.MarshalString(name))
	return err
}

// Lookup 实现 interfaces.Directory
func (s *DirectoryStub) Lookup(ctx context.Context, name string) (types.Record, error) {
	resp, err := s.client.Call(ctx, s.addr, MethodLookup, wire.MarshalString(name))
	if err != nil {
		return types.Record{}, err
	}
	return wire.UnmarshalRecord(resp)
}

// List 实现 interfaces.Directory
func (s *DirectoryStub) List(ctx context.Context, typ string) ([]string, error) {
	resp, err := s.client.Call(ctx, s.addr, MethodList, wire.MarshalString(typ))
	if err != nil {
		return nil, err
	}
	return wire.UnmarshalStrings(resp)
}

// Subscribe 实现 interfaces.Directory
//
// 返回时服务端订阅已生效。事件在后台 goroutine 中按序回调 listener；
// 流意外结束时按退避间隔重新订阅直到取消，恢复后若 listener 实现
// interfaces.DirectoryResubscriber 则回调 OnResubscribed。
func (s *DirectoryStub) Subscribe(ctx context.Context, listener interfaces.DirectoryListener, filter types.Filter) (func(), error) {
	payload := wire.MarshalFilter(filter)
	sr, err := s.watch(ctx, payload)
	if err != nil {
		return nil, err
	}

	wctx, stop := context.WithCancel(context.Background())
	var (
		once sync.Once
		mu   sync.Mutex
		cur  = sr
	)
	cancel := func() {
		once.Do(func() {
			stop()
			mu.Lock()
			_ = cur.Close()
			mu.Unlock()
		})
	}

	go func() {
		for {
			s.deliver(wctx, sr, listener)
			_ = sr.Close()
			if sr = s.rewatch(wctx, payload); sr == nil {
				return
			}
			mu.Lock()
			if wctx.Err() != nil {
				mu.Unlock()
				_ = sr.Close()
				return
			}
			cur = sr
			mu.Unlock()

			if r, ok := listener.(interfaces.DirectoryResubscriber); ok {
				r.OnResubscribed()
			}
		}
	}()

	return cancel, nil
}

// watch 打开 watch 流并等待服务端的就绪帧
func (s *DirectoryStub) watch(ctx context.Context, payload []byte) (*rpc.StreamReader, error) {
	sr, err := s.client.Stream(ctx, s.addr, MethodWatch, payload)
	if err != nil {
		return nil, err
	}

	ready := make(chan error, 1)
	go func() {
		_, err := sr.Recv()
		ready <- err
	}()
	select {
	case err := <-ready:
		if err != nil {
			_ = sr.Close()
			return nil, err
		}
		return sr, nil
	case <-ctx.Done():
		_ = sr.Close()
		return nil, ctx.Err()
	}
}

// deliver 把流上的事件回调给 listener，直到流结束或 ctx 取消
func (s *DirectoryStub) deliver(ctx context.Context, sr *rpc.StreamReader, listener interfaces.DirectoryListener) {
	for {
		payload, err := sr.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				logger.Warn("目录订阅流已结束", "addr", s.addr)
			} else {
				logger.Warn("目录订阅流中断", "addr", s.addr, "error", err)
			}
			return
		}
		ev, err := wire.UnmarshalDirectoryEvent(payload)
		if err != nil {
			logger.Warn("丢弃无法解码的目录事件", "error", err)
			continue
		}
		if ctx.Err() != nil {
			return
		}
		listener.OnDirectoryEvent(ev)
	}
}

// rewatch 按指数退避重新订阅；ctx 取消时返回 nil
func (s *DirectoryStub) rewatch(ctx context.Context, payload []byte) *rpc.StreamReader {
	backoff := s.retryMin
	for attempt := 1; ; attempt++ {
		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}

		sr, err := s.watch(ctx, payload)
		if err == nil {
			logger.Info("目录订阅已恢复", "addr", s.addr, "attempts", attempt)
			return sr
		}
		if ctx.Err() != nil {
			return nil
		}
		logger.Debug("重新订阅目录失败", "addr", s.addr, "attempt", attempt, "error", err)
		if backoff *= 2; backoff > s.retryMax {
			backoff = s.retryMax
		}
	}
}
