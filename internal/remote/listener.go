package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dep2p/go-gpsoffice/internal/core/rpc"
	"github.com/dep2p/go-gpsoffice/internal/core/wire"
	"github.com/dep2p/go-gpsoffice/pkg/interfaces"
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

// ============================================================================
//                              监听者注册表
// ============================================================================

// ListenerRegistry 在一个 rpc.Server 上按 ID 多路复用监听者
type ListenerRegistry struct {
	endpoint func() string

	mu        sync.RWMutex
	listeners map[string]interfaces.Listener
}

// NewListenerRegistry 创建注册表并注册 listener.notify 方法
//
// endpoint 在 Register 时求值，因此可以在服务端开始监听之后才确定。
func NewListenerRegistry(srv *rpc.Server, endpoint func() string) *ListenerRegistry {
	r := &ListenerRegistry{
		endpoint:  endpoint,
		listeners: make(map[string]interfaces.Listener),
	}
	srv.Handle(MethodNotify, r.handleNotify)
	return r
}

// Register 注册监听者，返回可随包裹传递的句柄
func (r *ListenerRegistry) Register(l interfaces.Listener) types.ListenerRef {
	id := uuid.NewString()
	r.mu.Lock()
	r.listeners[id] = l
	r.mu.Unlock()
	return types.ListenerRef{Endpoint: r.endpoint(), ID: id}
}

// Unregister 注销监听者，之后的通知返回 ErrUnknownListener
func (r *ListenerRegistry) Unregister(ref types.ListenerRef) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listeners[ref.ID]; !ok {
		return false
	}
	delete(r.listeners, ref.ID)
	return true
}

// Len 返回已注册的监听者数量
func (r *ListenerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

func (r *ListenerRegistry) handleNotify(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := wire.UnmarshalNotify(payload)
	if err != nil {
		return nil, badRequest(MethodNotify, err)
	}

	r.mu.RLock()
	l, ok := r.listeners[req.ListenerID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownListener, req.ListenerID)
	}
	return nil, l.Notify(ctx, req.Event)
}

// ============================================================================
//                              客户端桩
// ============================================================================

// ListenerStub 远程监听者句柄
type ListenerStub struct {
	client *rpc.Client
	ref    types.ListenerRef
}

var _ interfaces.Listener = (*ListenerStub)(nil)

// NewListenerStub 创建指向 ref 的监听者句柄
func NewListenerStub(client *rpc.Client, ref types.ListenerRef) *ListenerStub {
	return &ListenerStub{client: client, ref: ref}
}

// Notify 实现 interfaces.Listener
func (s *ListenerStub) Notify(ctx context.Context, ev types.Event) error {
	_, err := s.client.Call(ctx, s.ref.Endpoint, MethodNotify, wire.MarshalNotify(wire.Notify{
		ListenerID: s.ref.ID,
		Event:      ev,
	}))
	return err
}
