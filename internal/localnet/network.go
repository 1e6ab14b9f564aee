// Package localnet 提供进程内的 Dialer
//
// 端点名映射到本地对象，句柄在每次调用时重新查表：移除端点后，已解析的
// 句柄同样以 rpc.ErrUnreachable 失败，用于在单进程内模拟办公室宕机。
package localnet

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dep2p/go-gpsoffice/internal/core/rpc"
	"github.com/dep2p/go-gpsoffice/pkg/interfaces"
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

// listenerEndpoint 进程内监听者共用的端点名
const listenerEndpoint = "local"

// Network 进程内网络
type Network struct {
	mu        sync.RWMutex
	offices   map[string]interfaces.Office
	listeners map[string]interfaces.Listener
}

var _ interfaces.Dialer = (*Network)(nil)

// New 创建空网络
func New() *Network {
	return &Network{
		offices:   make(map[string]interfaces.Office),
		listeners: make(map[string]interfaces.Listener),
	}
}

// AddOffice 在 endpoint 上挂载办公室
func (n *Network) AddOffice(endpoint string, o interfaces.Office) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.offices[endpoint] = o
}

// RemoveOffice 移除端点，之后的调用返回 rpc.ErrUnreachable
func (n *Network) RemoveOffice(endpoint string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.offices, endpoint)
}

// AddListener 注册监听者并返回句柄
func (n *Network) AddListener(l interfaces.Listener) types.ListenerRef {
	id := uuid.NewString()
	n.mu.Lock()
	n.listeners[id] = l
	n.mu.Unlock()
	return types.ListenerRef{Endpoint: listenerEndpoint, ID: id}
}

// RemoveListener 移除监听者
func (n *Network) RemoveListener(ref types.ListenerRef) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.listeners, ref.ID)
}

// DialOffice 实现 interfaces.Dialer
func (n *Network) DialOffice(endpoint string) (interfaces.Office, error) {
	return &officeHandle{net: n, endpoint: endpoint}, nil
}

// DialListener 实现 interfaces.Dialer
func (n *Network) DialListener(ref types.ListenerRef) (interfaces.Listener, error) {
	return interfaces.ListenerFunc(func(ctx context.Context, ev types.Event) error {
		n.mu.RLock()
		l, ok := n.listeners[ref.ID]
		n.mu.RUnlock()
		if !ok {
			return fmt.Errorf("%w: listener %s", rpc.ErrUnreachable, ref)
		}
		return l.Notify(ctx, ev)
	}), nil
}

func (n *Network) office(endpoint string) (interfaces.Office, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	o, ok := n.offices[endpoint]
	if !ok {
		return nil, fmt.Errorf("%w: %s", rpc.ErrUnreachable, endpoint)
	}
	return o, nil
}

// officeHandle 每次调用时解析端点
type officeHandle struct {
	net      *Network
	endpoint string
}

func (h *officeHandle) PacketForward(ctx context.Context, p *types.Packet) error {
	o, err := h.net.office(h.endpoint)
	if err != nil {
		return err
	}
	return o.PacketForward(ctx, p)
}

func (h *officeHandle) CreatePacket(ctx context.Context, dest types.Coordinate, customer types.ListenerRef) (types.TrackingID, error) {
	o, err := h.net.office(h.endpoint)
	if err != nil {
		return "", err
	}
	return o.CreatePacket(ctx, dest, customer)
}

func (h *officeHandle) Coordinate(ctx context.Context) (types.Coordinate, error) {
	o, err := h.net.office(h.endpoint)
	if err != nil {
		return types.Coordinate{}, err
	}
	return o.Coordinate(ctx)
}

func (h *officeHandle) Name(ctx context.Context) (string, error) {
	o, err := h.net.office(h.endpoint)
	if err != nil {
		return "", err
	}
	return o.Name(ctx)
}

func (h *officeHandle) AddListener(ctx context.Context, ref types.ListenerRef) (types.Lease, error) {
	o, err := h.net.office(h.endpoint)
	if err != nil {
		return types.Lease{}, err
	}
	return o.AddListener(ctx, ref)
}
