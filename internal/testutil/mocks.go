package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/dep2p/go-gpsoffice/pkg/interfaces"
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

// ErrMockUnreachable 模拟的不可达错误
var ErrMockUnreachable = errors.New("mock: unreachable")

// 确保实现接口
var (
	_ interfaces.Office = (*MockOffice)(nil)
	_ interfaces.Dialer = (*MockDialer)(nil)
)

// MockOffice 模拟 Office 接口实现
type MockOffice struct {
	NameValue       string
	CoordinateValue types.Coordinate

	// 可覆盖的方法
	PacketForwardFunc func(ctx context.Context, p *types.Packet) error
	CreatePacketFunc  func(ctx context.Context, dest types.Coordinate, customer types.ListenerRef) (types.TrackingID, error)
	CoordinateFunc    func(ctx context.Context) (types.Coordinate, error)
	AddListenerFunc   func(ctx context.Context, ref types.ListenerRef) (types.Lease, error)

	// 调用记录
	mu       sync.Mutex
	Received []*types.Packet
}

// NewMockOffice 创建 MockOffice
func NewMockOffice(name string, x, y float64) *MockOffice {
	return &MockOffice{NameValue: name, CoordinateValue: types.Coordinate{X: x, Y: y}}
}

// PacketForward 记录包裹
func (m *MockOffice) PacketForward(ctx context.Context, p *types.Packet) error {
	m.mu.Lock()
	m.Received = append(m.Received, p)
	m.mu.Unlock()
	if m.PacketForwardFunc != nil {
		return m.PacketForwardFunc(ctx, p)
	}
	return nil
}

// ReceivedCount 返回收到的包裹数
func (m *MockOffice) ReceivedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Received)
}

// CreatePacket 创建包裹
func (m *MockOffice) CreatePacket(ctx context.Context, dest types.Coordinate, customer types.ListenerRef) (types.TrackingID, error) {
	if m.CreatePacketFunc != nil {
		return m.CreatePacketFunc(ctx, dest, customer)
	}
	return types.NewTrackingID(), nil
}

// Coordinate 返回坐标
func (m *MockOffice) Coordinate(ctx context.Context) (types.Coordinate, error) {
	if m.CoordinateFunc != nil {
		return m.CoordinateFunc(ctx)
	}
	return m.CoordinateValue, nil
}

// Name 返回名字
func (m *MockOffice) Name(context.Context) (string, error) {
	return m.NameValue, nil
}

// AddListener 注册监听者
func (m *MockOffice) AddListener(ctx context.Context, ref types.ListenerRef) (types.Lease, error) {
	if m.AddListenerFunc != nil {
		return m.AddListenerFunc(ctx, ref)
	}
	return types.Lease{ID: ref.ID}, nil
}

// MockDialer 模拟 Dialer：按端点和监听者 ID 查表
type MockDialer struct {
	mu        sync.Mutex
	offices   map[string]interfaces.Office
	listeners map[types.ListenerRef]interfaces.Listener
}

// NewMockDialer 创建 MockDialer
func NewMockDialer() *MockDialer {
	return &MockDialer{
		offices:   make(map[string]interfaces.Office),
		listeners: make(map[types.ListenerRef]interfaces.Listener),
	}
}

// AddOffice 注册办公室
func (d *MockDialer) AddOffice(endpoint string, o interfaces.Office) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.offices[endpoint] = o
}

// AddListener 注册监听者
func (d *MockDialer) AddListener(ref types.ListenerRef, l interfaces.Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[ref] = l
}

// DialOffice 实现 interfaces.Dialer
func (d *MockDialer) DialOffice(endpoint string) (interfaces.Office, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if o, ok := d.offices[endpoint]; ok {
		return o, nil
	}
	return nil, ErrMockUnreachable
}

// DialListener 实现 interfaces.Dialer
func (d *MockDialer) DialListener(ref types.ListenerRef) (interfaces.Listener, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if l, ok := d.listeners[ref]; ok {
		return l, nil
	}
	return nil, ErrMockUnreachable
}
