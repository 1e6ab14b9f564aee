package remote

import (
	"context"

	"github.com/dep2p/go-gpsoffice/internal/core/rpc"
	"github.com/dep2p/go-gpsoffice/internal/core/wire"
	"github.com/dep2p/go-gpsoffice/pkg/interfaces"
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

// ============================================================================
//                              服务绑定
// ============================================================================

// ServeOffice 把办公室门面注册到服务端
func ServeOffice(srv *rpc.Server, office interfaces.Office) {
	srv.Handle(MethodPacketForward, func(ctx context.Context, payload []byte) ([]byte, error) {
		p, err := wire.UnmarshalPacket(payload)
		if err != nil {
			return nil, badRequest(MethodPacketForward, err)
		}
		return nil, office.PacketForward(ctx, p)
	})

	srv.Handle(MethodCreatePacket, func(ctx context.Context, payload []byte) ([]byte, error) {
		req, err := wire.UnmarshalCreatePacket(payload)
		if err != nil {
			return nil, badRequest(MethodCreatePacket, err)
		}
		id, err := office.CreatePacket(ctx, req.Destination, req.Customer)
		if err != nil {
			return nil, err
		}
		return wire.MarshalString(id.String()), nil
	})

	srv.Handle(MethodCoordinate, func(ctx context.Context, _ []byte) ([]byte, error) {
		c, err := office.Coordinate(ctx)
		if err != nil {
			return nil, err
		}
		return wire.MarshalCoordinate(c), nil
	})

	srv.Handle(MethodName, func(ctx context.Context, _ []byte) ([]byte, error) {
		name, err := office.Name(ctx)
		if err != nil {
			return nil, err
		}
		return wire.MarshalString(name), nil
	})

	srv.Handle(MethodAddListener, func(ctx context.Context, payload []byte) ([]byte, error) {
		ref, err := wire.UnmarshalListenerRef(payload)
		if err != nil {
			return nil, badRequest(MethodAddListener, err)
		}
		lease, err := office.AddListener(ctx, ref)
		if err != nil {
			return nil, err
		}
		return wire.MarshalLease(lease), nil
	})
}

// ============================================================================
//                              客户端桩
// ============================================================================

// OfficeStub 远程办公室句柄
type OfficeStub struct {
	client *rpc.Client
	addr   string
}

var _ interfaces.Office = (*OfficeStub)(nil)

// NewOfficeStub 创建指向 addr 的办公室句柄，不发起网络调用
func NewOfficeStub(client *rpc.Client, addr string) *OfficeStub {
	return &OfficeStub{client: client, addr: addr}
}

// Endpoint 返回远端地址
func (s *OfficeStub) Endpoint() string {
	return s.addr
}

// PacketForward 实现 interfaces.Office
func (s *OfficeStub) PacketForward(ctx context.Context, p *types.Packet) error {
	_, err := s.client.Call(ctx, s.addr, MethodPacketForward, wire.MarshalPacket(p))
	return err
}

// CreatePacket 实现 interfaces.Office
func (s *OfficeStub) CreatePacket(ctx context.Context, dest types.Coordinate, customer types.ListenerRef) (types.TrackingID, error) {
	resp, err := s.client.Call(ctx, s.addr, MethodCreatePacket, wire.MarshalCreatePacket(wire.CreatePacket{
		Destination: dest,
		Customer:    customer,
	}))
	if err != nil {
		return "", err
	}
	id, err := wire.UnmarshalString(resp)
	if err != nil {
		return "", err
	}
	return types.TrackingID(id), nil
}

// Coordinate 实现 interfaces.Office
func (s *OfficeStub) Coordinate(ctx context.Context) (types.Coordinate, error) {
	resp, err := s.client.Call(ctx, s.addr, MethodCoordinate, nil)
	if err != nil {
		return types.Coordinate{}, err
	}
	return wire.UnmarshalCoordinate(resp)
}

// Name 实现 interfaces.Office
func (s *OfficeStub) Name(ctx context.Context) (string, error) {
	resp, err := s.client.Call(ctx, s.addr, MethodName, nil)
	if err != nil {
		return "", err
	}
	return wire.UnmarshalString(resp)
}

// AddListener 实现 interfaces.Office
func (s *OfficeStub) AddListener(ctx context.Context, ref types.ListenerRef) (types.Lease, error) {
	resp, err := s.client.Call(ctx, s.addr, MethodAddListener, wire.MarshalListenerRef(ref))
	if err != nil {
		return types.Lease{}, err
	}
	return wire.UnmarshalLease(resp)
}
