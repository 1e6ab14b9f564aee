package interfaces

import (
	"context"

	"github.com/dep2p/go-gpsoffice/pkg/types"
)

// Office 办公室对外门面
//
// 目录中以办公室名称绑定的就是该接口的句柄；本地实现与远程桩都实现它，
// 因此所有方法都带 context 并返回 error。
type Office interface {
	// PacketForward 接收入站包裹
	//
	// 同步报告 Arrived，经过处理延迟后决定下一跳；本调用不等待下一跳完成。
	PacketForward(ctx context.Context, packet *types.Packet) error

	// CreatePacket 为客户创建新包裹并开始转发
	CreatePacket(ctx context.Context, dest types.Coordinate, customer types.ListenerRef) (types.TrackingID, error)

	// Coordinate 返回办公室坐标
	Coordinate(ctx context.Context) (types.Coordinate, error)

	// Name 返回办公室名称
	Name(ctx context.Context) (string, error)

	// AddListener 在办公室级事件中心注册监听者
	AddListener(ctx context.Context, listener types.ListenerRef) (types.Lease, error)
}
