package remote

import (
	"fmt"

	"github.com/dep2p/go-gpsoffice/internal/core/rpc"
)

// 方法名
const (
	MethodPacketForward = "office.packetForward"
	MethodCreatePacket  = "office.createPacket"
	MethodCoordinate    = "office.coordinate"
	MethodName          = "office.name"
	MethodAddListener   = "office.addListener"

	MethodNotify = "listener.notify"

	MethodBind   = "directory.bind"
	MethodRenew  = "directory.renew"
	MethodUnbind = "directory.unbind"
	MethodLookup = "directory.lookup"
	MethodList   = "directory.list"
	MethodWatch  = "directory.watch"
)

// badRequest 把解码失败归为 InvalidArgument
func badRequest(method string, err error) error {
	return fmt.Errorf("%w: %s: %v", rpc.ErrInvalidArgument, method, err)
}
