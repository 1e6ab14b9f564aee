package wire

import (
	"time"

	"github.com/dep2p/go-gpsoffice/pkg/types"
)

// ============================================================================
//                              Envelope
// ============================================================================

// Envelope RPC 帧
//
// 请求：Method + Payload；响应：Payload，或 Code != 0 时的错误码与消息。
type Envelope struct {
	Method  string
	Payload []byte
	Code    uint32
	Message string
}

// MarshalEnvelope 编码
func MarshalEnvelope(env *Envelope) []byte {
	var e encoder
	e.string(1, env.Method)
	e.bytes(2, env.Payload)
	e.uvarint(3, uint64(env.Code))
	e.string(4, env.Message)
	return e.b
}

// UnmarshalEnvelope 解码
func UnmarshalEnvelope(b []byte) (*Envelope, error) {
	env := &Envelope{}
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			env.Method = f.str()
		case 2:
			env.Payload = append([]byte(nil), f.bytes...)
		case 3:
			env.Code = uint32(f.varint)
		case 4:
			env.Message = f.str()
		}
		return nil
	})
	return env, err
}

// ============================================================================
//                              基础类型
// ============================================================================

// MarshalCoordinate 编码坐标
func MarshalCoordinate(c types.Coordinate) []byte {
	var e encoder
	e.double(1, c.X)
	e.double(2, c.Y)
	return e.b
}

// UnmarshalCoordinate 解码坐标
func UnmarshalCoordinate(b []byte) (types.Coordinate, error) {
	var c types.Coordinate
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			c.X = f.double()
		case 2:
			c.Y = f.double()
		}
		return nil
	})
	return c, err
}

// MarshalListenerRef 编码监听者引用
func MarshalListenerRef(r types.ListenerRef) []byte {
	var e encoder
	e.string(1, r.Endpoint)
	e.string(2, r.ID)
	return e.b
}

// UnmarshalListenerRef 解码监听者引用
func UnmarshalListenerRef(b []byte) (types.ListenerRef, error) {
	var r types.ListenerRef
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			r.Endpoint = f.str()
		case 2:
			r.ID = f.str()
		}
		return nil
	})
	return r, err
}

// MarshalString 编码单个字符串
func MarshalString(s string) []byte {
	var e encoder
	e.string(1, s)
	return e.b
}

// UnmarshalString 解码单个字符串
func UnmarshalString(b []byte) (string, error) {
	var s string
	err := walk(b, func(f field) error {
		if f.num == 1 {
			s = f.str()
		}
		return nil
	})
	return s, err
}

// MarshalStrings 编码字符串列表
func MarshalStrings(values []string) []byte {
	var e encoder
	for _, v := range values {
		// 重复字段中的空串也必须保留
		e.message(1, []byte(v))
	}
	return e.b
}

// UnmarshalStrings 解码字符串列表
func UnmarshalStrings(b []byte) ([]string, error) {
	values := []string{}
	err := walk(b, func(f field) error {
		if f.num == 1 {
			values = append(values, f.str())
		}
		return nil
	})
	return values, err
}

// ============================================================================
//                              包裹与事件
// ============================================================================

// MarshalPacket 编码包裹
func MarshalPacket(p *types.Packet) []byte {
	var e encoder
	e.string(1, string(p.TrackingID))
	e.message(2, MarshalCoordinate(p.Destination))
	e.time(3, p.CreatedAt)
	if !p.Listener.IsZero() {
		e.message(4, MarshalListenerRef(p.Listener))
	}
	return e.b
}

// UnmarshalPacket 解码包裹
func UnmarshalPacket(b []byte) (*types.Packet, error) {
	p := &types.Packet{}
	err := walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			p.TrackingID = types.TrackingID(f.str())
		case 2:
			p.Destination, err = UnmarshalCoordinate(f.bytes)
		case 3:
			p.CreatedAt = f.time()
		case 4:
			p.Listener, err = UnmarshalListenerRef(f.bytes)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// MarshalEvent 编码事件
func MarshalEvent(ev types.Event) []byte {
	var e encoder
	e.uvarint(1, uint64(ev.Kind))
	e.string(2, string(ev.TrackingID))
	e.string(3, ev.Office)
	e.string(4, ev.Message)
	if ev.Kind == types.EventDelivered {
		e.message(5, MarshalCoordinate(ev.Destination))
	}
	e.time(6, ev.Timestamp)
	return e.b
}

// UnmarshalEvent 解码事件
func UnmarshalEvent(b []byte) (types.Event, error) {
	var ev types.Event
	err := walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			ev.Kind = types.EventKind(f.varint)
		case 2:
			ev.TrackingID = types.TrackingID(f.str())
		case 3:
			ev.Office = f.str()
		case 4:
			ev.Message = f.str()
		case 5:
			ev.Destination, err = UnmarshalCoordinate(f.bytes)
		case 6:
			ev.Timestamp = f.time()
		}
		return err
	})
	return ev, err
}

// CreatePacket createPacket 请求
type CreatePacket struct {
	Destination types.Coordinate
	Customer    types.ListenerRef
}

// MarshalCreatePacket 编码
func MarshalCreatePacket(req CreatePacket) []byte {
	var e encoder
	e.message(1, MarshalCoordinate(req.Destination))
	e.message(2, MarshalListenerRef(req.Customer))
	return e.b
}

// UnmarshalCreatePacket 解码
func UnmarshalCreatePacket(b []byte) (CreatePacket, error) {
	var req CreatePacket
	err := walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			req.Destination, err = UnmarshalCoordinate(f.bytes)
		case 2:
			req.Customer, err = UnmarshalListenerRef(f.bytes)
		}
		return err
	})
	return req, err
}

// ============================================================================
//                              目录与租约
// ============================================================================

// MarshalRecord 编码目录记录
func MarshalRecord(r types.Record) []byte {
	var e encoder
	e.string(1, r.Name)
	e.string(2, r.Type)
	e.string(3, r.Endpoint)
	e.uvarint(4, uint64(r.TTL))
	return e.b
}

// UnmarshalRecord 解码目录记录
func UnmarshalRecord(b []byte) (types.Record, error) {
	var r types.Record
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			r.Name = f.str()
		case 2:
			r.Type = f.str()
		case 3:
			r.Endpoint = f.str()
		case 4:
			r.TTL = time.Duration(f.varint)
		}
		return nil
	})
	return r, err
}

// MarshalFilter 编码订阅过滤器
func MarshalFilter(flt types.Filter) []byte {
	var e encoder
	e.string(1, flt.Type)
	e.bool(2, flt.Bound)
	e.bool(3, flt.Unbound)
	return e.b
}

// UnmarshalFilter 解码订阅过滤器
func UnmarshalFilter(b []byte) (types.Filter, error) {
	var flt types.Filter
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			flt.Type = f.str()
		case 2:
			flt.Bound = f.varint != 0
		case 3:
			flt.Unbound = f.varint != 0
		}
		return nil
	})
	return flt, err
}

// MarshalDirectoryEvent 编码目录通知
func MarshalDirectoryEvent(ev types.DirectoryEvent) []byte {
	var e encoder
	e.string(1, ev.Name)
	e.string(2, ev.Type)
	e.bool(3, ev.Bound)
	return e.b
}

// UnmarshalDirectoryEvent 解码目录通知
func UnmarshalDirectoryEvent(b []byte) (types.DirectoryEvent, error) {
	var ev types.DirectoryEvent
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			ev.Name = f.str()
		case 2:
			ev.Type = f.str()
		case 3:
			ev.Bound = f.varint != 0
		}
		return nil
	})
	return ev, err
}

// MarshalLease 编码租约
func MarshalLease(l types.Lease) []byte {
	var e encoder
	e.string(1, l.ID)
	e.time(2, l.ExpiresAt)
	return e.b
}

// UnmarshalLease 解码租约
func UnmarshalLease(b []byte) (types.Lease, error) {
	var l types.Lease
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			l.ID = f.str()
		case 2:
			l.ExpiresAt = f.time()
		}
		return nil
	})
	return l, err
}

// ============================================================================
//                              监听者通知
// ============================================================================

// Notify listener.notify 请求，ListenerID 在监听者进程内选择具体监听者
type Notify struct {
	ListenerID string
	Event      types.Event
}

// MarshalNotify 编码
func MarshalNotify(n Notify) []byte {
	var e encoder
	e.string(1, n.ListenerID)
	e.message(2, MarshalEvent(n.Event))
	return e.b
}

// UnmarshalNotify 解码
func UnmarshalNotify(b []byte) (Notify, error) {
	var n Notify
	err := walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			n.ListenerID = f.str()
		case 2:
			n.Event, err = UnmarshalEvent(f.bytes)
		}
		return err
	})
	return n, err
}
