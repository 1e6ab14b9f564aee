package types

import (
	"time"

	"github.com/google/uuid"
)

// TrackingID 包裹追踪号
//
// 使用 UUIDv7：按时间有序、带随机部分，跨办公室不会重复。
type TrackingID string

// NewTrackingID 生成新的追踪号
func NewTrackingID() TrackingID {
	id, err := uuid.NewV7()
	if err != nil {
		// 随机源失败时退化为 V4
		return TrackingID(uuid.NewString())
	}
	return TrackingID(id.String())
}

// String 返回字符串形式
func (t TrackingID) String() string {
	return string(t)
}

// ListenerRef 可序列化的监听者句柄
//
// Endpoint 为监听者所在进程的 RPC 地址，ID 在该进程内唯一。
type ListenerRef struct {
	Endpoint string `json:"endpoint"`
	ID       string `json:"id"`
}

// IsZero 是否为空句柄
func (r ListenerRef) IsZero() bool {
	return r.Endpoint == "" && r.ID == ""
}

// String 返回 "endpoint#id"
func (r ListenerRef) String() string {
	return r.Endpoint + "#" + r.ID
}

// Packet 包裹
//
// 由首个接受客户请求的办公室创建，之后不可变，逐跳按值传递。
type Packet struct {
	TrackingID  TrackingID  `json:"tracking_id"`
	Destination Coordinate  `json:"destination"`
	CreatedAt   time.Time   `json:"created_at"`
	Listener    ListenerRef `json:"listener"`
}

// NewPacket 创建包裹
func NewPacket(dest Coordinate, listener ListenerRef, now time.Time) *Packet {
	return &Packet{
		TrackingID:  NewTrackingID(),
		Destination: dest,
		CreatedAt:   now,
		Listener:    listener,
	}
}
